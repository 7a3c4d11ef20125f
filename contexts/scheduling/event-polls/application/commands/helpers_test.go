package commands

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"sheepyard/contexts/scheduling/event-polls/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type sequenceIDs struct {
	mu   sync.Mutex
	next int
}

func (s *sequenceIDs) NewID(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("id-%03d", s.next), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []ports.EventEnvelope
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// waitForEvents polls until n events were published. State events are
// published off the request goroutine.
func (p *recordingPublisher) waitForEvents(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d published events, got %d", n, p.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	release chan struct{}
	done    chan string
}

func (p *blockingPublisher) Publish(ctx context.Context, topic string, _ ports.EventEnvelope) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.done <- topic
	return nil
}

type voteCastRecorder struct {
	notices chan ports.VoteCastNotice
	err     error
}

func (r *voteCastRecorder) NotifyVoteCast(_ context.Context, notice ports.VoteCastNotice) error {
	r.notices <- notice
	return r.err
}

type recordingNotifier struct {
	sent []ports.Notification
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, notification ports.Notification) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	n.sent = append(n.sent, notification)
	return fmt.Sprintf("msg-%d", len(n.sent)), nil
}

type recordingMentions struct {
	calls [][]string
	err   error
}

func (m *recordingMentions) RecordMentions(_ context.Context, creatorID string, targetIDs []string) error {
	m.calls = append(m.calls, append([]string{creatorID}, targetIDs...))
	return m.err
}
