package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "sheepyard/contexts/scheduling/event-polls/application"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

const (
	moduleName = "scheduling/event-polls"

	defaultQueueSize     = 16
	defaultPushTimeout   = 10 * time.Second
	defaultSnapshotLimit = 5 * time.Second
)

// ErrHubStopped is returned once Run has exited.
var ErrHubStopped = errors.New("broadcast hub stopped")

type subscriber struct {
	pollID string
	conn   ports.LiveConn
	queue  chan entities.PollSnapshot
}

type subscribeRequest struct {
	pollID string
	conn   ports.LiveConn
	reply  chan error
}

type unsubscribeRequest struct {
	pollID string
	conn   ports.LiveConn
	reason string
}

type countRequest struct {
	pollID string
	reply  chan int
}

// Hub fans poll snapshots out to live connections. A single goroutine (Run)
// owns the subscription map; every connection has its own queue and writer
// so pushes to one connection keep publish order and a slow or broken
// connection never delays the others.
type Hub struct {
	snapshots   ports.SnapshotReader
	metrics     ports.Metrics
	logger      *slog.Logger
	queueSize   int
	pushTimeout time.Duration

	subscribe   chan subscribeRequest
	unsubscribe chan unsubscribeRequest
	publish     chan string
	count       chan countRequest
	done        chan struct{}
}

type Options struct {
	QueueSize   int
	PushTimeout time.Duration
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func NewHub(snapshots ports.SnapshotReader, opts Options) *Hub {
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	pushTimeout := opts.PushTimeout
	if pushTimeout <= 0 {
		pushTimeout = defaultPushTimeout
	}
	return &Hub{
		snapshots:   snapshots,
		metrics:     opts.Metrics,
		logger:      application.ResolveLogger(opts.Logger),
		queueSize:   queueSize,
		pushTimeout: pushTimeout,
		subscribe:   make(chan subscribeRequest),
		unsubscribe: make(chan unsubscribeRequest),
		publish:     make(chan string, 256),
		count:       make(chan countRequest),
		done:        make(chan struct{}),
	}
}

// Run processes hub requests until ctx is cancelled, then closes every
// remaining connection.
func (h *Hub) Run(ctx context.Context) {
	subs := make(map[string]map[ports.LiveConn]*subscriber)
	defer func() {
		close(h.done)
		for _, pollSubs := range subs {
			for _, sub := range pollSubs {
				h.detach(sub, "server shutting down")
			}
		}
	}()

	h.logger.Info("broadcast hub started",
		"event", "event_polls_hub_started",
		"module", moduleName,
		"layer", "application",
	)

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-h.subscribe:
			req.reply <- h.add(ctx, subs, req)

		case req := <-h.unsubscribe:
			h.remove(subs, req.pollID, req.conn, req.reason)

		case req := <-h.count:
			req.reply <- len(subs[req.pollID])

		case pollID := <-h.publish:
			h.fanOut(ctx, subs, pollID)
		}
	}
}

// Subscribe attaches conn to pollID. The current snapshot is queued as the
// connection's first message, ahead of any later publish.
func (h *Hub) Subscribe(ctx context.Context, pollID string, conn ports.LiveConn) error {
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return domainerrors.ErrPollNotFound
	}
	req := subscribeRequest{pollID: pollID, conn: conn, reply: make(chan error, 1)}
	select {
	case h.subscribe <- req:
		return <-req.reply
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Unsubscribe(ctx context.Context, pollID string, conn ports.LiveConn) {
	select {
	case h.unsubscribe <- unsubscribeRequest{pollID: strings.TrimSpace(pollID), conn: conn, reason: "unsubscribed"}:
	case <-h.done:
	case <-ctx.Done():
	}
}

// Publish schedules a fresh snapshot of pollID for every subscriber.
func (h *Hub) Publish(ctx context.Context, pollID string) error {
	select {
	case h.publish <- strings.TrimSpace(pollID):
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) SubscriberCount(ctx context.Context, pollID string) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.count <- countRequest{pollID: strings.TrimSpace(pollID), reply: reply}:
	case <-h.done:
		return 0, ErrHubStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return <-reply, nil
}

func (h *Hub) add(ctx context.Context, subs map[string]map[ports.LiveConn]*subscriber, req subscribeRequest) error {
	if _, exists := subs[req.pollID][req.conn]; exists {
		return nil
	}
	readCtx, cancel := context.WithTimeout(ctx, defaultSnapshotLimit)
	snapshot, err := h.snapshots.GetPollSnapshot(readCtx, req.pollID)
	cancel()
	if err != nil {
		return err
	}

	pollSubs := subs[req.pollID]
	if pollSubs == nil {
		pollSubs = make(map[ports.LiveConn]*subscriber)
		subs[req.pollID] = pollSubs
	}
	sub := &subscriber{
		pollID: req.pollID,
		conn:   req.conn,
		queue:  make(chan entities.PollSnapshot, h.queueSize),
	}
	sub.queue <- snapshot
	pollSubs[req.conn] = sub
	go h.write(ctx, sub)
	return nil
}

func (h *Hub) fanOut(ctx context.Context, subs map[string]map[ports.LiveConn]*subscriber, pollID string) {
	pollSubs := subs[pollID]
	if len(pollSubs) == 0 {
		return
	}

	readCtx, cancel := context.WithTimeout(ctx, defaultSnapshotLimit)
	snapshot, err := h.snapshots.GetPollSnapshot(readCtx, pollID)
	cancel()
	if err != nil {
		if errors.Is(err, domainerrors.ErrPollNotFound) {
			for conn := range pollSubs {
				h.remove(subs, pollID, conn, "poll deleted")
			}
			return
		}
		h.logger.Error("broadcast snapshot read failed",
			"event", "event_polls_hub_snapshot_failed",
			"module", moduleName,
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return
	}

	for conn, sub := range pollSubs {
		select {
		case sub.queue <- snapshot:
		default:
			h.logger.Warn("dropping slow live subscriber",
				"event", "event_polls_hub_subscriber_slow",
				"module", moduleName,
				"layer", "application",
				"poll_id", pollID,
			)
			h.observe("dropped")
			h.remove(subs, pollID, conn, "subscriber too slow")
		}
	}
}

func (h *Hub) remove(subs map[string]map[ports.LiveConn]*subscriber, pollID string, conn ports.LiveConn, reason string) {
	pollSubs := subs[pollID]
	sub, ok := pollSubs[conn]
	if !ok {
		return
	}
	delete(pollSubs, conn)
	if len(pollSubs) == 0 {
		delete(subs, pollID)
	}
	h.detach(sub, reason)
}

func (h *Hub) detach(sub *subscriber, reason string) {
	close(sub.queue)
	go sub.conn.Close(reason)
}

// write delivers queued snapshots in order. After a failed push it keeps
// draining until the actor closes the queue.
func (h *Hub) write(ctx context.Context, sub *subscriber) {
	for snapshot := range sub.queue {
		pushCtx, cancel := context.WithTimeout(ctx, h.pushTimeout)
		err := sub.conn.Push(pushCtx, snapshot)
		cancel()
		if err == nil {
			h.observe("delivered")
			continue
		}

		h.observe("failed")
		h.logger.Warn("live push failed, dropping subscriber",
			"event", "event_polls_hub_push_failed",
			"module", moduleName,
			"layer", "application",
			"poll_id", sub.pollID,
			"error", err.Error(),
		)
		select {
		case h.unsubscribe <- unsubscribeRequest{pollID: sub.pollID, conn: sub.conn, reason: "push failed"}:
		case <-h.done:
		}
		for range sub.queue {
		}
		return
	}
}

func (h *Hub) observe(result string) {
	if h.metrics != nil {
		h.metrics.BroadcastPushed(result)
	}
}
