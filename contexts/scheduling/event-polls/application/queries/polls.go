package queries

import (
	"context"
	"sort"
	"strings"

	application "sheepyard/contexts/scheduling/event-polls/application"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

// PollQueries serves read-only poll views.
type PollQueries struct {
	Polls        ports.PollRepository
	Snapshots    ports.SnapshotReader
	Calendar     ports.CalendarEncoder
	FrontendBase string
}

func (q PollQueries) GetPoll(ctx context.Context, pollID string) (entities.PollSnapshot, error) {
	return q.Snapshots.GetPollSnapshot(ctx, strings.TrimSpace(pollID))
}

// ListPolls returns polls newest first.
func (q PollQueries) ListPolls(ctx context.Context) ([]entities.Poll, error) {
	polls, err := q.Polls.ListPolls(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(polls, func(i, j int) bool {
		if polls[i].CreatedAt.Equal(polls[j].CreatedAt) {
			return polls[i].PollID < polls[j].PollID
		}
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	return polls, nil
}

// ExportCalendar renders every slot of a poll as an iCalendar document.
func (q PollQueries) ExportCalendar(ctx context.Context, pollID string) ([]byte, error) {
	snapshot, err := q.Snapshots.GetPollSnapshot(ctx, strings.TrimSpace(pollID))
	if err != nil {
		return nil, err
	}
	return q.Calendar.EncodeCalendar(snapshot, application.EventURL(q.FrontendBase, snapshot.Poll.PollID))
}
