package eventpolls

import (
	"log/slog"
	"time"

	httpadapter "sheepyard/contexts/scheduling/event-polls/adapters/http"
	icaladapter "sheepyard/contexts/scheduling/event-polls/adapters/ical"
	"sheepyard/contexts/scheduling/event-polls/adapters/memory"
	postgresadapter "sheepyard/contexts/scheduling/event-polls/adapters/postgres"
	"sheepyard/contexts/scheduling/event-polls/adapters/recurrence"
	websocketadapter "sheepyard/contexts/scheduling/event-polls/adapters/websocket"
	"sheepyard/contexts/scheduling/event-polls/application/broadcast"
	"sheepyard/contexts/scheduling/event-polls/application/commands"
	"sheepyard/contexts/scheduling/event-polls/application/queries"
	"sheepyard/contexts/scheduling/event-polls/application/workers"
	"sheepyard/contexts/scheduling/event-polls/ports"
)

type Module struct {
	Handler    httpadapter.Handler
	Live       websocketadapter.Handler
	Hub        *broadcast.Hub
	Deadlines  workers.DeadlineScheduler
	LiveEvents workers.StateChangeConsumer
	Store      *memory.Store
}

type Dependencies struct {
	Polls     ports.PollRepository
	Snapshots ports.SnapshotReader
	Votes     ports.VoteRepository
	Members   ports.MemberRepository
	Deadlines ports.DeadlineRepository

	Publisher  ports.EventPublisher
	Subscriber ports.EventSubscriber
	Notifier   ports.Notifier
	VoteCast   ports.VoteCastNotifier
	Mentions   ports.MentionRecorder
	Lease      ports.TickLease
	Random     ports.RandomSource
	Metrics    ports.Metrics
	Clock      ports.Clock
	IDGen      ports.IDGenerator

	MaxInstances      int
	GraceWindow       time.Duration
	TickInterval      time.Duration
	FrontendBase      string
	AllowedOrigins    []string
	LiveQueueSize     int
	LivePushTimeout   time.Duration
	LiveConsumerGroup string
	VoteNotifyTimeout time.Duration
	Logger            *slog.Logger
}

func NewModule(deps Dependencies) Module {
	random := deps.Random
	if random == nil {
		random = postgresadapter.RandomSource{}
	}
	hub := broadcast.NewHub(deps.Snapshots, broadcast.Options{
		QueueSize:   deps.LiveQueueSize,
		PushTimeout: deps.LivePushTimeout,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	})
	pollQueries := queries.PollQueries{
		Polls:        deps.Polls,
		Snapshots:    deps.Snapshots,
		Calendar:     icaladapter.Encoder{},
		FrontendBase: deps.FrontendBase,
	}
	return Module{
		Handler: httpadapter.Handler{
			Polls: commands.PollUseCase{
				Polls:     deps.Polls,
				Expander:  recurrence.Expander{MaxInstances: deps.MaxInstances},
				Publisher: deps.Publisher,
				Clock:     deps.Clock,
				IDGen:     deps.IDGen,
				Logger:    deps.Logger,
			},
			Votes: commands.VoteUseCase{
				Votes:         deps.Votes,
				Publisher:     deps.Publisher,
				Notifier:      deps.VoteCast,
				Metrics:       deps.Metrics,
				Clock:         deps.Clock,
				IDGen:         deps.IDGen,
				NotifyTimeout: deps.VoteNotifyTimeout,
				Logger:        deps.Logger,
			},
			Share: commands.ShareUseCase{
				Snapshots:    deps.Snapshots,
				Members:      deps.Members,
				Notifier:     deps.Notifier,
				Mentions:     deps.Mentions,
				FrontendBase: deps.FrontendBase,
				Logger:       deps.Logger,
			},
			Queries: pollQueries,
			Logger:  deps.Logger,
		},
		Live: websocketadapter.Handler{
			Hub:            hub,
			Snapshots:      deps.Snapshots,
			OriginPatterns: deps.AllowedOrigins,
			Logger:         deps.Logger,
		},
		Hub: hub,
		Deadlines: workers.DeadlineScheduler{
			Deadlines:    deps.Deadlines,
			Snapshots:    deps.Snapshots,
			Members:      deps.Members,
			Notifier:     deps.Notifier,
			Mentions:     deps.Mentions,
			Publisher:    deps.Publisher,
			Lease:        deps.Lease,
			Random:       random,
			Metrics:      deps.Metrics,
			Clock:        deps.Clock,
			IDGen:        deps.IDGen,
			GraceWindow:  deps.GraceWindow,
			TickInterval: deps.TickInterval,
			FrontendBase: deps.FrontendBase,
			Logger:       deps.Logger,
		},
		LiveEvents: workers.StateChangeConsumer{
			Subscriber:    deps.Subscriber,
			Broadcaster:   hub,
			ConsumerGroup: deps.LiveConsumerGroup,
			Logger:        deps.Logger,
		},
	}
}

// NewInMemoryModule wires every repository port to one memory store. Event,
// notifier and mention ports stay as supplied.
func NewInMemoryModule(deps Dependencies) Module {
	store := memory.NewStore()
	deps.Polls = store
	deps.Snapshots = store
	deps.Votes = store
	deps.Members = store
	deps.Deadlines = store
	if deps.Clock == nil {
		deps.Clock = store
	}
	if deps.IDGen == nil {
		deps.IDGen = store
	}
	module := NewModule(deps)
	module.Store = store
	return module
}
