package mentionranker

import (
	"context"
	"log/slog"
	"time"

	httpadapter "sheepyard/contexts/community/mention-ranker/adapters/http"
	"sheepyard/contexts/community/mention-ranker/adapters/memory"
	"sheepyard/contexts/community/mention-ranker/application"
	"sheepyard/contexts/community/mention-ranker/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Mentions    ports.MentionRepository
	Members     ports.MemberRepository
	Directory   ports.Directory
	Metrics     ports.Metrics
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Group       string
	SyncTimeout time.Duration
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Mentions:    deps.Mentions,
		Members:     deps.Members,
		Directory:   deps.Directory,
		Metrics:     deps.Metrics,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Group:       deps.Group,
		SyncTimeout: deps.SyncTimeout,
		Logger:      deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

func NewInMemoryModule(deps Dependencies) Module {
	store := memory.NewStore()
	deps.Mentions = store
	deps.Members = store
	module := NewModule(deps)
	module.Store = store
	return module
}

// RecordMentions lets other contexts feed mentions without importing the
// application package.
func (m Module) RecordMentions(ctx context.Context, creatorID string, targetIDs []string) error {
	return m.Service.RecordMentions(ctx, creatorID, targetIDs)
}
