package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	mentionranker "sheepyard/contexts/community/mention-ranker"
	rankerdiscord "sheepyard/contexts/community/mention-ranker/adapters/discord"
	rankerpostgres "sheepyard/contexts/community/mention-ranker/adapters/postgres"
	rankerports "sheepyard/contexts/community/mention-ranker/ports"
	eventpolls "sheepyard/contexts/scheduling/event-polls"
	pollsdiscord "sheepyard/contexts/scheduling/event-polls/adapters/discord"
	eventsadapter "sheepyard/contexts/scheduling/event-polls/adapters/events"
	pollspostgres "sheepyard/contexts/scheduling/event-polls/adapters/postgres"
	"sheepyard/contexts/scheduling/event-polls/ports"
	"sheepyard/internal/platform/config"
	"sheepyard/internal/platform/db"
	"sheepyard/internal/platform/discord"
	"sheepyard/internal/platform/lease"
	"sheepyard/internal/platform/messaging"
	"sheepyard/internal/platform/metrics"
)

const (
	moduleName = "internal/app/bootstrap"

	livePushTimeout   = 5 * time.Second
	directorySyncTime = 10 * time.Second
)

// runtime holds the infrastructure and modules shared by the api and worker
// processes.
type runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	postgres *db.Postgres
	bus      *messaging.Bus
	lease    ports.TickLease
	redis    *lease.Redis
	metrics  *metrics.Metrics
	polls    eventpolls.Module
	mentions mentionranker.Module
}

func buildRuntime(ctx context.Context, cfg config.Config, process string) (*runtime, error) {
	logger := NewLogger(cfg, process, os.Stdout)
	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		lease:   lease.Local{},
		metrics: metrics.New(),
	}

	bus, err := messaging.NewBus(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}
	rt.bus = bus

	if url := strings.TrimSpace(cfg.RedisURL); url != "" {
		redisLease, err := lease.NewRedis(ctx, url)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.redis = redisLease
		rt.lease = redisLease
	}

	chat, err := discord.New(cfg.DiscordBotToken, cfg.DiscordGuildID, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if !chat.Configured() {
		logger.Warn("discord bot token missing, notifications disabled",
			"event", "bootstrap_discord_unconfigured",
			"module", moduleName,
			"layer", "platform",
		)
	}

	var directory rankerports.Directory
	if chat.Configured() {
		directory = rankerdiscord.Directory{Client: chat}
	}
	rankerDeps := mentionranker.Dependencies{
		Directory:   directory,
		Metrics:     rt.metrics,
		Clock:       pollspostgres.SystemClock{},
		IDGen:       pollspostgres.UUIDGenerator{},
		Group:       cfg.DiscordGuildID,
		SyncTimeout: directorySyncTime,
		Logger:      logger,
	}

	pollDeps := eventpolls.Dependencies{
		Publisher:         bus,
		Subscriber:        bus,
		Notifier:          pollsdiscord.Notifier{Client: chat, Clock: pollspostgres.SystemClock{}},
		VoteCast:          eventsadapter.VoteCastPublisher{Publisher: bus, IDGen: pollspostgres.UUIDGenerator{}},
		Lease:             rt.lease,
		Random:            pollspostgres.RandomSource{},
		Metrics:           rt.metrics,
		Clock:             pollspostgres.SystemClock{},
		IDGen:             pollspostgres.UUIDGenerator{},
		MaxInstances:      cfg.RecurrenceMaxInstances,
		GraceWindow:       cfg.DeadlineGraceWindow,
		TickInterval:      cfg.DeadlineTickInterval,
		FrontendBase:      cfg.FrontendURL,
		AllowedOrigins:    cfg.AllowedOrigins,
		LiveQueueSize:     cfg.LiveQueueSize,
		LivePushTimeout:   livePushTimeout,
		LiveConsumerGroup: liveConsumerGroup(cfg.ServiceName),
		VoteNotifyTimeout: cfg.VoteNotifyTimeout,
		Logger:            logger,
	}

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		logger.Warn("postgres dsn missing, using in-memory storage",
			"event", "bootstrap_memory_storage",
			"module", moduleName,
			"layer", "platform",
		)
		rt.mentions = mentionranker.NewInMemoryModule(rankerDeps)
		pollDeps.Mentions = rt.mentions
		rt.polls = eventpolls.NewInMemoryModule(pollDeps)
		return rt, nil
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.postgres = pg

	pollRepo := pollspostgres.NewRepository(pg.DB, logger)
	rankerRepo := rankerpostgres.NewRepository(pg.DB, logger)
	if cfg.AutoMigrate {
		if err := pg.Migrate(ctx, pollRepo, rankerRepo); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	rankerDeps.Mentions = rankerRepo
	rankerDeps.Members = rankerRepo
	rt.mentions = mentionranker.NewModule(rankerDeps)

	pollDeps.Polls = pollRepo
	pollDeps.Snapshots = pollRepo
	pollDeps.Votes = pollRepo
	pollDeps.Members = pollRepo
	pollDeps.Deadlines = pollRepo
	pollDeps.Mentions = rt.mentions
	rt.polls = eventpolls.NewModule(pollDeps)
	return rt, nil
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.bus != nil {
		if err := rt.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bus: %w", err))
		}
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if rt.postgres != nil {
		if err := rt.postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}

// liveConsumerGroup is unique per replica so every api process sees every
// poll state change and can refresh its own live subscribers.
func liveConsumerGroup(service string) string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "local"
	}
	return fmt.Sprintf("%s-live-%s-%d", strings.TrimSpace(service), host, os.Getpid())
}
