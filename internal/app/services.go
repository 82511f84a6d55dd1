package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/knowledge-backend/internal/data/aggregates"
	"github.com/yungbote/knowledge-backend/internal/data/graph"
	"github.com/yungbote/knowledge-backend/internal/modules/knowledge"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/isbndb"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
	"github.com/yungbote/knowledge-backend/internal/platform/neo4jdb"
	"github.com/yungbote/knowledge-backend/internal/realtime/bus"
	"github.com/yungbote/knowledge-backend/internal/temporalx"
	"github.com/yungbote/knowledge-backend/internal/temporalx/resolverun"
)

type Clients struct {
	Lookup   isbndb.Client
	Signals  bus.Bus
	Neo4j    *neo4jdb.Client
	Graph    *graph.Mirror
	Temporal temporalsdkclient.Client
}

func wireUsecases(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, metrics *observability.Metrics) knowledge.Usecases {
	log.Info("Wiring usecases...")
	agg := aggregates.NewKnowledgeAggregate(aggregates.KnowledgeAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.ChainHooks(aggregates.NewObservabilityHooks(metrics), aggregates.NewLogHooks(log)),
		},
		Knowledge:   r.Knowledge,
		Connections: r.Connection,
		Media:       r.Media,
		Aliases:     r.SlugAlias,
	})
	uc := knowledge.New(knowledge.UsecasesDeps{
		Log:         log,
		Users:       r.User,
		Books:       r.Book,
		Knowledge:   r.Knowledge,
		Connections: r.Connection,
		Media:       r.Media,
		Aliases:     r.SlugAlias,
		Aggregate:   agg,
		Lookup:      c.Lookup,
		Signals:     c.Signals,
		Graph:       c.Graph,
		Metrics:     metrics,
		Config:      knowledge.ConfigFromEnv(),
	})

	// The goroutine dispatcher holds a copy of uc without a dispatcher, so
	// background resolves never re-dispatch.
	if c.Temporal != nil {
		log.Info("Resolve dispatch via Temporal")
		return uc.WithDispatcher(resolverun.NewTemporalDispatcher(c.Temporal, cfg.Temporal.TaskQueue))
	}
	log.Info("Resolve dispatch via in-process goroutines", "timeout", cfg.ResolveTimeout.String())
	return uc.WithDispatcher(resolverun.NewGoroutineDispatcher(log, uc, cfg.ResolveTimeout))
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	lookup, err := isbndb.New(log, isbndb.ConfigFromEnv())
	if err != nil {
		return out, fmt.Errorf("init isbndb client: %w", err)
	}
	out.Lookup = lookup

	signals, err := bus.NewFromEnv(log)
	if err != nil {
		return out, fmt.Errorf("init signal bus: %w", err)
	}
	out.Signals = signals

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		out.close(log)
		return out, err
	}
	if neo != nil {
		out.Neo4j = neo
		out.Graph = graph.NewMirror(neo, log)
	}

	tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
	if err != nil {
		out.close(log)
		return out, fmt.Errorf("init temporal client: %w", err)
	}
	out.Temporal = tc
	return out, nil
}

func (c Clients) close(log *logger.Logger) {
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Neo4j != nil {
		if err := c.Neo4j.Close(context.Background()); err != nil {
			log.Warn("neo4j close failed", "error", err)
		}
	}
	if c.Signals != nil {
		if err := c.Signals.Close(); err != nil {
			log.Warn("signal bus close failed", "error", err)
		}
	}
}
