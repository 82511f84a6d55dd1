package knowledge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/knowledge-backend/internal/data/graph"
	"github.com/yungbote/knowledge-backend/internal/data/repos"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/envutil"
	"github.com/yungbote/knowledge-backend/internal/platform/isbndb"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
	"github.com/yungbote/knowledge-backend/internal/realtime/bus"
)

type Config struct {
	// MergeMaxAttempts bounds BindOrMerge retries after a concurrent binder wins.
	MergeMaxAttempts int
	// SlugMaxAttempts is the suffix ceiling before Publish gives up.
	SlugMaxAttempts int
	DefaultPageSize int
	MaxPageSize     int
	// LookupTimeout bounds a shared external lookup. It runs detached from
	// the caller that started it, since other callers may be waiting on it.
	LookupTimeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		MergeMaxAttempts: envutil.Int("MERGE_MAX_ATTEMPTS", 3),
		SlugMaxAttempts:  envutil.Int("SLUG_MAX_ATTEMPTS", 50),
		DefaultPageSize:  envutil.Int("GRAPH_DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:      envutil.Int("GRAPH_MAX_PAGE_SIZE", 100),
		LookupTimeout:    envutil.Seconds("LOOKUP_TIMEOUT_SECONDS", 30*time.Second),
	}
}

func (c Config) withDefaults() Config {
	if c.MergeMaxAttempts < 1 {
		c.MergeMaxAttempts = 3
	}
	if c.SlugMaxAttempts < 1 {
		c.SlugMaxAttempts = 50
	}
	if c.MaxPageSize < 1 {
		c.MaxPageSize = 100
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = 20
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = 30 * time.Second
	}
	return c
}

// Dispatcher schedules Resolve outside the request path.
type Dispatcher interface {
	DispatchResolve(ctx context.Context, knowledgeID uuid.UUID) error
}

type UsecasesDeps struct {
	Log *logger.Logger

	Users       repos.UserRepo
	Books       repos.BookRepo
	Knowledge   repos.KnowledgeRepo
	Connections repos.ConnectionRepo
	Media       repos.MediaAttachmentRepo
	Aliases     repos.SlugAliasRepo

	Aggregate domainagg.KnowledgeAggregate
	Lookup    isbndb.Client

	// Optional collaborators. Nil disables each.
	Signals    bus.Bus
	Graph      *graph.Mirror
	Dispatcher Dispatcher
	Metrics    *observability.Metrics

	Config Config
	Now    func() time.Time
}

type Usecases struct {
	deps   UsecasesDeps
	log    *logger.Logger
	flight *singleflight.Group
}

func New(deps UsecasesDeps) Usecases {
	deps.Config = deps.Config.withDefaults()
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return Usecases{
		deps:   deps,
		log:    deps.Log.With("service", "KnowledgeUsecases"),
		flight: &singleflight.Group{},
	}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	if log != nil {
		u.log = log
	}
	return u
}

// WithDispatcher swaps the resolve dispatcher. Used by app wiring where the
// dispatcher itself needs the usecases.
func (u Usecases) WithDispatcher(d Dispatcher) Usecases {
	u.deps.Dispatcher = d
	return u
}
