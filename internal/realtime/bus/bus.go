package bus

import (
	"context"

	"github.com/yungbote/knowledge-backend/internal/platform/logger"
	"github.com/yungbote/knowledge-backend/internal/realtime"
)

// Bus fans resolution signals out to forwarders, in process or across
// replicas through Redis.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Signal) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Signal)) error
	Close() error
}

// NewFromEnv returns a Redis bus when REDIS_ADDR is set and an in-process bus otherwise.
func NewFromEnv(log *logger.Logger) (Bus, error) {
	cfg := RedisConfigFromEnv()
	if cfg.Addr == "" {
		return NewMemoryBus(), nil
	}
	return NewRedisBus(log, cfg)
}
