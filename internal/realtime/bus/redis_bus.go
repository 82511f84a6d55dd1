package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/knowledge-backend/internal/platform/envutil"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
	"github.com/yungbote/knowledge-backend/internal/realtime"
)

// RedisConfig addresses the pub/sub server. Signals go to
// "<ChannelPrefix>.<type>" so consumers can subscribe to one kind.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

func RedisConfigFromEnv() RedisConfig {
	return RedisConfig{
		Addr:          envutil.String("REDIS_ADDR", ""),
		Password:      envutil.String("REDIS_PASSWORD", ""),
		DB:            envutil.Int("REDIS_DB", 0),
		ChannelPrefix: envutil.String("REDIS_CHANNEL", "knowledge-signals"),
	}
}

func (c RedisConfig) channel(t realtime.SignalType) string {
	return c.ChannelPrefix + "." + string(t)
}

func (c RedisConfig) pattern() string {
	return c.ChannelPrefix + ".*"
}

type redisBus struct {
	log *logger.Logger
	rdb goredis.UniversalClient
	cfg RedisConfig
}

// NewRedisBus dials and pings Redis before returning.
func NewRedisBus(log *logger.Logger, cfg RedisConfig) (Bus, error) {
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("redis bus: missing addr")
	}
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "knowledge-signals"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &redisBus{log: log.With("component", "signal_bus", "channel", cfg.pattern()), rdb: rdb, cfg: cfg}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.Signal) error {
	if msg.Type == "" {
		return fmt.Errorf("redis bus: signal type required")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}
	return b.rdb.Publish(ctx, b.cfg.channel(msg.Type), raw).Err()
}

// StartForwarder subscribes to every signal type and delivers on a
// goroutine until ctx ends. Undecodable payloads are logged and dropped.
func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Signal)) error {
	if onMsg == nil {
		return fmt.Errorf("redis bus: onMsg callback required")
	}
	sub := b.rdb.PSubscribe(ctx, b.cfg.pattern())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				msg, err := decodeSignal(m.Payload)
				if err != nil {
					b.log.Warn("dropping bad signal payload", "redis_channel", m.Channel, "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

func (b *redisBus) Close() error {
	return b.rdb.Close()
}

func decodeSignal(payload string) (realtime.Signal, error) {
	var msg realtime.Signal
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, err
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("signal without type")
	}
	return msg, nil
}
