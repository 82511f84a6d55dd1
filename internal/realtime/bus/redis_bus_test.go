package bus

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/knowledge-backend/internal/platform/logger"
	"github.com/yungbote/knowledge-backend/internal/realtime"
)

func TestRedisChannelNaming(t *testing.T) {
	cfg := RedisConfig{ChannelPrefix: "kb"}
	if got := cfg.channel(realtime.SignalMerged); got != "kb.merged" {
		t.Fatalf("channel: %s", got)
	}
	if got := cfg.pattern(); got != "kb.*" {
		t.Fatalf("pattern: %s", got)
	}
}

func TestDecodeSignal(t *testing.T) {
	id := uuid.New()
	msg, err := decodeSignal(`{"type":"published","knowledge_id":"` + id.String() + `"}`)
	if err != nil || msg.Type != realtime.SignalPublished || msg.KnowledgeID != id {
		t.Fatalf("decode: %+v %v", msg, err)
	}
	if _, err := decodeSignal(`{"knowledge_id":"` + id.String() + `"}`); err == nil {
		t.Fatalf("typeless signal should be rejected")
	}
	if _, err := decodeSignal(`not json`); err == nil {
		t.Fatalf("garbage should be rejected")
	}
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	if _, err := NewRedisBus(logger.Nop(), RedisConfig{}); err == nil {
		t.Fatalf("expected error without addr")
	}
}

func TestNewFromEnvFallsBackToMemory(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	b, err := NewFromEnv(logger.Nop())
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	defer b.Close()
	if _, ok := b.(*memoryBus); !ok {
		t.Fatalf("expected memory bus, got %T", b)
	}
}
