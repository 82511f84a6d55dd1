package neo4jdb

import (
	"context"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	t.Setenv("NEO4J_URI", "")
	t.Setenv("NEO4J_MAX_POOL_SIZE", "-3")
	cfg := ConfigFromEnv().withDefaults()
	if cfg.User != "neo4j" || cfg.MaxPoolSize != 50 || cfg.Timeout != 10*time.Second {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestDisabledClient(t *testing.T) {
	t.Setenv("NEO4J_URI", "")
	c, err := NewFromEnv(nil)
	if err != nil || c != nil {
		t.Fatalf("expected (nil, nil) without NEO4J_URI, got %v %v", c, err)
	}
	if c.Enabled() {
		t.Fatalf("nil client must be disabled")
	}
	if err := c.Write(context.Background(), nil, "RETURN 1"); err != nil {
		t.Fatalf("Write on nil client: %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close on nil client: %v", err)
	}
}
