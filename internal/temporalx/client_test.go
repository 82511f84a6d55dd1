package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestRetryUntilSuccess(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), nil, "test", time.Millisecond, 2*time.Millisecond, time.Second, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("unavailable")
		}
		return 42, nil
	})
	if err != nil || got != 42 || calls != 3 {
		t.Fatalf("got=%d err=%v calls=%d", got, err, calls)
	}
}

func TestRetryStopsOnPermanentAndSingleShot(t *testing.T) {
	fatal := errors.New("bad cert")
	calls := 0
	_, err := Retry(context.Background(), nil, "test", time.Millisecond, time.Millisecond, time.Second, func() (int, error) {
		calls++
		return 0, backoff.Permanent(fatal)
	})
	if !errors.Is(err, fatal) || calls != 1 {
		t.Fatalf("permanent: err=%v calls=%d", err, calls)
	}

	calls = 0
	_, err = Retry(context.Background(), nil, "test", time.Millisecond, time.Millisecond, 0, func() (int, error) {
		calls++
		return 0, errors.New("down")
	})
	if err == nil || calls != 1 {
		t.Fatalf("zero max wait should try once: err=%v calls=%d", err, calls)
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) || !isRetryableRPC(context.DeadlineExceeded) {
		t.Fatalf("unavailable and deadline should retry")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) || isRetryableRPC(errors.New("plain")) {
		t.Fatalf("permission denied and plain errors are terminal")
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	cfg := LoadConfig()
	if cfg.Enabled() {
		t.Fatalf("config should be disabled")
	}
	c, err := NewClient(context.Background(), nil, cfg)
	if err != nil || c != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", c, err)
	}
	if cfg.Namespace != "knowledge" || cfg.TaskQueue != "knowledge" {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoadTLSConfigRequiresKeyPair(t *testing.T) {
	if _, err := loadTLSConfig(Config{ClientCAPath: "/nonexistent"}); err == nil {
		t.Fatalf("expected error without cert and key")
	}
}
