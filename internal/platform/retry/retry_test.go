package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

type hintedErr struct{ d time.Duration }

func (e hintedErr) Error() string              { return "hinted" }
func (e hintedErr) RetryDelay() time.Duration { return e.d }

func recordingSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	var waits []time.Duration
	calls := 0
	err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Backoff:     func(attempt int) time.Duration { return time.Duration(attempt) * time.Millisecond },
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
		Sleep:       recordingSleep(&waits),
	}, func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls: want=3 got=%d", calls)
	}
	if len(waits) != 2 || waits[0] != time.Millisecond || waits[1] != 2*time.Millisecond {
		t.Fatalf("waits: %v", waits)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
	}, func(context.Context, int) error {
		calls++
		return errFatal
	})
	if !errors.Is(err, errFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if IsExhausted(err) {
		t.Fatalf("non-retryable error must not be reported as exhausted")
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestDoReportsExhaustion(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3, Backoff: NoDelay}, func(context.Context, int) error {
		calls++
		return errTransient
	})
	if !IsExhausted(err) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
	if !errors.Is(err, errTransient) {
		t.Fatalf("exhausted error should unwrap to last error")
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) || ex.Attempts != 3 || calls != 3 {
		t.Fatalf("attempts: err=%v calls=%d", err, calls)
	}
}

func TestDoHonorsDelayHint(t *testing.T) {
	var waits []time.Duration
	_ = Do(context.Background(), Policy{
		MaxAttempts: 2,
		Backoff:     func(int) time.Duration { return time.Second },
		Sleep:       recordingSleep(&waits),
	}, func(context.Context, int) error {
		return hintedErr{d: 7 * time.Second}
	})
	if len(waits) != 1 || waits[0] != 7*time.Second {
		t.Fatalf("waits: %v", waits)
	}
}

func TestDoStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{MaxAttempts: 10, Backoff: NoDelay}, func(context.Context, int) error {
		calls++
		cancel()
		return errTransient
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestExponentialIsBoundedAndGrows(t *testing.T) {
	backoff := Exponential(100*time.Millisecond, time.Second)
	for attempt, want := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 400 * time.Millisecond, 10: time.Second} {
		got := backoff(attempt)
		low := time.Duration(float64(want) * 0.79)
		high := time.Duration(float64(want) * 1.21)
		if got < low || got > high {
			t.Fatalf("attempt %d: want ~%s got %s", attempt, want, got)
		}
	}
}
