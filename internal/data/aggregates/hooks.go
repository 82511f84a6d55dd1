package aggregates

import (
	"time"

	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

// Hooks receives one ObserveOperation per aggregate write, plus a conflict or
// retry tick when the write failed with that code.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

// NewObservabilityHooks reports to Prometheus. Nil metrics yields no-op hooks.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	metrics.SeedAggregateOperations(domainagg.Operations())
	return metricsHooks{metrics: metrics}
}

type metricsHooks struct {
	metrics *observability.Metrics
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(name, status, dur)
}
func (h metricsHooks) IncConflict(name string) { h.metrics.IncAggregateConflict(name) }
func (h metricsHooks) IncRetry(name string)    { h.metrics.IncAggregateRetry(name) }

// NewLogHooks logs contention at debug. Slug probing and merge races produce
// conflicts in normal operation, so nothing here is louder than debug.
func NewLogHooks(log *logger.Logger) Hooks {
	if log == nil {
		return noopHooks{}
	}
	return logHooks{log: log.With("component", "aggregate")}
}

type logHooks struct {
	log *logger.Logger
}

func (h logHooks) ObserveOperation(string, string, time.Duration) {}
func (h logHooks) IncConflict(name string)                        { h.log.Debug("aggregate conflict", "operation", name) }
func (h logHooks) IncRetry(name string)                           { h.log.Debug("aggregate retryable failure", "operation", name) }

// ChainHooks fans every event out to each non-nil hook in order.
func ChainHooks(hooks ...Hooks) Hooks {
	out := make(chainHooks, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

type chainHooks []Hooks

func (c chainHooks) ObserveOperation(name, status string, dur time.Duration) {
	for _, h := range c {
		h.ObserveOperation(name, status, dur)
	}
}

func (c chainHooks) IncConflict(name string) {
	for _, h := range c {
		h.IncConflict(name)
	}
}

func (c chainHooks) IncRetry(name string) {
	for _, h := range c {
		h.IncRetry(name)
	}
}
