package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/knowledge-backend/internal/data/aggregates"
)

// HooksRecorder keeps every hook event. Read the slices directly once the
// code under test has returned, or use Statuses while it is still running.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []string
	Retries    []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	h.Operations = append(h.Operations, OperationEvent{Name: name, Status: status, Duration: dur})
	h.mu.Unlock()
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	h.Conflicts = append(h.Conflicts, name)
	h.mu.Unlock()
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	h.Retries = append(h.Retries, name)
	h.mu.Unlock()
}

// Statuses counts recorded operations named name by status.
func (h *HooksRecorder) Statuses(name string) map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := map[string]int{}
	for _, op := range h.Operations {
		if op.Name == name {
			out[op.Status]++
		}
	}
	return out
}
