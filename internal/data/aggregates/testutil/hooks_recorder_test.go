package testutil

import (
	"sync"
	"testing"
	"time"
)

func TestHooksRecorderStatuses(t *testing.T) {
	h := &HooksRecorder{}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := "success"
			if i%2 == 0 {
				status = "conflict"
				h.IncConflict("knowledge.publish")
			}
			h.ObserveOperation("knowledge.publish", status, time.Millisecond)
		}(i)
	}
	wg.Wait()
	h.ObserveOperation("knowledge.bind", "success", 0)

	got := h.Statuses("knowledge.publish")
	if got["success"] != 5 || got["conflict"] != 5 || len(h.Conflicts) != 5 {
		t.Fatalf("statuses=%v conflicts=%d", got, len(h.Conflicts))
	}
	if len(h.Retries) != 0 {
		t.Fatalf("retries: %v", h.Retries)
	}
}
