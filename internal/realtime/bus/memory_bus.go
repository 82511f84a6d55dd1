package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/knowledge-backend/internal/realtime"
)

type memoryBus struct {
	mu     sync.RWMutex
	subs   []func(realtime.Signal)
	closed bool
}

func NewMemoryBus() Bus {
	return &memoryBus{}
}

func (b *memoryBus) Publish(_ context.Context, msg realtime.Signal) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("memory bus closed")
	}
	for _, fn := range b.subs {
		fn(msg)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Signal)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("memory bus closed")
	}
	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	b.subs = append(b.subs, func(m realtime.Signal) {
		select {
		case <-done:
			return
		default:
		}
		onMsg(m)
	})
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
	return nil
}
