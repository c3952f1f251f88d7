package numerator

import (
	"context"
	"sync"
	"time"
)

// InMemory is a process-local Generator. Numbers restart with the process.
type InMemory struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewInMemory creates an empty in-memory generator.
func NewInMemory() *InMemory {
	return &InMemory{counters: make(map[string]int64)}
}

// GetNextNumber implements Generator. Strategy options are ignored.
func (g *InMemory) GetNextNumber(_ context.Context, cfg Config, _ *Options, period time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := Key(cfg, period)
	g.counters[key]++
	return Format(cfg, period, g.counters[key]), nil
}

// SetNextNumber implements Generator.
func (g *InMemory) SetNextNumber(_ context.Context, cfg Config, period time.Time, value int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counters[Key(cfg, period)] = value
	return nil
}

var _ Generator = (*InMemory)(nil)
