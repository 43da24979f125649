package numerator

import (
	"context"
	"sync"
	"time"
)

// MemoryGenerator is an in-process Generator.
// Used by the memory storage backend and in unit tests.
type MemoryGenerator struct {
	mu      sync.Mutex
	current map[string]int64
}

// NewMemoryGenerator creates an empty generator.
func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{current: make(map[string]int64)}
}

// GetNextNumber implements Generator. Options are ignored: every call is strict.
func (g *MemoryGenerator) GetNextNumber(_ context.Context, cfg Config, _ *Options, period time.Time) (string, error) {
	key := BuildKey(cfg, period)

	g.mu.Lock()
	defer g.mu.Unlock()

	next := max(g.current[key], FloorBase(cfg)) + 1
	g.current[key] = next
	return Format(cfg, period, next), nil
}

// SetNextNumber implements Generator.
func (g *MemoryGenerator) SetNextNumber(_ context.Context, cfg Config, period time.Time, value int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current[BuildKey(cfg, period)] = value - 1
	return nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MemoryGenerator)(nil)
