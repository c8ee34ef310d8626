package analytics

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Engine computes and memoizes dataset derivations. The cache holds
// results for a single dataset version at a time; a version change evicts
// everything, so a replaced dataset can never serve stale results.
type Engine struct {
	logger *slog.Logger

	mu      sync.Mutex
	version uuid.UUID
	entries map[string]interface{}
	group   singleflight.Group
}

// NewEngine creates an analytics engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:  logger.With(slog.String("component", "analytics")),
		entries: make(map[string]interface{}),
	}
}

// memo returns the cached value for key under the given dataset version,
// computing it at most once per key even under concurrent callers.
func (e *Engine) memo(version uuid.UUID, key string, compute func() (interface{}, error)) (interface{}, error) {
	e.mu.Lock()
	if e.version != version {
		e.version = version
		e.entries = make(map[string]interface{})
	}
	if v, ok := e.entries[key]; ok {
		e.mu.Unlock()
		return v, nil
	}
	e.mu.Unlock()

	v, err, _ := e.group.Do(version.String()+"|"+key, func() (interface{}, error) {
		return compute()
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.version == version {
		e.entries[key] = v
	}
	e.mu.Unlock()
	return v, nil
}
