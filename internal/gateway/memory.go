package gateway

import (
	"context"
	"sort"
	"sync"

	"fintrack-sync/internal/model"
)

// MemoryGateway is an in-process Gateway for development and tests.
// Documents can be seeded from a YAML fixture and individual paths can be
// made to fail.
type MemoryGateway struct {
	mu       sync.RWMutex
	docs     map[string]map[string]any
	failures map[string]error
	calls    map[string]int
}

// NewMemoryGateway creates an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		docs:     make(map[string]map[string]any),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// LoadSeedFile reads documents from a YAML fixture.
func (g *MemoryGateway) LoadSeedFile(path string) (int, error) {
	docs, err := ReadSeedFile(path)
	if err != nil {
		return 0, err
	}
	return Seed(context.Background(), g, docs)
}

// LoadSeed reads documents from YAML bytes.
func (g *MemoryGateway) LoadSeed(raw []byte) (int, error) {
	docs, err := ParseSeed(raw)
	if err != nil {
		return 0, err
	}
	return Seed(context.Background(), g, docs)
}

// Set stores a document at path.
func (g *MemoryGateway) Set(path string, data map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.docs[path] = map[string]any(model.Document(data).Clone())
}

// Put stores a document at path. It never fails.
func (g *MemoryGateway) Put(_ context.Context, path string, data map[string]any) error {
	g.Set(path, data)
	return nil
}

// FailOn makes every operation on path return err. A nil err clears it.
func (g *MemoryGateway) FailOn(path string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err == nil {
		delete(g.failures, path)
		return
	}
	g.failures[path] = err
}

// Calls returns how many operations were issued against path.
func (g *MemoryGateway) Calls(path string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.calls[path]
}

// begin records a call and returns the injected failure, if any.
func (g *MemoryGateway) begin(path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls[path]++
	return g.failures[path]
}

// GetDocument reads one document.
func (g *MemoryGateway) GetDocument(ctx context.Context, path string) (bool, map[string]any, error) {
	if err := g.begin(path); err != nil {
		return false, nil, err
	}
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	data, ok := g.docs[path]
	if !ok {
		return false, nil, nil
	}
	return true, map[string]any(model.Document(data).Clone()), nil
}

// QueryRange returns documents of a collection with field in [lower, upper].
func (g *MemoryGateway) QueryRange(ctx context.Context, collectionPath, field string, lower, upper int64) ([]map[string]any, error) {
	return g.query(ctx, collectionPath, func(doc map[string]any) bool {
		v, ok := numericField(doc[field])
		return ok && v >= lower && v <= upper
	})
}

// QueryAll returns every document of a collection.
func (g *MemoryGateway) QueryAll(ctx context.Context, collectionPath string) ([]map[string]any, error) {
	return g.query(ctx, collectionPath, func(map[string]any) bool { return true })
}

func (g *MemoryGateway) query(ctx context.Context, collectionPath string, match func(map[string]any) bool) ([]map[string]any, error) {
	if err := g.begin(collectionPath); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	paths := make([]string, 0)
	for path, doc := range g.docs {
		if ParentPath(path) == collectionPath && match(doc) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	results := make([]map[string]any, 0, len(paths))
	for _, path := range paths {
		results = append(results, map[string]any(model.Document(g.docs[path]).Clone()))
	}
	return results, nil
}

var (
	_ Gateway = (*MemoryGateway)(nil)
	_ Writer  = (*MemoryGateway)(nil)
)
