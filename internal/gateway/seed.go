package gateway

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Writer is implemented by gateways that accept document upserts.
type Writer interface {
	Put(ctx context.Context, path string, data map[string]any) error
}

// seedFile is the YAML fixture layout:
//
//	documents:
//	  users/u1:
//	    name: Ada
//	  users/u1/income/i1:
//	    amount: 1200
//	    date: 1704067200000
type seedFile struct {
	Documents map[string]map[string]any `yaml:"documents"`
}

// ParseSeed decodes a YAML fixture into documents keyed by path.
func ParseSeed(raw []byte) (map[string]map[string]any, error) {
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return seed.Documents, nil
}

// ReadSeedFile reads and decodes a YAML fixture.
func ReadSeedFile(path string) (map[string]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(raw)
}

// Seed writes docs to w in path order and returns how many were written.
// It stops at the first failed write.
func Seed(ctx context.Context, w Writer, docs map[string]map[string]any) (int, error) {
	paths := make([]string, 0, len(docs))
	for p := range docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for i, p := range paths {
		if err := w.Put(ctx, p, docs[p]); err != nil {
			return i, err
		}
	}
	return len(paths), nil
}
