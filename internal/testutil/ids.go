// Package testutil provides deterministic helpers for tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable entity ids for tests.
//
// Production code uses entity.NewID (UUIDv7); tests that assert on trie
// structure or golden output need stable ids instead.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequentialIDs creates a generator producing "<prefix>-0001",
// "<prefix>-0002", and so on.
func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next id in the sequence.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%04d", g.prefix, g.next)
}

// Batch returns the next n ids in order.
func (g *SequentialIDs) Batch(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = g.Next()
	}
	return ids
}
