// SPDX-License-Identifier: MIT

// Package store implements the multi-column memory-mapped key-value store
// (spec §4.2): a bbolt-backed database with one bucket per declared
// column, buffered writes flushed on a byte budget, and on-disk
// compaction via copy-and-swap. It plays the role the original's
// LMDBWorker (resources/db/db_lmdb.py) plays, on top of bbolt instead of
// LMDB, following the bolt-backed composite-key store grounding in the
// retrieval pack's RDF triple store example.
package store

import (
	"errors"
	"fmt"

	"github.com/kgraph/kgraph/codec"
)

// ErrNotFound is returned by Get when a key is absent from a column.
// Domain layers (intern, graph, labelsearch) catch this and turn it into
// an absent result rather than propagating it, per spec §7.
var ErrNotFound = errors.New("store: not found")

// ErrCapacity is returned by Flush when a write batch fails, is retried
// once unchanged, and fails again. The store does not resize the backing
// map itself; bbolt grows its mmap on its own as transactions need space.
var ErrCapacity = errors.New("store: capacity exceeded after map growth")

// ColumnSchema declares one column (bucket): its value Kind, whether
// values are zstd-compressed, and whether the column holds composite
// keys (informational only — composite keys are just byte slices by the
// time they reach the store).
type ColumnSchema struct {
	Name       string
	Kind       codec.Kind
	Compressed bool
}

// Codec returns the ValueCodec this column's values should be run
// through, honoring the Compressed flag.
func (c ColumnSchema) Codec() (codec.ValueCodec, error) {
	base, err := codec.ForKind(c.Kind)
	if err != nil {
		return nil, fmt.Errorf("store: column %q: %w", c.Name, err)
	}
	if c.Compressed {
		return codec.Compressed(base), nil
	}
	return base, nil
}

// Schema is an ordered list of column declarations, the full bucket set a
// Store opens and maintains.
type Schema []ColumnSchema

// Column looks up a column declaration by name.
func (s Schema) Column(name string) (ColumnSchema, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}
