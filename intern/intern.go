// SPDX-License-Identifier: MIT

// Package intern implements the bidirectional string<->uint32 LID
// dictionary (spec §4.3), grounded on the original's DBCore.get_lid /
// get_id (resources/db/db_core.py): buffer-then-store lookups, monotone
// LID allocation starting at 0, and IDs never reused.
package intern

import (
	"fmt"
	"sync"

	"github.com/kgraph/kgraph/codec"
	"github.com/kgraph/kgraph/store"
)

const (
	// ColumnIDToLID maps an entity id string (e.g. "Q1490") to its LID.
	ColumnIDToLID = "id_lid"
	// ColumnLIDToID maps a LID back to its entity id string.
	ColumnLIDToID = "lid_id"
)

// Columns returns the column declarations for one Interner namespace.
// graph.GraphStore uses the default (ColumnIDToLID, ColumnLIDToID) pair;
// a second dictionary sharing the same Store — labelsearch's label
// vocabulary — uses its own pair so the two namespaces don't collide in
// the same set of buckets.
//
// idToLID stores the raw 4-byte big-endian LID rather than
// msgpack-wrapping it: round-tripping a uint32 through the generic OBJ
// decoder (which decodes into an untyped any) would hand back an int64,
// not a uint32, forcing every caller to re-convert. A fixed-width value
// needs no schema beyond "it's 4 bytes", so BYTES is the natural fit.
func Columns(idToLID, lidToID string) store.Schema {
	return store.Schema{
		{Name: idToLID, Kind: codec.KindBytes},
		{Name: lidToID, Kind: codec.KindObj},
	}
}

// Schema is the default Interner namespace, used by graph.GraphStore.
var Schema = Columns(ColumnIDToLID, ColumnLIDToID)

// Interner is a bidirectional string<->uint32 dictionary backed by two
// store columns. LIDs are allocated monotonically from a counter kept in
// memory and seeded from the store's current maximum on open; a LID, once
// handed out, is never reused even if its string is later deleted.
type Interner struct {
	s       *store.Store
	idToLID string
	lidToID string

	mu     sync.Mutex
	nextID uint32
}

// Open wraps an already-open *store.Store (which must include Schema's
// columns) with LID-allocation bookkeeping, using the default column
// names.
func Open(s *store.Store) (*Interner, error) {
	return OpenNamed(s, ColumnIDToLID, ColumnLIDToID)
}

// OpenNamed is Open for a non-default column-name pair, letting a second
// Interner namespace (e.g. labelsearch's label vocabulary) share one
// Store with graph.GraphStore's entity-id namespace.
func OpenNamed(s *store.Store, idToLID, lidToID string) (*Interner, error) {
	in := &Interner{s: s, idToLID: idToLID, lidToID: lidToID}
	max, err := in.scanMaxLID()
	if err != nil {
		return nil, err
	}
	in.nextID = max
	return in, nil
}

// scanMaxLID walks the lidToID column to find the current allocation
// watermark. It only runs once, at Open, so a full-column scan here is
// cheap relative to the ingest pipeline that will follow.
func (in *Interner) scanMaxLID() (uint32, error) {
	var max uint32
	var any bool
	err := in.s.Iter(in.lidToID, func(k, v []byte) bool {
		lid, err := codec.DecodeUint32Key(k)
		if err != nil {
			return true
		}
		if !any || lid+1 > max {
			max = lid + 1
			any = true
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("intern: scan max lid: %w", err)
	}
	return max, nil
}

// LookupByID returns the LID for id, creating and allocating one if
// create is true and id is not already interned. It checks the write
// buffer before the backing store, matching db_core.py's get_lid order:
// buffer check, then store check, then allocate.
func (in *Interner) LookupByID(id string, create bool) (lid uint32, found bool, err error) {
	key := codec.EncodeStringKey(id)
	if lid, ok, err := in.getLID(key); err != nil {
		return 0, false, err
	} else if ok {
		return lid, true, nil
	}
	if !create {
		return 0, false, nil
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	// Re-check under the lock: another goroutine may have interned id
	// while we were waiting.
	if lid, ok, err := in.getLID(key); err != nil {
		return 0, false, err
	} else if ok {
		return lid, true, nil
	}

	newLID := in.nextID
	in.nextID++

	if err := in.s.Put(in.idToLID, key, codec.EncodeUint32Key(newLID)); err != nil {
		return 0, false, fmt.Errorf("intern: put %s: %w", in.idToLID, err)
	}
	if err := in.s.Put(in.lidToID, codec.EncodeUint32Key(newLID), id); err != nil {
		return 0, false, fmt.Errorf("intern: put %s: %w", in.lidToID, err)
	}
	return newLID, true, nil
}

func (in *Interner) getLID(key []byte) (uint32, bool, error) {
	raw, err := in.s.GetRaw(in.idToLID, key)
	if err == store.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	lid, err := codec.DecodeUint32Key(raw)
	if err != nil {
		return 0, false, err
	}
	return lid, true, nil
}

// LookupByLID returns the string id for lid. Per db_core.py's get_id, an
// invalid (negative, in the Python sense — here simply absent) lid
// returns a not-found result without touching the store at all; Go's
// uint32 rules out "negative" directly, so the only absent case is a LID
// that was never allocated, or allocated after this Interner's in-memory
// watermark was captured.
func (in *Interner) LookupByLID(lid uint32) (id string, found bool, err error) {
	v, err := in.s.Get(in.lidToID, codec.EncodeUint32Key(lid))
	if err == store.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v.(string), true, nil
}

// Len returns the number of LIDs allocated so far.
func (in *Interner) Len() uint32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.nextID
}
