// SPDX-License-Identifier: MIT

package store

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kgraph/kgraph/codec"
)

// MergeBitmap unions ids into the roaring bitmap currently stored at
// (column, key), creating it if absent. This realizes the original's
// "SET merge" bulk-update semantics (db_lmdb.py's update_bulk_with_buffer)
// for INT_BITMAP columns such as CLAIMS_ENT_INV and the SymDelete
// postings, where repeated ingest batches accumulate into one posting
// list rather than overwriting it.
func (s *Store) MergeBitmap(column string, key []byte, ids ...uint32) error {
	col, _, err := s.column(column)
	if err != nil {
		return err
	}
	if col.Kind != codec.KindIntBitmap {
		return fmt.Errorf("store: MergeBitmap on non-bitmap column %q", column)
	}

	bm := roaring.New()
	raw, err := s.GetRaw(column, key)
	if err == nil {
		decoded, derr := codec.DecodeIntBitmap(raw)
		if derr != nil {
			return fmt.Errorf("store: MergeBitmap decode %s: %w", column, derr)
		}
		bm = decoded
	} else if err != ErrNotFound {
		return err
	}
	bm.AddMany(ids)

	enc, err := codec.EncodeIntBitmap(bm)
	if err != nil {
		return fmt.Errorf("store: MergeBitmap encode %s: %w", column, err)
	}
	return s.bufferWrite(column, key, enc)
}

// MergeNumpy unions ids into the sorted uint32 array currently stored at
// (column, key), creating it if absent.
func (s *Store) MergeNumpy(column string, key []byte, ids ...uint32) error {
	col, _, err := s.column(column)
	if err != nil {
		return err
	}
	if col.Kind != codec.KindIntNumpy {
		return fmt.Errorf("store: MergeNumpy on non-numpy column %q", column)
	}

	var existing []uint32
	raw, err := s.GetRaw(column, key)
	if err == nil {
		existing, err = codec.DecodeIntNumpy(raw)
		if err != nil {
			return fmt.Errorf("store: MergeNumpy decode %s: %w", column, err)
		}
	} else if err != ErrNotFound {
		return err
	}

	merged := append(existing, ids...)
	enc := codec.EncodeIntNumpy(merged)
	return s.bufferWrite(column, key, enc)
}
