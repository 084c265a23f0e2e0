// SPDX-License-Identifier: MIT

// Package symdelete implements the SymSpell/FAROO-style fuzzy label
// index of spec §4.8, grounded on the original's
// resources/db/db_deletes.py: deletion-neighborhoods of prefix-trimmed
// labels mapped to roaring-bitmap postings of label LIDs. Postings are
// written through the backing store's MergeBitmap and its shared write
// buffer; the index keeps no write buffer or buffer limit of its own.
package symdelete

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kgraph/kgraph/codec"
	"github.com/kgraph/kgraph/store"
)

// ColumnDelete is the single column an Index maintains: a deletion
// variant string -> INT_BITMAP of label LIDs whose deletion
// neighborhood includes that variant.
const ColumnDelete = "delete"

// Schema is the store.Schema fragment an Index needs.
var Schema = store.Schema{
	{Name: ColumnDelete, Kind: codec.KindIntBitmap},
}

// Index is a SymDelete fuzzy-match index for one (language, max edit
// distance, prefix length) configuration, matching the original's
// per-language db file naming (db_deletes.py's "{lang}_{max_distance}_{prefix_len}").
// Every Index opened on the same Store reads and writes the same
// ColumnDelete bucket; its keys carry no language or configuration tag.
type Index struct {
	s               *store.Store
	Lang            string
	MaxEditDistance int
	PrefixLen       int
}

// Open wraps a *store.Store (built with Schema) with SymDelete
// bookkeeping for one language configuration.
func Open(s *store.Store, lang string, maxEditDistance, prefixLen int) *Index {
	return &Index{s: s, Lang: lang, MaxEditDistance: maxEditDistance, PrefixLen: prefixLen}
}

// DeleteEditsPrefix returns the set of deletion variants of key's
// prefixLength-trimmed form, keeping only variants whose length is at
// least len(trimmedKey)-maxEditDistance and at least minLen, exactly as
// delete_edits_prefix does. A "deletion variant"
// here is any subsequence of the trimmed key (i.e. the trimmed key with
// zero or more characters removed), which is how SymSpell generates
// candidates within a bounded edit distance without an online distance
// computation at index time.
func DeleteEditsPrefix(key string, maxEditDistance, prefixLen, minLen int) map[string]struct{} {
	runes := []rune(key)
	if len(runes) > prefixLen {
		runes = runes[:prefixLen]
	}
	n := len(runes)

	lowerBoundLen := n - maxEditDistance - 1
	if lowerBoundLen < minLen-1 {
		lowerBoundLen = minLen - 1
	}

	out := map[string]struct{}{}
	for length := lowerBoundLen + 1; length <= n; length++ {
		combinations(runes, length, func(c []rune) {
			out[string(c)] = struct{}{}
		})
	}
	return out
}

// combinations calls fn with every length-k subsequence of runes, in
// index order, without allocating the full power set up front.
func combinations(runes []rune, k int, fn func([]rune)) {
	n := len(runes)
	if k <= 0 || k > n {
		if k == 0 {
			fn(nil)
		}
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		picked := make([]rune, k)
		for i, p := range idx {
			picked[i] = runes[p]
		}
		fn(picked)

		i := k - 1
		for i >= 0 && idx[i] == i+n-k {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// junkVariants are deletion variants made up entirely of a single
// punctuation character, which add_deletes skips — they're common
// (runs of spaces, dots) and carry no discriminating signal.
var junkVariants = map[string]bool{" ": true, ".": true, ",": true, ":": true}

// AddDeletes indexes term (typically a normalized label) against
// labelLIDs: every deletion variant of term gets labelLIDs merged into
// its posting bitmap.
func (ix *Index) AddDeletes(term string, labelLIDs []uint32) error {
	if len(labelLIDs) == 0 {
		return nil
	}
	variants := DeleteEditsPrefix(term, ix.MaxEditDistance, ix.PrefixLen, 1)
	for variant := range variants {
		if variant == "" || junkVariants[variant] {
			continue
		}
		if err := ix.s.MergeBitmap(ColumnDelete, codec.EncodeStringKey(variant), labelLIDs...); err != nil {
			return fmt.Errorf("symdelete: merge %q: %w", variant, err)
		}
	}
	return nil
}

// BuildFromLabels indexes a stream of (label, labelLID) pairs sorted by
// their prefixLen-truncated label, grouping consecutive entries sharing
// the same truncated prefix into a single AddDeletes call — matching
// build_from_labels's batching, which avoids recomputing the same
// deletion set once per label_id when many labels share a prefix.
// Entries whose label is empty are skipped.
func (ix *Index) BuildFromLabels(pairs func(yield func(label string, labelLID uint32) bool)) error {
	var prevPrefix string
	var havePrev bool
	var group []uint32

	flush := func() error {
		if !havePrev || len(group) == 0 {
			return nil
		}
		return ix.AddDeletes(prevPrefix, group)
	}

	var outerErr error
	pairs(func(label string, labelLID uint32) bool {
		if label == "" {
			return true
		}
		trimmed := []rune(label)
		if len(trimmed) > ix.PrefixLen {
			trimmed = trimmed[:ix.PrefixLen]
		}
		prefix := string(trimmed)

		if !havePrev || prefix != prevPrefix {
			if err := flush(); err != nil {
				outerErr = err
				return false
			}
			prevPrefix = prefix
			havePrev = true
			group = group[:0]
		}
		group = append(group, labelLID)
		return true
	})
	if outerErr != nil {
		return outerErr
	}
	return flush()
}

// Posting returns the raw posting bitmap stored for a deletion variant
// (or an exact term truncated to PrefixLen), without any query-side
// deletion expansion.
func (ix *Index) Posting(term string) (*roaring.Bitmap, error) {
	if term == "" {
		return roaring.New(), nil
	}
	runes := []rune(term)
	if len(runes) > ix.PrefixLen {
		term = string(runes[:ix.PrefixLen])
	}
	v, err := ix.s.Get(ColumnDelete, codec.EncodeStringKey(term))
	if err == store.ErrNotFound {
		return roaring.New(), nil
	}
	if err != nil {
		return nil, err
	}
	return v.(*roaring.Bitmap), nil
}

// Candidates returns the union of postings for every deletion variant of
// query, the query-time half of the SymSpell lookup: a match requires
// query and an indexed label to share at least one deletion variant
// within ix.MaxEditDistance, which this computes by generating query's
// own deletion neighborhood and probing the index with each variant.
func (ix *Index) Candidates(query string) (*roaring.Bitmap, error) {
	result := roaring.New()
	variants := DeleteEditsPrefix(query, ix.MaxEditDistance, ix.PrefixLen, 1)
	// The untouched query prefix itself is always a candidate variant,
	// covering the zero-edit exact-match case.
	variants[query] = struct{}{}
	for variant := range variants {
		bm, err := ix.Posting(variant)
		if err != nil {
			return nil, err
		}
		result.Or(bm)
	}
	return result, nil
}
