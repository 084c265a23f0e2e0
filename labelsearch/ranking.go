// SPDX-License-Identifier: MIT

package labelsearch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kgraph/kgraph/codec"
	"github.com/kgraph/kgraph/config"
	"github.com/kgraph/kgraph/store"
)

// RankEntry is one scored member of a label's ranked list: an entity,
// type or property LID with its normalized PageRank score.
type RankEntry struct {
	LID   uint32
	Score float64
}

// RankedLists holds the three buckets LABEL_RANKED_EN/ALL stores for a
// label: entities, types (Q-ids that are themselves a class/type), and
// properties, each sorted by descending score and capped at
// config.RankedListCap. This mirrors db_entity_labels.py's
// build_label_wd_id_ranking_pagerank three-way split on QID vs PID and
// is_a_type.
type RankedLists struct {
	Entities   []RankEntry
	Types      []RankEntry
	Properties []RankEntry
}

// IsTypeFunc reports whether the entity at lid is itself used as a type
// (class), the distinction build_label_wd_id_ranking_pagerank uses to
// route a Q-id into the Types bucket rather than Entities.
type IsTypeFunc func(lid uint32) bool

// PageRankLookup resolves a LID's normalized PageRank score, already
// scaled to the index's expected range (e.g. via (score-min)/(max-min)
// over the run's summary statistics) by the caller.
type PageRankLookup func(lid uint32) float64

// QIDLookup resolves a LID back to its Wikidata-style id string (to
// distinguish QIDs from PIDs), typically intern.Interner.LookupByLID.
type QIDLookup func(lid uint32) (string, bool, error)

// BuildRanking inverts the entityLabels column (entityLID -> []labelLID)
// into per-label postings, scores each posting's members via pageRank,
// and writes the resulting RankedLists to outColumn, keyed by labelLID.
// This is the two original steps (build_label_wd_id_ranking then
// build_label_wd_id_ranking_pagerank) fused into one pass since nothing
// else consumes the intermediate unscored postings.
func BuildRanking(s *store.Store, entityLabelsColumn, outColumn string, qid QIDLookup, isType IsTypeFunc, pageRank PageRankLookup, limit int) error {
	if limit <= 0 {
		limit = config.RankedListCap
	}

	postings := map[uint32]*roaring.Bitmap{}
	err := s.Iter(entityLabelsColumn, func(k, v []byte) bool {
		entityLID, decErr := codec.DecodeUint32Key(k)
		if decErr != nil {
			return true
		}
		labelLIDs, decErr := codec.DecodeIntNumpy(v)
		if decErr != nil {
			return true
		}
		for _, labelLID := range labelLIDs {
			bm, ok := postings[labelLID]
			if !ok {
				bm = roaring.New()
				postings[labelLID] = bm
			}
			bm.Add(entityLID)
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("labelsearch: build ranking scan %s: %w", entityLabelsColumn, err)
	}

	for labelLID, bm := range postings {
		var lists RankedLists
		it := bm.Iterator()
		for it.HasNext() {
			lid := it.Next()
			id, found, err := qid(lid)
			if err != nil {
				return fmt.Errorf("labelsearch: resolve id for lid %d: %w", lid, err)
			}
			if !found {
				continue
			}
			entry := RankEntry{LID: lid, Score: pageRank(lid)}
			switch {
			case strings.HasPrefix(id, "P"):
				lists.Properties = append(lists.Properties, entry)
			case strings.HasPrefix(id, "Q"):
				if isType(lid) {
					lists.Types = append(lists.Types, entry)
				} else {
					lists.Entities = append(lists.Entities, entry)
				}
			}
		}
		sortAndCap(&lists.Entities, limit)
		sortAndCap(&lists.Types, limit)
		sortAndCap(&lists.Properties, limit)

		if err := s.Put(outColumn, codec.EncodeUint32Key(labelLID), lists); err != nil {
			return fmt.Errorf("labelsearch: put %s: %w", outColumn, err)
		}
	}
	return nil
}

// GetRankedList fetches and decodes a label's ranked list from column
// (ColumnLabelRankedEn or ColumnLabelRankedAll). It decodes straight into
// a RankedLists struct rather than going through store.Store.Get's
// generic OBJ path, which decodes into an untyped any and would hand
// back nested maps instead of the RankEntry structs callers want.
func GetRankedList(s *store.Store, column string, labelLID uint32) (RankedLists, bool, error) {
	raw, err := s.GetRaw(column, codec.EncodeUint32Key(labelLID))
	if err == store.ErrNotFound {
		return RankedLists{}, false, nil
	}
	if err != nil {
		return RankedLists{}, false, err
	}
	raw, err = codec.DecompressBytes(raw)
	if err != nil {
		return RankedLists{}, false, fmt.Errorf("labelsearch: decompress ranked list: %w", err)
	}
	var lists RankedLists
	if err := msgpack.Unmarshal(raw, &lists); err != nil {
		return RankedLists{}, false, fmt.Errorf("labelsearch: decode ranked list: %w", err)
	}
	return lists, true, nil
}

func sortAndCap(entries *[]RankEntry, limit int) {
	sort.Slice(*entries, func(i, j int) bool { return (*entries)[i].Score > (*entries)[j].Score })
	if len(*entries) > limit {
		*entries = (*entries)[:limit]
	}
}
