// SPDX-License-Identifier: MIT

package labelsearch

import (
	"fmt"

	"github.com/kgraph/kgraph/codec"
	"github.com/kgraph/kgraph/graph"
	"github.com/kgraph/kgraph/intern"
	"github.com/kgraph/kgraph/store"
)

// Column names, matching spec §4.7.
const (
	ColumnLabelLID        = "label_lid"
	ColumnLIDLabel        = "lid_label"
	ColumnEntityLabelsEn  = "entity_labels_en"  // entityLID -> INT_NUMPY []labelLID
	ColumnEntityLabelsAll = "entity_labels_all" // entityLID -> INT_NUMPY []labelLID
	ColumnLabelRankedEn   = "label_ranked_en"   // labelLID -> OBJ RankedLists (zstd-compressed)
	ColumnLabelRankedAll  = "label_ranked_all"  // labelLID -> OBJ RankedLists (zstd-compressed)
)

// Schema is the store.Schema fragment labelsearch needs, to be combined
// with graph.Schema when opening the backing Store.
var Schema = append(intern.Columns(ColumnLabelLID, ColumnLIDLabel), store.Schema{
	{Name: ColumnEntityLabelsEn, Kind: codec.KindIntNumpy},
	{Name: ColumnEntityLabelsAll, Kind: codec.KindIntNumpy},
	{Name: ColumnLabelRankedEn, Kind: codec.KindObj, Compressed: true},
	{Name: ColumnLabelRankedAll, Kind: codec.KindObj, Compressed: true},
}...)

// LabelIndex is the label vocabulary and ranked-lookup index (spec
// §4.7's LabelIndex/C7), built on top of a graph.GraphStore's Store.
type LabelIndex struct {
	g     *graph.GraphStore
	Vocab *intern.Interner
}

// Open wraps a graph.GraphStore (whose backing Store must also include
// Schema's columns) with label-vocabulary bookkeeping.
func Open(g *graph.GraphStore) (*LabelIndex, error) {
	vocab, err := intern.OpenNamed(g.S, ColumnLabelLID, ColumnLIDLabel)
	if err != nil {
		return nil, fmt.Errorf("labelsearch: open vocab: %w", err)
	}
	return &LabelIndex{g: g, Vocab: vocab}, nil
}

// AddLabel indexes rawLabel for entityLID: both the punctuation-stripped
// and punctuation-preserving normalized forms are interned into the
// vocabulary and recorded against entityLID, matching db_entity_labels.py's
// "add both forms" behavior in its vocabulary build. If english is true,
// the label is also recorded into the ENTITY_LABELS_EN set.
//
// QID/PID-shaped strings (spec's is_wikidata_item check) are never
// indexed as labels: they are looked up directly by fusion's short
// circuit instead.
func (li *LabelIndex) AddLabel(entityLID uint32, rawLabel string, english bool) error {
	if IsWikidataItem(rawLabel) {
		return nil
	}

	forms := map[string]bool{
		Normalize(rawLabel, NormalizeOptions{Punctuations: true, Article: true, Lower: true}):  true,
		Normalize(rawLabel, NormalizeOptions{Punctuations: false, Article: true, Lower: true}): true,
	}

	for form := range forms {
		if form == "" {
			continue
		}
		labelLID, _, err := li.Vocab.LookupByID(form, true)
		if err != nil {
			return fmt.Errorf("labelsearch: intern label %q: %w", form, err)
		}
		if err := li.g.S.MergeNumpy(ColumnEntityLabelsAll, entityKey(entityLID), labelLID); err != nil {
			return fmt.Errorf("labelsearch: merge entity_labels_all: %w", err)
		}
		if english {
			if err := li.g.S.MergeNumpy(ColumnEntityLabelsEn, entityKey(entityLID), labelLID); err != nil {
				return fmt.Errorf("labelsearch: merge entity_labels_en: %w", err)
			}
		}
	}
	return nil
}

func entityKey(lid uint32) []byte { return codec.EncodeUint32Key(lid) }

// EntityLabels returns the label LIDs recorded for entityLID, from
// ENTITY_LABELS_EN if english is true, otherwise ENTITY_LABELS_ALL.
func (li *LabelIndex) EntityLabels(entityLID uint32, english bool) ([]uint32, error) {
	column := ColumnEntityLabelsAll
	if english {
		column = ColumnEntityLabelsEn
	}
	v, err := li.g.S.Get(column, entityKey(entityLID))
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.([]uint32), nil
}

// LookupLabel returns the label LID for an already-normalized label
// string, without creating one if absent.
func (li *LabelIndex) LookupLabel(normalized string) (uint32, bool, error) {
	return li.Vocab.LookupByID(normalized, false)
}
