// SPDX-License-Identifier: MIT

package labelsearch

import (
	"path/filepath"
	"testing"

	"github.com/kgraph/kgraph/graph"
	"github.com/kgraph/kgraph/store"
)

func openTestIndex(t *testing.T) (*graph.GraphStore, *LabelIndex) {
	t.Helper()
	dir := t.TempDir()
	schema := append(append(store.Schema{}, graph.Schema...), Schema...)
	s, err := store.Open(filepath.Join(dir, "test.db"), schema)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	g, err := graph.Open(s)
	if err != nil {
		t.Fatalf("graph.Open: %v", err)
	}
	li, err := Open(g)
	if err != nil {
		t.Fatalf("labelsearch.Open: %v", err)
	}
	return g, li
}

func TestAddLabelIndexesBothForms(t *testing.T) {
	_, li := openTestIndex(t)
	if err := li.AddLabel(1, "Tokyo!", true); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	if _, found, err := li.LookupLabel("tokyo"); err != nil || !found {
		t.Errorf("expected punctuation-stripped form indexed, found=%v err=%v", found, err)
	}
	if _, found, err := li.LookupLabel("tokyo!"); err != nil || !found {
		t.Errorf("expected punctuation-preserved form indexed, found=%v err=%v", found, err)
	}
}

func TestAddLabelSkipsWikidataItemShapedStrings(t *testing.T) {
	_, li := openTestIndex(t)
	if err := li.AddLabel(1, "Q42", true); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	labels, err := li.EntityLabels(1, true)
	if err != nil {
		t.Fatalf("EntityLabels: %v", err)
	}
	if len(labels) != 0 {
		t.Errorf("expected no labels indexed for a QID-shaped string, got %v", labels)
	}
}

func TestEntityLabelsEnglishVsAll(t *testing.T) {
	_, li := openTestIndex(t)
	if err := li.AddLabel(1, "Tokyo", true); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	if err := li.AddLabel(1, "東京", false); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	en, err := li.EntityLabels(1, true)
	if err != nil {
		t.Fatalf("EntityLabels(en): %v", err)
	}
	all, err := li.EntityLabels(1, false)
	if err != nil {
		t.Fatalf("EntityLabels(all): %v", err)
	}
	if len(en) != 1 {
		t.Errorf("got %d english labels, want 1", len(en))
	}
	if len(all) != 2 {
		t.Errorf("got %d total labels, want 2", len(all))
	}
}

func TestBuildRanking(t *testing.T) {
	g, li := openTestIndex(t)

	douglas, _, _ := g.I.LookupByID("Q42", true)
	if err := li.AddLabel(douglas, "Author", true); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	if err := g.PutPageRank(douglas, 0.5); err != nil {
		t.Fatalf("PutPageRank: %v", err)
	}

	qid := func(lid uint32) (string, bool, error) { return g.I.LookupByLID(lid) }
	isType := func(uint32) bool { return false }
	pr := func(lid uint32) float64 {
		score, _, _ := g.PageRank(lid)
		return score
	}

	if err := BuildRanking(g.S, ColumnEntityLabelsEn, ColumnLabelRankedEn, qid, isType, pr, 0); err != nil {
		t.Fatalf("BuildRanking: %v", err)
	}

	labelLID, found, err := li.LookupLabel("author")
	if err != nil || !found {
		t.Fatalf("LookupLabel: found=%v err=%v", found, err)
	}

	ranked, found, err := GetRankedList(g.S, ColumnLabelRankedEn, labelLID)
	if err != nil {
		t.Fatalf("GetRankedList: %v", err)
	}
	if !found {
		t.Fatalf("expected a ranked list for %q", "author")
	}
	if len(ranked.Entities) != 1 || ranked.Entities[0].LID != douglas {
		t.Errorf("got %+v, want single entry for %d", ranked, douglas)
	}
}
