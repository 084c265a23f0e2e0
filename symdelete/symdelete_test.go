// SPDX-License-Identifier: MIT

package symdelete

import (
	"path/filepath"
	"testing"

	"github.com/kgraph/kgraph/store"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "test.db"), Schema)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return Open(s, "en", 2, 10)
}

func TestDeleteEditsPrefixIncludesFullAndShorterForms(t *testing.T) {
	variants := DeleteEditsPrefix("tokyo", 2, 10, 1)
	if _, ok := variants["tokyo"]; !ok {
		t.Errorf("expected exact term included as a variant, got %v", variants)
	}
	if _, ok := variants["toky"]; !ok {
		t.Errorf("expected a 1-deletion variant, got %v", variants)
	}
}

func TestDeleteEditsPrefixTruncatesToPrefixLen(t *testing.T) {
	variants := DeleteEditsPrefix("supercalifragilistic", 2, 5, 1)
	for v := range variants {
		if len([]rune(v)) > 5 {
			t.Errorf("variant %q exceeds prefix length 5", v)
		}
	}
}

func TestSymDeleteRecallWithinEditDistance(t *testing.T) {
	ix := openTestIndex(t)
	if err := ix.AddDeletes("tokyo", []uint32{1}); err != nil {
		t.Fatalf("AddDeletes: %v", err)
	}

	candidates, err := ix.Candidates("tokoy")
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if !candidates.Contains(1) {
		t.Errorf("expected \"tokoy\" to recall \"tokyo\" within edit distance 2")
	}
}

func TestSymDeleteMissBeyondEditDistance(t *testing.T) {
	ix := openTestIndex(t)
	if err := ix.AddDeletes("tokyo", []uint32{1}); err != nil {
		t.Fatalf("AddDeletes: %v", err)
	}

	candidates, err := ix.Candidates("yokohama")
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if candidates.Contains(1) {
		t.Errorf("did not expect \"yokohama\" to recall \"tokyo\"")
	}
}

func TestBuildFromLabelsGroupsByPrefix(t *testing.T) {
	ix := openTestIndex(t)
	pairs := []struct {
		label string
		lid   uint32
	}{
		{"tokyo", 1},
		{"tokyo tower", 2},
		{"osaka", 3},
	}
	err := ix.BuildFromLabels(func(yield func(string, uint32) bool) {
		for _, p := range pairs {
			if !yield(p.label, p.lid) {
				return
			}
		}
	})
	if err != nil {
		t.Fatalf("BuildFromLabels: %v", err)
	}

	posting, err := ix.Posting("tokyo")
	if err != nil {
		t.Fatalf("Posting: %v", err)
	}
	if !posting.Contains(1) {
		t.Errorf("expected posting for exact term to include label 1, got %v", posting.ToArray())
	}
}
