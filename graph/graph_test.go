// SPDX-License-Identifier: MIT

package graph

import (
	"path/filepath"
	"testing"

	"github.com/kgraph/kgraph/store"
)

func openTestGraph(t *testing.T) *GraphStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "test.db"), Schema)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	g, err := Open(s)
	if err != nil {
		t.Fatalf("graph.Open: %v", err)
	}
	return g
}

func TestRedirectDereferenceOnce(t *testing.T) {
	g := openTestGraph(t)

	oldLID, _, err := g.I.LookupByID("Q1", true)
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}
	newLID, _, err := g.I.LookupByID("Q2", true)
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}

	if err := g.PutLabel(newLID, map[string]string{"en": "New York City"}); err != nil {
		t.Fatalf("PutLabel: %v", err)
	}
	if err := g.PutRedirect(oldLID, newLID); err != nil {
		t.Fatalf("PutRedirect: %v", err)
	}

	labels, ok, err := g.Label(oldLID)
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	if !ok {
		t.Fatalf("expected label found via redirect")
	}
	if labels["en"] != "New York City" {
		t.Errorf("got %v", labels)
	}

	redirOf, err := g.RedirectOf(newLID)
	if err != nil {
		t.Fatalf("RedirectOf: %v", err)
	}
	if len(redirOf) != 1 || redirOf[0] != oldLID {
		t.Errorf("got %v, want [%d]", redirOf, oldLID)
	}
}

func TestRedirectDoesNotChain(t *testing.T) {
	g := openTestGraph(t)

	a, _, _ := g.I.LookupByID("Q1", true)
	b, _, _ := g.I.LookupByID("Q2", true)
	c, _, _ := g.I.LookupByID("Q3", true)

	if err := g.PutRedirect(a, b); err != nil {
		t.Fatalf("PutRedirect: %v", err)
	}
	if err := g.PutRedirect(b, c); err != nil {
		t.Fatalf("PutRedirect: %v", err)
	}
	if err := g.PutLabel(c, map[string]string{"en": "Final"}); err != nil {
		t.Fatalf("PutLabel: %v", err)
	}

	// a has no label of its own; its only redirect hop lands on b, which
	// also has no label, so the lookup must not continue on to c.
	_, ok, err := g.Label(a)
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	if ok {
		t.Errorf("expected redirect chase to stop after one hop")
	}
}

func TestClaimsEntForwardAndInverse(t *testing.T) {
	g := openTestGraph(t)

	douglas, _, _ := g.I.LookupByID("Q42", true)
	human, _, _ := g.I.LookupByID("Q5", true)
	instanceOf, _, _ := g.I.LookupByID("P31", true)

	if err := g.PutClaimEnt(douglas, instanceOf, human); err != nil {
		t.Fatalf("PutClaimEnt: %v", err)
	}

	objs, err := g.ClaimsEnt(douglas, instanceOf)
	if err != nil {
		t.Fatalf("ClaimsEnt: %v", err)
	}
	if len(objs) != 1 || objs[0] != human {
		t.Errorf("got %v, want [%d]", objs, human)
	}

	subjects, err := g.ClaimsEntInv(human, instanceOf)
	if err != nil {
		t.Fatalf("ClaimsEntInv: %v", err)
	}
	if !subjects.Contains(douglas) {
		t.Errorf("expected inverse index to contain %d", douglas)
	}
}

func TestPageRankRoundTrip(t *testing.T) {
	g := openTestGraph(t)
	lid, _, _ := g.I.LookupByID("Q42", true)

	if err := g.PutPageRank(lid, 0.123456); err != nil {
		t.Fatalf("PutPageRank: %v", err)
	}
	score, ok, err := g.PageRank(lid)
	if err != nil {
		t.Fatalf("PageRank: %v", err)
	}
	if !ok || score != 0.123456 {
		t.Errorf("got %v, %v, want 0.123456, true", score, ok)
	}
}
