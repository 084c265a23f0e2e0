// SPDX-License-Identifier: MIT

package invidx

import (
	"path/filepath"
	"testing"

	"github.com/kgraph/kgraph/graph"
	"github.com/kgraph/kgraph/store"
)

func setup(t *testing.T) (*graph.GraphStore, map[string]uint32) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "test.db"), graph.Schema)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	g, err := graph.Open(s)
	if err != nil {
		t.Fatalf("graph.Open: %v", err)
	}

	lids := map[string]uint32{}
	for _, id := range []string{"Q5", "P31", "P27", "Q30", "Q142", "Douglas", "Marie", "Alan"} {
		lid, _, err := g.I.LookupByID(id, true)
		if err != nil {
			t.Fatalf("LookupByID(%s): %v", id, err)
		}
		lids[id] = lid
	}

	// Douglas: human, citizen of Q30 (USA surrogate)
	must(t, g.PutClaimEnt(lids["Douglas"], lids["P31"], lids["Q5"]))
	must(t, g.PutClaimEnt(lids["Douglas"], lids["P27"], lids["Q30"]))
	// Marie: human, citizen of Q142 (France surrogate)
	must(t, g.PutClaimEnt(lids["Marie"], lids["P31"], lids["Q5"]))
	must(t, g.PutClaimEnt(lids["Marie"], lids["P27"], lids["Q142"]))
	// Alan: human, citizen of Q30
	must(t, g.PutClaimEnt(lids["Alan"], lids["P31"], lids["Q5"]))
	must(t, g.PutClaimEnt(lids["Alan"], lids["P27"], lids["Q30"]))

	return g, lids
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func TestEvalAnd(t *testing.T) {
	g, lids := setup(t)
	q := Query{Clauses: []Clause{
		{Op: OpAnd, Terms: []Term{
			{Prop: lids["P31"], Object: lids["Q5"]},
			{Prop: lids["P27"], Object: lids["Q30"]},
		}},
	}}
	got, err := Eval(g, q)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	want := []uint32{lids["Douglas"], lids["Alan"]}
	for _, w := range want {
		if !got.Contains(w) {
			t.Errorf("expected result to contain %d", w)
		}
	}
	if got.Contains(lids["Marie"]) {
		t.Errorf("did not expect Marie (not a Q30 citizen) in AND result")
	}
}

func TestEvalOr(t *testing.T) {
	g, lids := setup(t)
	q := Query{Clauses: []Clause{
		{Op: OpOr, Terms: []Term{
			{Prop: lids["P27"], Object: lids["Q30"]},
			{Prop: lids["P27"], Object: lids["Q142"]},
		}},
	}}
	got, err := Eval(g, q)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got.GetCardinality() != 3 {
		t.Errorf("got cardinality %d, want 3", got.GetCardinality())
	}
}

func TestEvalAndNot(t *testing.T) {
	g, lids := setup(t)
	q := Query{Clauses: []Clause{
		{Op: OpAnd, Terms: []Term{{Prop: lids["P31"], Object: lids["Q5"]}}},
		{Op: OpNot, Terms: []Term{{Prop: lids["P27"], Object: lids["Q142"]}}},
	}}
	got, err := Eval(g, q)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got.Contains(lids["Marie"]) {
		t.Errorf("NOT clause should have excluded Marie")
	}
	if !got.Contains(lids["Douglas"]) || !got.Contains(lids["Alan"]) {
		t.Errorf("expected Douglas and Alan to remain, got %v", got.ToArray())
	}
}

func TestEvalNotOnlyIsEmpty(t *testing.T) {
	g, lids := setup(t)
	q := Query{Clauses: []Clause{
		{Op: OpNot, Terms: []Term{{Prop: lids["P31"], Object: lids["Q5"]}}},
	}}
	got, err := Eval(g, q)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !got.IsEmpty() {
		t.Errorf("expected empty result for NOT-only query, got %v", got.ToArray())
	}
}
