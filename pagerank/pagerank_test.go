// SPDX-License-Identifier: MIT

package pagerank

import (
	"math"
	"testing"
)

func TestTwoNodeMutualLinkConvergesToHalf(t *testing.T) {
	g := BuildGraph(2, []Edge{
		{From: 0, To: 1, Source: SourceWikidata},
		{From: 1, To: 0, Source: SourceWikidata},
	})
	res, err := Run(g, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence within %d iterations", 1000)
	}
	for i, v := range res.Scores {
		if math.Abs(v-0.5) > 1e-4 {
			t.Errorf("score[%d] = %v, want ~0.5", i, v)
		}
	}
}

func TestDanglingNodeRedistributesMass(t *testing.T) {
	// Node 1 has no outgoing edges (dangling); all mass eventually
	// settles back into the teleport distribution rather than leaking.
	g := BuildGraph(2, []Edge{
		{From: 0, To: 1, Source: SourceWikidata},
	})
	res, err := Run(g, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sum := res.Scores[0] + res.Scores[1]
	if math.Abs(sum-1.0) > 1e-3 {
		t.Errorf("score mass = %v, want ~1.0 (no leakage)", sum)
	}
}

func TestSummaryStats(t *testing.T) {
	g := BuildGraph(3, []Edge{
		{From: 0, To: 1, Source: SourceWikidata},
		{From: 1, To: 2, Source: SourceWikidata},
		{From: 2, To: 0, Source: SourceWikidata},
	})
	res, err := Run(g, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Min > res.Mean || res.Mean > res.Max {
		t.Errorf("expected min <= mean <= max, got %v %v %v", res.Min, res.Mean, res.Max)
	}
	if res.Std < 0 {
		t.Errorf("std must be non-negative, got %v", res.Std)
	}
}

func TestWeightedEdgesFuseByAddition(t *testing.T) {
	g := BuildGraph(2, []Edge{
		{From: 0, To: 1, Source: SourceWikidata},
		{From: 0, To: 1, Source: SourceTypes},
	})
	if g.outWeight[0] != SourceWikidata.weight()+SourceTypes.weight() {
		t.Errorf("got out-weight %v, want fused sum", g.outWeight[0])
	}
}
