// SPDX-License-Identifier: MIT

// Package invidx implements the Boolean query planner over the
// (object, property) -> {subject} postings already maintained by
// graph.GraphStore.ClaimsEntInv (spec §4.5). The planner intersects the
// AND terms in ascending-selectivity order, seeded by the smallest AND
// posting set, then adds the union of the OR terms and finally subtracts
// every NOT term.
package invidx

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kgraph/kgraph/graph"
)

// Op is a Boolean query operator.
type Op int

const (
	// OpAnd intersects the subject sets of every Term.
	OpAnd Op = iota
	// OpOr unions the subject sets of every Term.
	OpOr
	// OpNot subtracts the subject sets of every Term from the query's
	// running result (must appear alongside at least one AND/OR term to
	// bound the universe; a bare NOT has no finite answer).
	OpNot
)

// Term is one (property, object) claim predicate in a Boolean query,
// e.g. "instance of: human" is Term{Prop: P31_LID, Object: Q5_LID}.
type Term struct {
	Prop   uint32
	Object uint32
}

// Clause groups a list of Terms under one operator.
type Clause struct {
	Op    Op
	Terms []Term
}

// Query is a flat list of clauses, all combined as intersect-then-union-
// then-subtract in that fixed precedence: the AND clauses' intersection
// is combined with the OR clauses' union, and the NOT clauses' union is
// subtracted from the result. This matches the flattened AND/OR/NOT
// query shape spec §4.5 describes rather than allowing arbitrary nesting.
type Query struct {
	Clauses []Clause
}

func postings(g *graph.GraphStore, t Term) (*roaring.Bitmap, error) {
	bm, err := g.ClaimsEntInv(t.Object, t.Prop)
	if err != nil {
		return nil, fmt.Errorf("invidx: postings for %+v: %w", t, err)
	}
	return bm, nil
}

// smallestFirst reorders terms by ascending cardinality so intersections
// start from the smallest candidate set available. Eval calls it for the
// AND terms only.
func smallestFirst(g *graph.GraphStore, terms []Term) ([]*roaring.Bitmap, error) {
	type scored struct {
		bm *roaring.Bitmap
	}
	out := make([]scored, len(terms))
	for i, t := range terms {
		bm, err := postings(g, t)
		if err != nil {
			return nil, err
		}
		out[i] = scored{bm: bm}
	}
	// Insertion sort by cardinality: query term counts are small (tens,
	// not thousands), so this beats pulling in sort.Slice's overhead for
	// a handful of comparisons.
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && out[j].bm.GetCardinality() < out[j-1].bm.GetCardinality() {
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
	result := make([]*roaring.Bitmap, len(out))
	for i, s := range out {
		result[i] = s.bm
	}
	return result, nil
}

// Eval runs q against g and returns the matching subject LIDs as a
// bitmap. AND terms are intersected smallest-set-first and OR terms are
// unioned onto that result; if there are
// no AND or OR clauses at all (only NOT), the result is empty, since a
// NOT-only query has no finite universe to subtract from.
func Eval(g *graph.GraphStore, q Query) (*roaring.Bitmap, error) {
	var andTerms, orTerms, notTerms []Term
	for _, c := range q.Clauses {
		switch c.Op {
		case OpAnd:
			andTerms = append(andTerms, c.Terms...)
		case OpOr:
			orTerms = append(orTerms, c.Terms...)
		case OpNot:
			notTerms = append(notTerms, c.Terms...)
		default:
			return nil, fmt.Errorf("invidx: unknown op %v", c.Op)
		}
	}

	var result *roaring.Bitmap

	if len(andTerms) > 0 {
		bitmaps, err := smallestFirst(g, andTerms)
		if err != nil {
			return nil, err
		}
		result = bitmaps[0].Clone()
		for _, bm := range bitmaps[1:] {
			result.And(bm)
		}
	}

	if len(orTerms) > 0 {
		union := roaring.New()
		for _, t := range orTerms {
			bm, err := postings(g, t)
			if err != nil {
				return nil, err
			}
			union.Or(bm)
		}
		if result == nil {
			result = union
		} else {
			result.Or(union)
		}
	}

	if result == nil {
		// NOT-only query: nothing to subtract from.
		return roaring.New(), nil
	}

	for _, t := range notTerms {
		bm, err := postings(g, t)
		if err != nil {
			return nil, err
		}
		result.AndNot(bm)
	}

	return result, nil
}
