// SPDX-License-Identifier: MIT

// Package pagerank implements the weighted PageRank power iteration of
// spec §4.6: x <- alpha * W^T * D^-1 * x + s * (z^T * x), over a CSR
// sparse graph whose edges are tagged SourceWikidata (entity claims,
// config.WeightWikidata), SourceTypes (P31/P279 type edges,
// config.WeightTypes) or SourceWikiOthers (config.WeightWikiOthers).
// Convergence is judged
// by the L1 norm of the iterate delta, using gonum/floats the way
// ZanzyTHEbar-virtual-vectorfs's dependency tree pins gonum for vector
// math rather than hand-rolling a norm loop.
package pagerank

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kgraph/kgraph/config"
)

// EdgeSource identifies the kind of an edge, each kind carrying its own
// weight per spec §4.6.
type EdgeSource int

const (
	SourceWikidata EdgeSource = iota
	SourceTypes
	SourceWikiOthers
)

func (s EdgeSource) weight() float64 {
	switch s {
	case SourceWikidata:
		return config.WeightWikidata
	case SourceTypes:
		return config.WeightTypes
	case SourceWikiOthers:
		return config.WeightWikiOthers
	default:
		return 1
	}
}

// Edge is one directed, weighted link between two LIDs before CSR
// assembly. Multiple edges between the same pair accumulate (their
// weights sum) rather than overwrite.
type Edge struct {
	From, To uint32
	Source   EdgeSource
}

// Graph is a CSR (compressed sparse row) adjacency over n nodes, built
// once from a list of Edges and then reused across iterations without
// further allocation.
type Graph struct {
	n         int
	rowStart  []int32   // len n+1
	colIdx    []int32   // len nnz, target node of edge i
	weight    []float64 // len nnz, fused edge weight
	outWeight []float64 // len n, sum of outgoing edge weights (for D^-1)
}

// BuildGraph assembles a CSR graph over n nodes (LIDs 0..n-1) from edges,
// summing weights of repeated (from,to) pairs.
func BuildGraph(n int, edges []Edge) *Graph {
	type key struct{ from, to uint32 }
	merged := make(map[key]float64, len(edges))
	for _, e := range edges {
		merged[key{e.From, e.To}] += e.Source.weight()
	}

	counts := make([]int32, n+1)
	for k := range merged {
		counts[k.from+1]++
	}
	for i := 1; i <= n; i++ {
		counts[i] += counts[i-1]
	}

	nnz := len(merged)
	colIdx := make([]int32, nnz)
	weight := make([]float64, nnz)
	cursor := append([]int32(nil), counts[:n]...)
	for k, w := range merged {
		pos := cursor[k.from]
		colIdx[pos] = int32(k.to)
		weight[pos] = w
		cursor[k.from]++
	}

	outWeight := make([]float64, n)
	for from := 0; from < n; from++ {
		var sum float64
		for i := counts[from]; i < counts[from+1]; i++ {
			sum += weight[i]
		}
		outWeight[from] = sum
	}

	return &Graph{n: n, rowStart: counts, colIdx: colIdx, weight: weight, outWeight: outWeight}
}

// N is the number of nodes in the graph.
func (g *Graph) N() int { return g.n }

// Result is the outcome of a power-iteration run: the full score vector
// plus the summary statistics spec §4.6 requires alongside it.
type Result struct {
	Scores     []float64
	Iterations int
	Converged  bool
	Min, Max   float64
	Mean, Std  float64
}

// Options configures a Run. Zero values fall back to config defaults.
type Options struct {
	Alpha   float64
	Tol     float64
	MaxIter int
	// Personalization is the teleport vector z (spec's "s" personalization
	// source); nil means uniform teleportation over all nodes.
	Personalization []float64
}

func (o Options) withDefaults() Options {
	if o.Alpha == 0 {
		o.Alpha = config.PageRankAlpha
	}
	if o.Tol == 0 {
		o.Tol = config.PageRankTol
	}
	if o.MaxIter == 0 {
		o.MaxIter = config.PageRankMaxIter
	}
	return o
}

// Run executes power iteration x <- alpha*W^T*D^-1*x + (1-alpha)*z*(sum(x)),
// where z is the (optionally personalized) teleport distribution and
// dangling nodes (zero out-degree) redistribute their mass via z as well,
// the standard dangling-node fix-up for PageRank over a graph with sinks.
func Run(g *Graph, opts Options) (Result, error) {
	opts = opts.withDefaults()
	n := g.n
	if n == 0 {
		return Result{}, fmt.Errorf("pagerank: empty graph")
	}

	z := opts.Personalization
	if z == nil {
		z = make([]float64, n)
		u := 1.0 / float64(n)
		for i := range z {
			z[i] = u
		}
	} else if len(z) != n {
		return Result{}, fmt.Errorf("pagerank: personalization length %d != n %d", len(z), n)
	}

	x := append([]float64(nil), z...)
	next := make([]float64, n)

	var iter int
	var converged bool
	for iter = 0; iter < opts.MaxIter; iter++ {
		for i := range next {
			next[i] = 0
		}

		var danglingMass float64
		for from := 0; from < n; from++ {
			if g.outWeight[from] == 0 {
				danglingMass += x[from]
				continue
			}
			contrib := opts.Alpha * x[from] / g.outWeight[from]
			for i := g.rowStart[from]; i < g.rowStart[from+1]; i++ {
				next[g.colIdx[i]] += contrib * g.weight[i]
			}
		}

		teleport := (1 - opts.Alpha) + opts.Alpha*danglingMass
		for i := range next {
			next[i] += teleport * z[i]
		}

		delta := floats.Distance(x, next, 1)
		copy(x, next)
		if delta < opts.Tol {
			converged = true
			iter++
			break
		}
	}

	return summarize(x, iter, converged), nil
}

func summarize(x []float64, iterations int, converged bool) Result {
	min := floats.Min(x)
	max := floats.Max(x)
	mean := floats.Sum(x) / float64(len(x))
	var variance float64
	for _, v := range x {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(x))
	return Result{
		Scores:     x,
		Iterations: iterations,
		Converged:  converged,
		Min:        min,
		Max:        max,
		Mean:       mean,
		Std:        math.Sqrt(variance),
	}
}
