// SPDX-License-Identifier: MIT

// kgraph-build runs the idempotent ingest stages that turn Wikidata,
// Wikipedia and DBpedia dumps into the kgraph stores: redirects,
// mappings, info, pagerank, labels, deletes, text-index. Modeled on
// cmd/qrank-builder/main.go's flag parsing and single shared logger, but
// dispatches on a leading positional stage name instead of running one
// fixed pipeline, per spec §6's "build redirects|mappings|info|pagerank|
// labels|deletes|text-index" CLI surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/kgraph/kgraph/codec"
	"github.com/kgraph/kgraph/config"
	"github.com/kgraph/kgraph/graph"
	"github.com/kgraph/kgraph/ingest"
	"github.com/kgraph/kgraph/internal/klog"
	"github.com/kgraph/kgraph/labelsearch"
	"github.com/kgraph/kgraph/pagerank"
	"github.com/kgraph/kgraph/store"
	"github.com/kgraph/kgraph/symdelete"
)

// Exit codes per spec §6.
const (
	exitOK           = 0
	exitInvalidInput = 2
	exitMissingDump  = 3
	exitCapacityOrIO = 4
)

// typeProperties are the claim properties PutClaimEnt edges over which
// count as "is a type of" links for PageRank's weighting (spec §4.6):
// P31 (instance of) and P279 (subclass of).
var typeProperties = map[string]bool{"P31": true, "P279": true}

var logger = klog.Default

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("kgraph-build", flag.ContinueOnError)
	dumpsPath := fs.String("dumps", "dumps", "path to Wikidata/Wikipedia/DBpedia dumps")
	storePath := fs.String("store", "kgraph.db", "path to the kgraph store file")
	testRun := fs.Bool("testRun", false, "process only a small fraction of input, for fast iteration")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: kgraph-build [-dumps DIR] [-store FILE] redirects|mappings|info|pagerank|labels|deletes|text-index|download")
		return exitInvalidInput
	}
	stage := fs.Arg(0)

	schema := buildSchema()
	s, err := store.Open(*storePath, schema, store.WithLogger(logger))
	if err != nil {
		logger.Printf("kgraph-build: open store: %v", err)
		return exitCapacityOrIO
	}
	defer s.Close()

	g, err := graph.Open(s)
	if err != nil {
		logger.Printf("kgraph-build: open graph: %v", err)
		return exitCapacityOrIO
	}
	labels, err := labelsearch.Open(g)
	if err != nil {
		logger.Printf("kgraph-build: open labels: %v", err)
		return exitCapacityOrIO
	}

	ctx := context.Background()
	switch stage {
	case "download":
		logger.Printf("kgraph-build: download is out of scope for this module (spec §1); fetch dumps with the upstream mirroring tools and point -dumps at them")
		return exitOK
	case "redirects":
		err = stageRedirects(ctx, *dumpsPath, *testRun, g)
	case "mappings":
		err = stageMappings(ctx, *dumpsPath, *testRun, g)
	case "info":
		err = stageInfo(ctx, *dumpsPath, *testRun, g, labels)
	case "pagerank":
		err = stagePageRank(g)
	case "labels":
		err = stageLabels(g, labels)
	case "deletes":
		err = stageDeletes(s, labels)
	case "text-index":
		logger.Printf("kgraph-build: text-index builds the external BM25-class index, which spec §1 keeps out of scope for this module; fusion.Engine.Text is where a real implementation plugs in")
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown stage %q\n", stage)
		return exitInvalidInput
	}

	if err != nil {
		logger.Printf("kgraph-build: stage %q failed: %v", stage, err)
		if errors.Is(err, os.ErrNotExist) {
			return exitMissingDump
		}
		if errors.Is(err, store.ErrCapacity) {
			return exitCapacityOrIO
		}
		return exitCapacityOrIO
	}

	if err := s.Flush(); err != nil {
		logger.Printf("kgraph-build: final flush: %v", err)
		return exitCapacityOrIO
	}
	logger.Printf("kgraph-build: stage %q complete", stage)
	return exitOK
}

func buildSchema() store.Schema {
	var schema store.Schema
	schema = append(schema, graph.Schema...)
	schema = append(schema, labelsearch.Schema...)
	schema = append(schema, symdelete.Schema...)
	return schema
}

// stageRedirects joins page.sql against redirect.sql on page id, since
// redirect rows only carry the numeric source page id, to populate
// REDIRECT/REDIRECT_OF keyed by the source and target page titles.
func stageRedirects(ctx context.Context, dumpsPath string, testRun bool, g *graph.GraphStore) error {
	pageFile, err := os.Open(dumpsPath + "/wikidatawiki/page.sql.gz")
	if err != nil {
		return err
	}
	defer pageFile.Close()
	pages, err := ingest.ReadPagesDump(pageFile)
	if err != nil {
		return err
	}
	titleByPageID := make(map[string]string, len(pages))
	for _, p := range pages {
		titleByPageID[p.PageID] = p.Title
	}

	redirectFile, err := os.Open(dumpsPath + "/wikidatawiki/redirect.sql.gz")
	if err != nil {
		return err
	}
	defer redirectFile.Close()
	rows, err := ingest.ReadRedirectsDump(redirectFile)
	if err != nil {
		return err
	}
	logger.Printf("kgraph-build: redirects: %d rows", len(rows))

	n := 0
	for _, row := range rows {
		if testRun && n >= 1000 {
			break
		}
		fromTitle, ok := titleByPageID[row.FromPageID]
		if !ok {
			continue
		}
		fromLID, _, err := g.I.LookupByID(fromTitle, true)
		if err != nil {
			return err
		}
		toLID, _, err := g.I.LookupByID(row.ToTitle, true)
		if err != nil {
			return err
		}
		if err := g.PutRedirect(fromLID, toLID); err != nil {
			return err
		}
		n++
	}
	return nil
}

// stageMappings ingests the Wikidata JSON dump's entity ids, wiring
// Wikipedia cross-links from each entity's sitelinks as they're
// discovered. No DBpedia links are written by this stage.
func stageMappings(ctx context.Context, dumpsPath string, testRun bool, g *graph.GraphStore) error {
	path := dumpsPath + "/wikidatawiki/entities/latest-all.json.bz2"
	n := 0
	err := ingest.ReadWikidataDump(ctx, path, logger, func(e *ingest.WikidataEntity) error {
		if testRun && n >= 1000 {
			return ingest.ErrEntityLimitReached
		}
		lid, _, err := g.I.LookupByID(e.ID, true)
		if err != nil {
			return err
		}
		for site, title := range e.Sitelinks {
			if err := g.PutWikipedia(lid, map[string]any{"site": site, "title": title}); err != nil {
				return err
			}
		}
		n++
		return nil
	})
	if err != nil {
		return err
	}
	logger.Printf("kgraph-build: mappings: %d entities", n)
	return nil
}

// stageInfo ingests the full Wikidata JSON dump into GraphStore (labels,
// descriptions, aliases, claims) and LabelIndex's vocabulary.
func stageInfo(ctx context.Context, dumpsPath string, testRun bool, g *graph.GraphStore, labels *labelsearch.LabelIndex) error {
	path := dumpsPath + "/wikidatawiki/entities/latest-all.json.bz2"
	n := 0
	err := ingest.ReadWikidataDump(ctx, path, logger, func(e *ingest.WikidataEntity) error {
		if testRun && n >= 1000 {
			return ingest.ErrEntityLimitReached
		}
		lid, _, err := g.I.LookupByID(e.ID, true)
		if err != nil {
			return err
		}
		if isIdentifierClassEntity(e) {
			return nil
		}
		if len(e.Labels) > 0 {
			if err := g.PutLabel(lid, e.Labels); err != nil {
				return err
			}
			for lang, text := range e.Labels {
				if err := labels.AddLabel(lid, text, lang == "en"); err != nil {
					return err
				}
			}
		}
		if len(e.Descriptions) > 0 {
			if err := g.PutDesc(lid, e.Descriptions); err != nil {
				return err
			}
		}
		if len(e.Aliases) > 0 {
			if err := g.PutAliases(lid, e.Aliases); err != nil {
				return err
			}
			for lang, aliases := range e.Aliases {
				for _, alias := range aliases {
					if err := labels.AddLabel(lid, alias, lang == "en"); err != nil {
						return err
					}
				}
			}
		}
		for _, claim := range e.EntityClaims {
			propLID, _, err := g.I.LookupByID(claim.Property, true)
			if err != nil {
				return err
			}
			objLID, _, err := g.I.LookupByID(claim.Object, true)
			if err != nil {
				return err
			}
			if err := g.PutClaimEnt(lid, propLID, objLID); err != nil {
				return err
			}
		}
		for prop, literals := range e.LiteralClaims {
			propLID, _, err := g.I.LookupByID(prop, true)
			if err != nil {
				return err
			}
			if err := g.PutClaimLit(lid, propLID, literals); err != nil {
				return err
			}
		}
		n++
		return nil
	})
	if err != nil {
		return err
	}
	logger.Printf("kgraph-build: info: %d entities", n)
	return nil
}

// isIdentifierClassEntity reports whether e's P31 (instance of) or P279
// (subclass of) claims intersect config.IdentifierClassQIDs, marking it
// as representing an external-database identifier rather than a
// real-world entity, per db_wikidata.py's WIKIDATA_IDENTIFIERS check.
func isIdentifierClassEntity(e *ingest.WikidataEntity) bool {
	for _, claim := range e.EntityClaims {
		if claim.Property != "P31" && claim.Property != "P279" {
			continue
		}
		if config.IdentifierClassQIDs[claim.Object] {
			return true
		}
	}
	return false
}

// stagePageRank runs the PageRank power iteration over CLAIMS_ENT edges,
// weighting P31/P279 type edges separately from other entity claims
// (spec §4.6), and writes a score back for every interned LID.
func stagePageRank(g *graph.GraphStore) error {
	n := int(g.I.Len())
	if n == 0 {
		return nil
	}

	var edges []pagerank.Edge
	err := g.S.Iter(graph.ColumnClaimsEnt, func(k, v []byte) bool {
		parts, err := codec.DecodeCompositeKey(k)
		if err != nil || len(parts) != 2 {
			return true
		}
		subjectLID, propLID := parts[0], parts[1]
		propID, found, err := g.I.LookupByLID(propLID)
		if err != nil || !found {
			return true
		}
		source := pagerank.SourceWikidata
		if typeProperties[propID] {
			source = pagerank.SourceTypes
		}
		objects, err := codec.DecodeIntNumpy(v)
		if err != nil {
			return true
		}
		for _, obj := range objects {
			edges = append(edges, pagerank.Edge{From: subjectLID, To: obj, Source: source})
		}
		return true
	})
	if err != nil {
		return err
	}

	result, err := pagerank.Run(pagerank.BuildGraph(n, edges), pagerank.Options{
		Alpha:   config.PageRankAlpha,
		Tol:     config.PageRankTol,
		MaxIter: config.PageRankMaxIter,
	})
	if err != nil {
		return err
	}
	for lid, score := range result.Scores {
		if err := g.PutPageRank(uint32(lid), score); err != nil {
			return err
		}
	}
	logger.Printf("kgraph-build: pagerank: %d edges, %d iterations, converged=%v", len(edges), result.Iterations, result.Converged)
	return nil
}

// stageLabels builds the LABEL_RANKED_EN/ALL ranked lists from the
// vocabulary AddLabel has already populated.
func stageLabels(g *graph.GraphStore, labels *labelsearch.LabelIndex) error {
	qid := func(lid uint32) (string, bool, error) { return g.I.LookupByLID(lid) }

	// An entity is a "type" iff it is the object of any P279
	// (subclass-of) edge: a non-empty CLAIMS_ENT_INV posting under P279.
	p279LID, p279Found, err := g.I.LookupByID("P279", false)
	if err != nil {
		return err
	}
	isType := func(uint32) bool { return false }
	if p279Found {
		isType = func(lid uint32) bool {
			bm, err := g.ClaimsEntInv(lid, p279LID)
			return err == nil && bm != nil && bm.GetCardinality() > 0
		}
	}

	// Ranked-list scores are min-max normalized over every stored score.
	prMin, prMax := math.Inf(1), math.Inf(-1)
	for lid := uint32(0); lid < g.I.Len(); lid++ {
		if score, ok, _ := g.PageRank(lid); ok {
			prMin = math.Min(prMin, score)
			prMax = math.Max(prMax, score)
		}
	}
	pr := func(lid uint32) float64 {
		score, ok, _ := g.PageRank(lid)
		if ok && prMax > prMin {
			score = (score - prMin) / (prMax - prMin)
		}
		return score
	}
	if err := labelsearch.BuildRanking(g.S, labelsearch.ColumnEntityLabelsEn, labelsearch.ColumnLabelRankedEn, qid, isType, pr, config.RankedListCap); err != nil {
		return err
	}
	return labelsearch.BuildRanking(g.S, labelsearch.ColumnEntityLabelsAll, labelsearch.ColumnLabelRankedAll, qid, isType, pr, config.RankedListCap)
}

// stageDeletes builds the "en" and "all" SymDelete fuzzy indexes from the
// interned label vocabulary (spec §4.8). Both are built from the full
// vocabulary and write through the store's shared write buffer; no
// separate buffer budget applies to either.
func stageDeletes(s *store.Store, labels *labelsearch.LabelIndex) error {
	n := labels.Vocab.Len()
	logger.Printf("kgraph-build: deletes: indexing %d labels", n)

	en := symdelete.Open(s, "en", config.DefaultMaxEditDistance, config.DefaultPrefixLen)
	if err := en.BuildFromLabels(labelPairs(labels, n)); err != nil {
		return err
	}
	all := symdelete.Open(s, "all", config.DefaultMaxEditDistance, config.DefaultPrefixLen)
	return all.BuildFromLabels(labelPairs(labels, n))
}

func labelPairs(labels *labelsearch.LabelIndex, n uint32) func(yield func(label string, labelLID uint32) bool) {
	return func(yield func(label string, labelLID uint32) bool) {
		for lid := uint32(0); lid < n; lid++ {
			label, found, err := labels.Vocab.LookupByLID(lid)
			if err != nil || !found {
				continue
			}
			if !yield(label, lid) {
				return
			}
		}
	}
}
