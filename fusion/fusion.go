// SPDX-License-Identifier: MIT

// Package fusion implements the SearchFusion query layer of spec §4.9:
// QID/PID short-circuiting, language detection, query rewriting, and
// score fusion across an external BM25-style text index and the
// SymDelete fuzzy index, grounded on the original's
// modules/entity_search.py (the "search" function's scoring loop) — the
// original's own fuzzy branch ("search_f") is referenced but never
// constructed there; this package builds the missing half in the same
// idiom instead of leaving it unimplemented.
package fusion

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kgraph/kgraph/config"
	"github.com/kgraph/kgraph/graph"
	"github.com/kgraph/kgraph/labelsearch"
	"github.com/kgraph/kgraph/symdelete"
)

// TextSearcher is the external BM25-class text index SearchFusion fuses
// with SymDelete. It is an interface, not a concrete client, because
// spec §1 explicitly keeps the text-index wire protocol out of scope;
// any implementation (an HTTP client, an in-process index) can be
// plugged in.
type TextSearcher interface {
	Search(query, lang string, limit int) ([]ScoredLabel, error)
}

// ScoredLabel is one hit from a text search source: a normalized label
// string and its source-native relevance score (not yet min-max
// normalized against the other source).
type ScoredLabel struct {
	Label string
	Score float64
}

// Result is one final SearchFusion hit.
type Result struct {
	ID    string // QID or PID
	Score float64
}

// Engine ties together a GraphStore (for labels/pagerank), a LabelIndex
// (for label<->LID lookups and ranked lists) and an optional
// TextSearcher, and answers Search queries.
type Engine struct {
	G         *graph.GraphStore
	Labels    *labelsearch.LabelIndex
	SymDelete *symdelete.Index // may be nil to disable the fuzzy source
	Text      TextSearcher     // may be nil to disable the external source
}

var (
	parenRe   = regexp.MustCompile(`\([^)]*\)`)
	bracketRe = regexp.MustCompile(`\[[^\]]*\]`)
	quotedRe  = regexp.MustCompile(`"([^"]*)"`)
)

// RewriteQuery drops parenthetical and bracketed content from query
// (e.g. "Mercury (planet)" -> "Mercury"), which tends to be
// disambiguation noise rather than searchable label text.
func RewriteQuery(query string) string {
	q := parenRe.ReplaceAllString(query, "")
	q = bracketRe.ReplaceAllString(q, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(q, " "))
}

var whitespace = regexp.MustCompile(`\s+`)

// QuotedAlternative extracts the quoted content of query, if any, as an
// alternative query — e.g. a user searching `("Hotel California")` likely
// means the quoted phrase itself. Search uses it only when RewriteQuery
// leaves an empty string; the hits of the alternative and of the
// rewritten query are never combined.
func QuotedAlternative(query string) (string, bool) {
	m := quotedRe.FindStringSubmatch(query)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// isASCII reports whether s is composed entirely of ASCII characters,
// the original's isEnglish heuristic (modules/entity_search.py: "if not
// ul.isEnglish(query): lang = 'all'").
func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// labelHit is one candidate label LID surfaced by the text and/or fuzzy
// source, already weighted and merged.
type labelHit struct {
	LID   uint32
	Score float64
}

// Search answers a SearchFusion query per spec §4.9.
func (e *Engine) Search(query string, lang string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = config.LimitFusion
	}

	id := strings.ToUpper(strings.TrimSpace(query))
	if labelsearch.IsWikidataItem(id) {
		return []Result{{ID: id, Score: 1}}, nil
	}

	if !isASCII(query) {
		lang = "all"
	}
	english := lang == "en"

	effectiveQuery := RewriteQuery(query)
	if effectiveQuery == "" {
		if alt, ok := QuotedAlternative(query); ok {
			effectiveQuery = alt
		} else {
			effectiveQuery = query
		}
	}

	labelHits, err := e.gatherLabelHits(effectiveQuery, lang, limit)
	if err != nil {
		return nil, err
	}
	if len(labelHits) == 0 {
		return nil, nil
	}

	column := labelsearch.ColumnLabelRankedAll
	if english {
		column = labelsearch.ColumnLabelRankedEn
	}

	scores := map[uint32]float64{}
	for _, hit := range labelHits {
		ranked, found, err := labelsearch.GetRankedList(e.G.S, column, hit.LID)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		for _, entry := range ranked.Entities {
			score, err := e.scoreEntity(entry.LID, hit.Score, entry.Score, query, english)
			if err != nil {
				return nil, err
			}
			if score > scores[entry.LID] {
				scores[entry.LID] = score
			}
		}
		if limit > 0 && len(scores) > limit*10 {
			break
		}
	}

	return e.rankResults(scores, limit)
}

// gatherLabelHits merges label candidates from the external text source
// (weighted 0.9) and the SymDelete fuzzy index (weighted 1), matching
// ul.merge_ranking([responds_label_e, responds_label_f], weight=[0.9, 1]).
// Each source's own scores are min-max normalized before weighting, and a
// label hit appearing in both sources keeps its higher weighted score.
func (e *Engine) gatherLabelHits(query, lang string, limit int) ([]labelHit, error) {
	merged := map[uint32]float64{}

	if e.Text != nil {
		textHits, err := e.Text.Search(query, lang, limit)
		if err != nil {
			return nil, fmt.Errorf("fusion: text search: %w", err)
		}
		normalized := minMaxNormalize(textHits)
		for label, score := range normalized {
			stripped := labelsearch.Normalize(label, labelsearch.NormalizeOptions{Punctuations: true, Article: true, Lower: true})
			lid, found, err := e.Labels.LookupLabel(stripped)
			if err != nil {
				return nil, err
			}
			if !found {
				continue
			}
			weighted := score * 0.9
			if weighted > merged[lid] {
				merged[lid] = weighted
			}
		}
	}

	if e.SymDelete != nil {
		normalizedQuery := labelsearch.Normalize(query, labelsearch.NormalizeOptions{Punctuations: true, Article: true, Lower: true})
		bm, err := e.SymDelete.Candidates(normalizedQuery)
		if err != nil {
			return nil, fmt.Errorf("fusion: symdelete candidates: %w", err)
		}
		it := bm.Iterator()
		for it.HasNext() {
			lid := it.Next()
			if 1 > merged[lid] {
				merged[lid] = 1
			}
		}
	}

	hits := make([]labelHit, 0, len(merged))
	for lid, score := range merged {
		hits = append(hits, labelHit{LID: lid, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// minMaxNormalize rescales a text searcher's raw, source-native scores
// into 0..1 so they're comparable against the fuzzy source's scores.
func minMaxNormalize(hits []ScoredLabel) map[string]float64 {
	out := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	min, max := hits[0].Score, hits[0].Score
	for _, h := range hits {
		if h.Score < min {
			min = h.Score
		}
		if h.Score > max {
			max = h.Score
		}
	}
	spread := max - min
	for _, h := range hits {
		if spread == 0 {
			out[h.Label] = 1
			continue
		}
		out[h.Label] = (h.Score - min) / spread
	}
	return out
}

// scoreEntity computes the combined score for one candidate entity per
// spec §4.9's published weights. The English path adds a small
// main-label fuzz-ratio term and a closest-match similarity against the
// entity's full set of English labels; the non-English path instead uses
// a closest-match similarity against the entity's all-language labels.
func (e *Engine) scoreEntity(entityLID uint32, textScore, prior float64, query string, english bool) (float64, error) {
	if !english {
		labelAllSim, err := e.closestLabelSim(entityLID, query, false)
		if err != nil {
			return 0, err
		}
		return textScore*config.FusionWeightText + prior*config.FusionWeightPrior + labelAllSim*config.FusionWeightLabel, nil
	}

	var mainLabelSim float64
	if labels, ok, err := e.G.Label(entityLID); err == nil && ok {
		if main, ok := labels["en"].(string); ok && main != "" {
			mainLabelSim = FuzzRatio(main, query)
		}
	} else if err != nil {
		return 0, err
	}

	labelEnSim, err := e.closestLabelSim(entityLID, query, true)
	if err != nil {
		return 0, err
	}

	return textScore*config.FusionWeightText + prior*config.FusionWeightPrior +
		mainLabelSim*config.FusionWeightMainLabel + labelEnSim*config.FusionWeightLabel, nil
}

// closestLabelSim resolves entityLID's indexed label strings (English
// only, or all languages) and returns the best FuzzRatio against query —
// similarities.get_closest.
func (e *Engine) closestLabelSim(entityLID uint32, query string, english bool) (float64, error) {
	labelLIDs, err := e.Labels.EntityLabels(entityLID, english)
	if err != nil {
		return 0, err
	}
	if len(labelLIDs) == 0 {
		return 0, nil
	}
	texts := make([]string, 0, len(labelLIDs))
	for _, lid := range labelLIDs {
		text, found, err := e.Labels.Vocab.LookupByLID(lid)
		if err != nil {
			return 0, err
		}
		if found {
			texts = append(texts, text)
		}
	}
	_, sim := closestMatch(query, texts)
	return sim, nil
}

func (e *Engine) rankResults(scores map[uint32]float64, limit int) ([]Result, error) {
	results := make([]Result, 0, len(scores))
	for lid, score := range scores {
		id, found, err := e.G.I.LookupByLID(lid)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		results = append(results, Result{ID: id, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
