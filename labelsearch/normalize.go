// SPDX-License-Identifier: MIT

// Package labelsearch implements the label normalization pipeline,
// vocabulary and PageRank-ranked lookup lists of spec §4.7, grounded on
// the original's resources/db/db_entity_labels.py (DBELabel.norm_text,
// get_lid, build_label_wd_id_ranking_pagerank).
package labelsearch

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	articleRe  = regexp.MustCompile(`\b(a|an|the|and)\b`)
	whitespace = regexp.MustCompile(`\s+`)
)

// NormalizeOptions controls the optional steps of Normalize; the
// mandatory steps (mojibake repair, Cf-category strip, NFKC, repeated-
// letter collapse, whitespace collapse) always run.
type NormalizeOptions struct {
	// Punctuations, if true, keeps punctuation in the result. If false
	// (the default), punctuation is stripped — but only when doing so
	// would not empty out the string entirely, matching the original's
	// "keep punctuation rather than end up with nothing" fallback.
	Punctuations bool
	// Article, if true, keeps articles ("a", "an", "the", "and") in the
	// result. If false, they are replaced with a space.
	Article bool
	// Lower, if true, lowercases the result. If false (the default), case
	// is kept.
	Lower bool
}

// Normalize runs the label normalization pipeline spec §4.7 describes.
func Normalize(text string, opts NormalizeOptions) string {
	text = repairMojibake(text)
	text = stripFormatCodepoints(text)
	text = norm.NFKC.String(text)
	if opts.Lower {
		text = strings.ToLower(text)
	}
	if !opts.Article {
		text = articleRe.ReplaceAllString(text, " ")
	}
	text = collapseRepeats(text)
	if !opts.Punctuations {
		stripped := stripPunctuation(text)
		if stripped != "" {
			text = stripped
		}
	}
	text = whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
	return text
}

// stripFormatCodepoints removes Unicode category Cf (format) characters
// — zero-width joiners, directional marks and the like — which carry no
// visible meaning but break exact-match lookups when present.
func stripFormatCodepoints(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// collapseRepeats shortens every run of three or more of the same ASCII
// letter to two.
func collapseRepeats(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev && ((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			run++
		} else {
			prev, run = r, 1
		}
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// repairMojibake fixes the single most common "double-encoded UTF-8"
// mojibake pattern — text that was UTF-8 bytes, mis-decoded once as
// Latin-1 or Windows-1252 and re-encoded as UTF-8 — by detecting runs of
// the resulting telltale characters (Â, Ã, â€¦) and reversing the
// mis-decode. This covers the bulk of what the original's ftfy
// dependency fixes for Wikidata/DBpedia dumps; no pack example wires a
// general mojibake-repair library, so this stays a small stdlib routine
// rather than a partial reimplementation of ftfy's much larger heuristic
// table.
func repairMojibake(s string) string {
	if !strings.ContainsAny(s, "ÂÃâ") {
		return s
	}
	fixed := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			// Outside Latin-1 range: this wasn't a mis-decode, bail out
			// and return the original text unchanged.
			return s
		}
		fixed = append(fixed, byte(r))
	}
	if !utf8.Valid(fixed) {
		return s
	}
	return string(fixed)
}
