// SPDX-License-Identifier: MIT

package labelsearch

import "testing"

func TestNormalizeLowercasesAndCollapsesRepeats(t *testing.T) {
	got := Normalize("SOOOO Good!!!", NormalizeOptions{Article: true, Lower: true})
	want := "soo good"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeStripsArticles(t *testing.T) {
	got := Normalize("The Lord of the Rings", NormalizeOptions{Article: false, Lower: true, Punctuations: true})
	if got == "the lord of the rings" {
		t.Errorf("expected articles stripped, got %q", got)
	}
}

func TestNormalizeKeepsPunctuationOnlyIfResultWouldBeEmpty(t *testing.T) {
	got := Normalize("!!!", NormalizeOptions{Article: true, Lower: true})
	if got != "!!!" {
		t.Errorf("got %q, want punctuation preserved since stripping empties the string", got)
	}
}

func TestNormalizeStripsPunctuationWhenNonEmptyResultRemains(t *testing.T) {
	got := Normalize("Tokyo!", NormalizeOptions{Article: true, Lower: true})
	if got != "tokyo" {
		t.Errorf("got %q, want %q", got, "tokyo")
	}
}

func TestIsWikidataItem(t *testing.T) {
	cases := map[string]bool{
		"Q42":    true,
		"P31":    true,
		"Q":      false,
		"QAB":    false,
		"Tokyo":  false,
		"Q42abc": false,
	}
	for s, want := range cases {
		if got := IsWikidataItem(s); got != want {
			t.Errorf("IsWikidataItem(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestAbbreviateHumanName(t *testing.T) {
	got, ok := AbbreviateHumanName("Douglas Adams")
	if !ok || got != "D. Adams" {
		t.Errorf("got %q, %v, want %q, true", got, ok, "D. Adams")
	}
	_, ok = AbbreviateHumanName("Cher")
	if ok {
		t.Errorf("expected no abbreviation for a single-word name")
	}
}
