// SPDX-License-Identifier: MIT

package ingest

import "testing"

func TestParseEntityLineFlattensLabelsAndClaims(t *testing.T) {
	line := []byte(`{"type":"item","id":"Q42","labels":{"en":{"language":"en","value":"Douglas Adams"}},"descriptions":{"en":{"language":"en","value":"writer"}},"aliases":{"en":[{"language":"en","value":"Douglas Noel Adams"}]},"sitelinks":{"enwiki":{"site":"enwiki","title":"Douglas Adams"}},"claims":{"P31":[{"mainsnak":{"snaktype":"value","property":"P31","datavalue":{"value":{"entity-type":"item","id":"Q5"},"type":"wikibase-entityid"}}}]}}`)

	e, err := ParseEntityLine(line)
	if err != nil {
		t.Fatalf("ParseEntityLine: %v", err)
	}
	if e == nil {
		t.Fatal("expected a parsed entity")
	}
	if e.ID != "Q42" {
		t.Errorf("got id %q, want Q42", e.ID)
	}
	if e.Labels["en"] != "Douglas Adams" {
		t.Errorf("got label %q, want Douglas Adams", e.Labels["en"])
	}
	if len(e.Aliases["en"]) != 1 || e.Aliases["en"][0] != "Douglas Noel Adams" {
		t.Errorf("got aliases %v", e.Aliases["en"])
	}
	if e.Sitelinks["enwiki"] != "Douglas Adams" {
		t.Errorf("got sitelink %q", e.Sitelinks["enwiki"])
	}
	if len(e.EntityClaims) != 1 || e.EntityClaims[0].Property != "P31" || e.EntityClaims[0].Object != "Q5" {
		t.Errorf("got claims %v", e.EntityClaims)
	}
}

func TestParseEntityLineSkipsNonItemTypes(t *testing.T) {
	line := []byte(`{"type":"lexeme","id":"L1"}`)
	e, err := ParseEntityLine(line)
	if err != nil {
		t.Fatalf("ParseEntityLine: %v", err)
	}
	if e != nil {
		t.Errorf("expected lexeme entity to be skipped, got %+v", e)
	}
}

func TestNormalizeTimeStripsMidnightSuffixAndPlus(t *testing.T) {
	got := normalizeTime("+1952-03-11T00:00:00Z")
	if got != "1952-03-11" {
		t.Errorf("got %q, want 1952-03-11", got)
	}
}

func TestStripUnitIRIReturnsBareQID(t *testing.T) {
	got := stripUnitIRI("http://www.wikidata.org/entity/Q11573")
	if got != "Q11573" {
		t.Errorf("got %q, want Q11573", got)
	}
}
