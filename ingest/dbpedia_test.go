// SPDX-License-Identifier: MIT

package ingest

import "testing"

func TestParseTripleLineObjectIRI(t *testing.T) {
	tr, ok := ParseTripleLine(`<http://dbpedia.org/resource/Tokyo> <http://dbpedia.org/ontology/country> <http://dbpedia.org/resource/Japan> .`)
	if !ok {
		t.Fatal("expected a parsed triple")
	}
	if tr.Subject != "Tokyo" || tr.Property != "country" || tr.Object != "Japan" {
		t.Errorf("got %+v", tr)
	}
}

func TestParseTripleLineLanguageTaggedLiteral(t *testing.T) {
	tr, ok := ParseTripleLine(`<http://dbpedia.org/resource/Tokyo> <http://www.w3.org/2000/01/rdf-schema#label> "Tokyo"@en .`)
	if !ok {
		t.Fatal("expected a parsed triple")
	}
	if tr.Literal != "Tokyo" || tr.LiteralLang != "en" {
		t.Errorf("got %+v", tr)
	}
}

func TestParseTripleLineTypedLiteral(t *testing.T) {
	tr, ok := ParseTripleLine(`<http://dbpedia.org/resource/Tokyo> <http://dbpedia.org/ontology/population> "13960000"^^<http://www.w3.org/2001/XMLSchema#integer> .`)
	if !ok {
		t.Fatal("expected a parsed triple")
	}
	if tr.Literal != "13960000" || tr.LiteralType != "http://www.w3.org/2001/XMLSchema#integer" {
		t.Errorf("got %+v", tr)
	}
}

func TestParseTripleLineSkipsBlankAndCommentLines(t *testing.T) {
	if _, ok := ParseTripleLine(""); ok {
		t.Error("expected blank line to be rejected")
	}
	if _, ok := ParseTripleLine("# a comment"); ok {
		t.Error("expected comment line to be rejected")
	}
}
