// SPDX-License-Identifier: MIT

// Package graph implements the typed façade over store+intern (spec
// §4.4): label/description/alias/sitelink columns, the forward and
// inverse claims indices, redirects, and the per-source metadata columns
// (Wikipedia, DBpedia, PageRank), grounded on the original's
// resources/db/db_core.py (redirect dereference, ID_LID/LID_ID wiring)
// and the column-name-constant documentation style of
// other_examples/fdb2d8b2_Irregularshooter-amc__internal-kv-tables.go.go.
package graph

import (
	"github.com/kgraph/kgraph/codec"
	"github.com/kgraph/kgraph/intern"
	"github.com/kgraph/kgraph/store"
)

// Column names, matching spec §4.4.
const (
	ColumnLabel        = "label"          // LID -> OBJ map[lang]string, canonical label
	ColumnAliases      = "aliases"        // LID -> OBJ map[lang][]string
	ColumnDesc         = "desc"           // LID -> OBJ map[lang]string
	ColumnSitelinks    = "sitelinks"      // LID -> OBJ map[lang]string (wiki page title)
	ColumnClaimsEnt    = "claims_ent"     // (subjLID,propLID) -> INT_NUMPY sorted []objLID
	ColumnClaimsEntInv = "claims_ent_inv" // (objLID,propLID) -> INT_BITMAP {subjLID}
	ColumnClaimsLit    = "claims_lit"     // (subjLID,propLID) -> OBJ []literal
	ColumnRedirect     = "redirect"       // LID -> BYTES 4-byte target LID
	ColumnRedirectOf   = "redirect_of"    // LID -> INT_NUMPY []sourceLID
	ColumnWikipedia    = "wikipedia"      // LID -> OBJ {site,title}
	ColumnDBpedia      = "dbpedia"        // LID -> OBJ {uri,...}
	ColumnPageRank     = "pagerank"       // LID -> BYTES 8-byte big-endian float64
)

// Schema is the full store.Schema for a GraphStore, including the
// Interner's own columns since a GraphStore always owns its Interner.
var Schema = append(append(store.Schema{}, intern.Schema...), store.Schema{
	{Name: ColumnLabel, Kind: codec.KindObj},
	{Name: ColumnAliases, Kind: codec.KindObj},
	{Name: ColumnDesc, Kind: codec.KindObj},
	{Name: ColumnSitelinks, Kind: codec.KindObj},
	{Name: ColumnClaimsEnt, Kind: codec.KindIntNumpy},
	{Name: ColumnClaimsEntInv, Kind: codec.KindIntBitmap},
	{Name: ColumnClaimsLit, Kind: codec.KindObj, Compressed: true},
	{Name: ColumnRedirect, Kind: codec.KindBytes},
	{Name: ColumnRedirectOf, Kind: codec.KindIntNumpy},
	{Name: ColumnWikipedia, Kind: codec.KindObj},
	{Name: ColumnDBpedia, Kind: codec.KindObj},
	{Name: ColumnPageRank, Kind: codec.KindBytes},
}...)
