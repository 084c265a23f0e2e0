// SPDX-License-Identifier: MIT

package graph

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kgraph/kgraph/codec"
	"github.com/kgraph/kgraph/intern"
	"github.com/kgraph/kgraph/store"
)

// GraphStore is the typed façade spec §4.4 describes: entity metadata
// and claims indexed by LID, with string IDs (QIDs/PIDs) only ever
// crossing the boundary through the Interner.
type GraphStore struct {
	S *store.Store
	I *intern.Interner
}

// Open wraps an already-open *store.Store (built with Schema) and its
// Interner into a GraphStore.
func Open(s *store.Store) (*GraphStore, error) {
	in, err := intern.Open(s)
	if err != nil {
		return nil, err
	}
	return &GraphStore{S: s, I: in}, nil
}

// getObjByLID fetches an OBJ-encoded column value by LID, or (nil,
// false, nil) if absent.
func (g *GraphStore) getObjByLID(column string, lid uint32) (any, bool, error) {
	v, err := g.S.Get(column, codec.EncodeUint32Key(lid))
	if err == store.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Redirect returns the LID that lid redirects to, if any. It does not
// chase chains: spec §4.4 dereferences a redirect exactly once.
func (g *GraphStore) Redirect(lid uint32) (target uint32, ok bool, err error) {
	raw, err := g.S.GetRaw(ColumnRedirect, codec.EncodeUint32Key(lid))
	if err == store.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	t, err := codec.DecodeUint32Key(raw)
	if err != nil {
		return 0, false, err
	}
	return t, true, nil
}

// PutRedirect records that fromLID redirects to toLID, and appends
// fromLID to toLID's REDIRECT_OF list.
func (g *GraphStore) PutRedirect(fromLID, toLID uint32) error {
	if err := g.S.Put(ColumnRedirect, codec.EncodeUint32Key(fromLID), codec.EncodeUint32Key(toLID)); err != nil {
		return fmt.Errorf("graph: put redirect: %w", err)
	}
	if err := g.S.MergeNumpy(ColumnRedirectOf, codec.EncodeUint32Key(toLID), fromLID); err != nil {
		return fmt.Errorf("graph: merge redirect_of: %w", err)
	}
	return nil
}

// RedirectOf returns every LID that redirects to lid.
func (g *GraphStore) RedirectOf(lid uint32) ([]uint32, error) {
	v, err := g.S.Get(ColumnRedirectOf, codec.EncodeUint32Key(lid))
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.([]uint32), nil
}

// withRedirectFallback implements the _get_db_item pattern from
// db_core.py: look the item up directly; on a miss, dereference lid's
// redirect exactly once and look the item up again under the target. It
// never recurses into the target's own redirect.
func (g *GraphStore) withRedirectFallback(column string, lid uint32) (any, bool, error) {
	v, ok, err := g.getObjByLID(column, lid)
	if err != nil || ok {
		return v, ok, err
	}
	target, hasRedirect, err := g.Redirect(lid)
	if err != nil || !hasRedirect {
		return nil, false, err
	}
	return g.getObjByLID(column, target)
}

// Label returns the label map (lang -> text) for lid, following a single
// redirect hop if lid itself has no label.
func (g *GraphStore) Label(lid uint32) (map[string]any, bool, error) {
	v, ok, err := g.withRedirectFallback(ColumnLabel, lid)
	if !ok || err != nil {
		return nil, ok, err
	}
	return v.(map[string]any), true, nil
}

// PutLabel sets the full label map for lid.
func (g *GraphStore) PutLabel(lid uint32, labels map[string]string) error {
	return g.S.Put(ColumnLabel, codec.EncodeUint32Key(lid), labels)
}

// Desc returns the description map for lid, following a redirect hop on miss.
func (g *GraphStore) Desc(lid uint32) (map[string]any, bool, error) {
	v, ok, err := g.withRedirectFallback(ColumnDesc, lid)
	if !ok || err != nil {
		return nil, ok, err
	}
	return v.(map[string]any), true, nil
}

// PutDesc sets the full description map for lid.
func (g *GraphStore) PutDesc(lid uint32, desc map[string]string) error {
	return g.S.Put(ColumnDesc, codec.EncodeUint32Key(lid), desc)
}

// Aliases returns the alias map (lang -> []string) for lid.
func (g *GraphStore) Aliases(lid uint32) (map[string]any, bool, error) {
	v, ok, err := g.withRedirectFallback(ColumnAliases, lid)
	if !ok || err != nil {
		return nil, ok, err
	}
	return v.(map[string]any), true, nil
}

// PutAliases sets the full alias map for lid.
func (g *GraphStore) PutAliases(lid uint32, aliases map[string][]string) error {
	return g.S.Put(ColumnAliases, codec.EncodeUint32Key(lid), aliases)
}

// PutSitelinks sets the wiki-sitelink map (lang -> page title) for lid.
func (g *GraphStore) PutSitelinks(lid uint32, sitelinks map[string]string) error {
	return g.S.Put(ColumnSitelinks, codec.EncodeUint32Key(lid), sitelinks)
}

// Sitelinks returns the sitelink map for lid.
func (g *GraphStore) Sitelinks(lid uint32) (map[string]any, bool, error) {
	v, ok, err := g.getObjByLID(ColumnSitelinks, lid)
	if !ok || err != nil {
		return nil, ok, err
	}
	return v.(map[string]any), true, nil
}

// PutClaimEnt records that subjectLID --propertyLID--> objectLID,
// updating both the forward (CLAIMS_ENT) and inverse (CLAIMS_ENT_INV)
// indices.
func (g *GraphStore) PutClaimEnt(subjectLID, propLID, objectLID uint32) error {
	fwdKey := codec.EncodeCompositeKey(subjectLID, propLID)
	if err := g.S.MergeNumpy(ColumnClaimsEnt, fwdKey, objectLID); err != nil {
		return fmt.Errorf("graph: merge claims_ent: %w", err)
	}
	invKey := codec.EncodeCompositeKey(objectLID, propLID)
	if err := g.S.MergeBitmap(ColumnClaimsEntInv, invKey, subjectLID); err != nil {
		return fmt.Errorf("graph: merge claims_ent_inv: %w", err)
	}
	return nil
}

// ClaimsEnt returns the sorted object LIDs subjectLID holds propertyLID
// claims to.
func (g *GraphStore) ClaimsEnt(subjectLID, propLID uint32) ([]uint32, error) {
	v, err := g.S.Get(ColumnClaimsEnt, codec.EncodeCompositeKey(subjectLID, propLID))
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.([]uint32), nil
}

// ClaimsEntInv returns the bitmap of subject LIDs that hold a
// propertyLID claim to objectLID.
func (g *GraphStore) ClaimsEntInv(objectLID, propLID uint32) (*roaring.Bitmap, error) {
	v, err := g.S.Get(ColumnClaimsEntInv, codec.EncodeCompositeKey(objectLID, propLID))
	if err == store.ErrNotFound {
		return roaring.New(), nil
	}
	if err != nil {
		return nil, err
	}
	return v.(*roaring.Bitmap), nil
}

// PutClaimLit records a literal-valued claim (e.g. a date, quantity or
// string) for subjectLID/propLID.
func (g *GraphStore) PutClaimLit(subjectLID, propLID uint32, literals []any) error {
	return g.S.Put(ColumnClaimsLit, codec.EncodeCompositeKey(subjectLID, propLID), literals)
}

// ClaimsLit returns the literal values for subjectLID/propLID.
func (g *GraphStore) ClaimsLit(subjectLID, propLID uint32) ([]any, error) {
	v, err := g.S.Get(ColumnClaimsLit, codec.EncodeCompositeKey(subjectLID, propLID))
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}

// PutWikipedia records the Wikipedia page metadata cross-linked to lid.
func (g *GraphStore) PutWikipedia(lid uint32, meta map[string]any) error {
	return g.S.Put(ColumnWikipedia, codec.EncodeUint32Key(lid), meta)
}

// Wikipedia returns the Wikipedia page metadata for lid.
func (g *GraphStore) Wikipedia(lid uint32) (map[string]any, bool, error) {
	v, ok, err := g.getObjByLID(ColumnWikipedia, lid)
	if !ok || err != nil {
		return nil, ok, err
	}
	return v.(map[string]any), true, nil
}

// PutDBpedia records the DBpedia metadata cross-linked to lid.
func (g *GraphStore) PutDBpedia(lid uint32, meta map[string]any) error {
	return g.S.Put(ColumnDBpedia, codec.EncodeUint32Key(lid), meta)
}

// DBpedia returns the DBpedia metadata for lid.
func (g *GraphStore) DBpedia(lid uint32) (map[string]any, bool, error) {
	v, ok, err := g.getObjByLID(ColumnDBpedia, lid)
	if !ok || err != nil {
		return nil, ok, err
	}
	return v.(map[string]any), true, nil
}

// PutPageRank stores the PageRank score for lid as an 8-byte big-endian
// float64 bit pattern, avoiding an OBJ/msgpack round trip for a single
// scalar written once per entity per run.
func (g *GraphStore) PutPageRank(lid uint32, score float64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(score))
	return g.S.Put(ColumnPageRank, codec.EncodeUint32Key(lid), b)
}

// PageRank returns the stored PageRank score for lid, or 0 if none has
// been computed yet.
func (g *GraphStore) PageRank(lid uint32) (float64, bool, error) {
	raw, err := g.S.GetRaw(ColumnPageRank, codec.EncodeUint32Key(lid))
	if err == store.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(raw)), true, nil
}

// SortedLIDs is a small helper used by higher layers that need a stable
// iteration order over a set of LIDs (e.g. building ranked lists).
func SortedLIDs(ids []uint32) []uint32 {
	out := append([]uint32(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
