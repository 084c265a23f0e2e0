// SPDX-License-Identifier: MIT

package store

import (
	"path/filepath"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kgraph/kgraph/codec"
)

func testSchema() Schema {
	return Schema{
		{Name: "label", Kind: codec.KindObj},
		{Name: "claims_ent", Kind: codec.KindIntNumpy},
		{Name: "claims_ent_inv", Kind: codec.KindIntBitmap},
		{Name: "blob", Kind: codec.KindBytes, Compressed: true},
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"), testSchema(), WithBuffLimit(1<<20))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put("label", codec.EncodeUint32Key(1), "Douglas Adams"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, err := s.Get("label", codec.EncodeUint32Key(1))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "Douglas Adams" {
		t.Errorf("got %v", v)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("label", codec.EncodeUint32Key(99))
	if err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGetSeesBufferedBeforeFlush(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put("label", codec.EncodeUint32Key(1), "pending"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, err := s.Get("label", codec.EncodeUint32Key(1))
	if err != nil {
		t.Fatalf("Get before flush: %v", err)
	}
	if v != "pending" {
		t.Errorf("got %v", v)
	}
}

func TestFlushThenPersistsAcrossGet(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put("label", codec.EncodeUint32Key(2), "x"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	v, err := s.Get("label", codec.EncodeUint32Key(2))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "x" {
		t.Errorf("got %v", v)
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	s := openTestStore(t)
	key := codec.EncodeUint32Key(3)
	if err := s.Put("label", key, "gone soon"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := s.Delete("label", key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("label", key); err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestIterPrefix(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put("claims_ent", codec.EncodeCompositeKey(1, 10), []uint32{100, 200}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("claims_ent", codec.EncodeCompositeKey(1, 20), []uint32{300}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("claims_ent", codec.EncodeCompositeKey(2, 10), []uint32{999}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var seen int
	err := s.IterPrefix("claims_ent", codec.CompositeKeyPrefix(1), func(k, v []byte) bool {
		seen++
		return true
	})
	if err != nil {
		t.Fatalf("IterPrefix: %v", err)
	}
	if seen != 2 {
		t.Errorf("got %d matches, want 2", seen)
	}
}

func TestMergeBitmapUnions(t *testing.T) {
	s := openTestStore(t)
	key := codec.EncodeCompositeKey(1, 2)
	if err := s.MergeBitmap("claims_ent_inv", key, 10, 20); err != nil {
		t.Fatalf("MergeBitmap: %v", err)
	}
	if err := s.MergeBitmap("claims_ent_inv", key, 20, 30); err != nil {
		t.Fatalf("MergeBitmap: %v", err)
	}
	v, err := s.Get("claims_ent_inv", key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	bm := v.(*roaring.Bitmap)
	want := roaring.BitmapOf(10, 20, 30)
	if !bm.Equals(want) {
		t.Errorf("got %v, want %v", bm, want)
	}
}

func TestCompressedColumnRoundTrip(t *testing.T) {
	s := openTestStore(t)
	payload := []byte("some opaque bytes that should compress fine fine fine")
	if err := s.Put("blob", codec.EncodeUint32Key(1), payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	v, err := s.Get("blob", codec.EncodeUint32Key(1))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got := v.([]byte)
	if string(got) != string(payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestCompact(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put("label", codec.EncodeUint32Key(1), "a"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	v, err := s.Get("label", codec.EncodeUint32Key(1))
	if err != nil {
		t.Fatalf("Get after compact: %v", err)
	}
	if v != "a" {
		t.Errorf("got %v", v)
	}
}
