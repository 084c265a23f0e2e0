// SPDX-License-Identifier: MIT

package intern

import (
	"path/filepath"
	"testing"

	"github.com/kgraph/kgraph/store"
)

func openTestInterner(t *testing.T) *Interner {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "test.db"), Schema)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	in, err := Open(s)
	if err != nil {
		t.Fatalf("intern.Open: %v", err)
	}
	return in
}

func TestInternAllocatesMonotoneLIDs(t *testing.T) {
	in := openTestInterner(t)

	cases := []struct {
		id   string
		want uint32
	}{
		{"Q1490", 0},
		{"Q17", 1},
		{"Q5", 2},
	}
	for _, c := range cases {
		lid, found, err := in.LookupByID(c.id, true)
		if err != nil {
			t.Fatalf("LookupByID(%s): %v", c.id, err)
		}
		if !found {
			t.Fatalf("LookupByID(%s) not found after create", c.id)
		}
		if lid != c.want {
			t.Errorf("LookupByID(%s) = %d, want %d", c.id, lid, c.want)
		}
	}
}

func TestInternIsIdempotent(t *testing.T) {
	in := openTestInterner(t)
	first, _, err := in.LookupByID("Q1490", true)
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}
	second, _, err := in.LookupByID("Q1490", true)
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}
	if first != second {
		t.Errorf("got %d then %d, want stable LID", first, second)
	}
}

func TestLookupByIDWithoutCreate(t *testing.T) {
	in := openTestInterner(t)
	_, found, err := in.LookupByID("Q999", false)
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}
	if found {
		t.Errorf("expected not found for un-interned id with create=false")
	}
}

func TestLookupByLIDRoundTrip(t *testing.T) {
	in := openTestInterner(t)
	lid, _, err := in.LookupByID("Q5", true)
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}
	id, found, err := in.LookupByLID(lid)
	if err != nil {
		t.Fatalf("LookupByLID: %v", err)
	}
	if !found || id != "Q5" {
		t.Errorf("LookupByLID(%d) = %q, %v, want Q5, true", lid, id, found)
	}
}

func TestLookupByLIDUnallocatedReturnsNotFound(t *testing.T) {
	in := openTestInterner(t)
	_, found, err := in.LookupByLID(9999)
	if err != nil {
		t.Fatalf("LookupByLID: %v", err)
	}
	if found {
		t.Errorf("expected not found for unallocated lid")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s1, err := store.Open(path, Schema)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	in1, err := Open(s1)
	if err != nil {
		t.Fatalf("intern.Open: %v", err)
	}
	lid, _, err := in1.LookupByID("Q1490", true)
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := store.Open(path, Schema)
	if err != nil {
		t.Fatalf("store.Open (reopen): %v", err)
	}
	defer s2.Close()
	in2, err := Open(s2)
	if err != nil {
		t.Fatalf("intern.Open (reopen): %v", err)
	}

	got, found, err := in2.LookupByID("Q1490", false)
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}
	if !found || got != lid {
		t.Errorf("got %d, %v, want %d, true", got, found, lid)
	}

	next, _, err := in2.LookupByID("Q17", true)
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}
	if next != lid+1 {
		t.Errorf("next LID after reopen = %d, want %d", next, lid+1)
	}
}
