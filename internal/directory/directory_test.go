package directory

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestSearch_ExactMatch(t *testing.T) {
	s := openTestStore(t)
	if err := s.Upsert("Student Housing", "(713) 743-6000", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	m, ok := s.Search("student housing")
	if !ok {
		t.Fatal("Search returned no match")
	}
	if !m.Exact {
		t.Error("expected exact match")
	}
	if m.PhoneNumber != "(713) 743-6000" {
		t.Errorf("PhoneNumber = %q", m.PhoneNumber)
	}
}

func TestSearch_SubstringBothWays(t *testing.T) {
	s := openTestStore(t)
	if err := s.Upsert("Student Housing", "(713) 743-6000", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Query is a substring of the name.
	if _, ok := s.Search("housing"); !ok {
		t.Error("query-in-name substring match failed")
	}
	// Name is a substring of the query.
	if _, ok := s.Search("student housing office"); !ok {
		t.Error("name-in-query substring match failed")
	}
}

func TestSearch_ExactWinsOverSubstring(t *testing.T) {
	s := openTestStore(t)
	if err := s.Upsert("Housing Operations", "(713) 743-1111", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert("Housing", "(713) 743-2222", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	m, ok := s.Search("housing")
	if !ok {
		t.Fatal("Search returned no match")
	}
	if m.Department != "Housing" {
		t.Errorf("Department = %q, want exact match to win", m.Department)
	}
}

func TestSearch_SubstringStoreOrder(t *testing.T) {
	s := openTestStore(t)
	if err := s.Upsert("Housing Operations", "(713) 743-1111", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert("Graduate Housing", "(713) 743-2222", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	m, _ := s.Search("housing")
	if m.Department != "Housing Operations" {
		t.Errorf("Department = %q, want first record in store order", m.Department)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Upsert("Bursar", "(713) 743-1010", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	first, ok1 := s.Search("bursar")
	second, ok2 := s.Search("bursar")
	if ok1 != ok2 || first != second {
		t.Errorf("repeated Search differs: %+v vs %+v", first, second)
	}
}

func TestSearch_Miss(t *testing.T) {
	s := openTestStore(t)
	if _, ok := s.Search("parking"); ok {
		t.Error("Search on empty store returned a match")
	}
}

func TestUpsert_UpdatePreservesAliases(t *testing.T) {
	s := openTestStore(t)
	if err := s.Upsert("IT Support", "(713) 743-1411", []string{"help desk"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert("it support", "(713) 743-9999", []string{"Tech Support"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	depts := s.List()
	if len(depts) != 1 {
		t.Fatalf("List returned %d records, want 1 (case-insensitive upsert)", len(depts))
	}
	d := depts[0]
	if d.PhoneNumber != "(713) 743-9999" {
		t.Errorf("PhoneNumber = %q, want overwritten value", d.PhoneNumber)
	}
	if len(d.Aliases) != 2 {
		t.Fatalf("Aliases = %v, want union of both", d.Aliases)
	}
	if d.Aliases[0] != "help desk" || d.Aliases[1] != "tech support" {
		t.Errorf("Aliases = %v, want lowercased union preserving order", d.Aliases)
	}
}

func TestOpen_CorruptFileReinitialized(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, storeFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.Search("anything"); ok {
		t.Error("corrupt store should behave as empty")
	}
	if err := s.Upsert("Bursar", "(713) 743-1010", nil); err != nil {
		t.Fatalf("Upsert after corruption: %v", err)
	}
	if len(s.List()) != 1 {
		t.Error("store unusable after reinitialization")
	}
}
