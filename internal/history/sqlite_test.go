package history

import (
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetResolution(t *testing.T) {
	s := openTestStore(t)

	saved, err := s.SaveResolution(Resolution{
		Query:       "housing",
		Interpreted: "Student Housing",
		Found:       true,
		Department:  "Student Housing",
		Phone:       "(713) 743-6000",
		Source:      "web",
		PhonesJSON:  `["(713) 743-6000"]`,
		URLsJSON:    `["https://uh.edu/housing"]`,
	})
	if err != nil {
		t.Fatalf("SaveResolution: %v", err)
	}
	if saved.ID == "" {
		t.Error("ID not generated")
	}
	if saved.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	got, err := s.GetResolution(saved.ID)
	if err != nil {
		t.Fatalf("GetResolution: %v", err)
	}
	if got.Department != "Student Housing" || got.Phone != "(713) 743-6000" || got.Source != "web" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.PhonesJSON != `["(713) 743-6000"]` {
		t.Errorf("PhonesJSON = %q", got.PhonesJSON)
	}
}

func TestGetResolution_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetResolution("nope"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveResolution_MissRecord(t *testing.T) {
	s := openTestStore(t)

	saved, err := s.SaveResolution(Resolution{
		Query:       "quantum basket weaving",
		Interpreted: "Quantum Basket Weaving",
		Found:       false,
		Reason:      "no pages found",
	})
	if err != nil {
		t.Fatalf("SaveResolution: %v", err)
	}

	got, err := s.GetResolution(saved.ID)
	if err != nil {
		t.Fatalf("GetResolution: %v", err)
	}
	if got.Found {
		t.Error("miss recorded as found")
	}
	if got.Reason != "no pages found" {
		t.Errorf("Reason = %q", got.Reason)
	}
	if got.PhonesJSON != "[]" || got.URLsJSON != "[]" {
		t.Errorf("empty JSON fields not defaulted: %q %q", got.PhonesJSON, got.URLsJSON)
	}
}

func TestListResolutions_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.SaveResolution(Resolution{
			Query:     "q",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Phone:     "(713) 743-000" + string(rune('0'+i)),
		})
		if err != nil {
			t.Fatalf("SaveResolution: %v", err)
		}
	}

	got, err := s.ListResolutions(2, 0)
	if err != nil {
		t.Fatalf("ListResolutions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Phone != "(713) 743-0002" {
		t.Errorf("first record = %+v, want newest", got[0])
	}

	rest, err := s.ListResolutions(2, 2)
	if err != nil {
		t.Fatalf("ListResolutions offset: %v", err)
	}
	if len(rest) != 1 || rest[0].Phone != "(713) 743-0000" {
		t.Errorf("offset page = %+v, want oldest record", rest)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := s.SaveResolution(Resolution{Query: "x"}); err != nil {
		t.Fatalf("SaveResolution: %v", err)
	}
	s.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()
	got, err := s2.ListResolutions(10, 0)
	if err != nil {
		t.Fatalf("ListResolutions: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d records after reopen, want 1", len(got))
	}
}
