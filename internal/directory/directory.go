// Package directory persists the durable department → phone-number mapping
// as a JSON file and answers fuzzy lookups over it.
package directory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const storeFileName = "phone_database.json"

// Department is one durable directory record. Names are unique under
// case-insensitive comparison.
type Department struct {
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phoneNumber"`
	Aliases     []string  `json:"aliases"`
	Added       time.Time `json:"added"`
	LastValid   time.Time `json:"lastValid"`
}

// Match is a successful directory lookup.
type Match struct {
	Department  string
	PhoneNumber string
	Exact       bool
}

type metadata struct {
	LastUpdated time.Time `json:"last_updated"`
}

type storeFile struct {
	Departments []Department `json:"departments"`
	Metadata    metadata     `json:"metadata"`
}

// Store is a mutex-guarded repository over the JSON store file. The file is
// re-read on every operation; a corrupt or unreadable file is treated as
// empty and reinitialized rather than surfaced as an error.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// Open creates dataDir if needed and initializes an empty store file on
// first run.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	s := &Store{
		path: filepath.Join(dataDir, storeFileName),
		now:  time.Now,
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := s.persist(storeFile{Departments: []Department{}, Metadata: metadata{LastUpdated: s.now().UTC()}}); err != nil {
			return nil, fmt.Errorf("initializing store: %w", err)
		}
	}
	return s, nil
}

// load reads the store file. Corruption reinitializes the store empty.
func (s *Store) load() storeFile {
	empty := storeFile{Departments: []Department{}, Metadata: metadata{LastUpdated: s.now().UTC()}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		slog.Warn("directory: unreadable store, reinitializing", "path", s.path, "error", err)
		_ = s.persist(empty)
		return empty
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Warn("directory: corrupt store, reinitializing", "path", s.path, "error", err)
		_ = s.persist(empty)
		return empty
	}
	if f.Departments == nil {
		f.Departments = []Department{}
	}
	return f
}

// persist writes the store atomically: temp file in the same directory,
// then rename. A crash mid-write leaves the previous file intact.
func (s *Store) persist(f storeFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), storeFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp store file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp store file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing store file: %w", err)
	}
	return nil
}

// Upsert adds or updates a department. An existing record (case-insensitive
// name match) gets its phone number overwritten, lastValid refreshed, and
// the lowercased aliases union-merged; a new record is appended. The
// store-level last_updated timestamp is always refreshed.
func (s *Store) Upsert(name, phoneNumber string, aliases []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	now := s.now().UTC()

	idx := -1
	for i, d := range f.Departments {
		if strings.EqualFold(d.Name, name) {
			idx = i
			break
		}
	}

	if idx >= 0 {
		f.Departments[idx].PhoneNumber = phoneNumber
		f.Departments[idx].LastValid = now
		f.Departments[idx].Aliases = mergeAliases(f.Departments[idx].Aliases, aliases)
	} else {
		f.Departments = append(f.Departments, Department{
			Name:        name,
			PhoneNumber: phoneNumber,
			Aliases:     lowerAll(aliases),
			Added:       now,
			LastValid:   now,
		})
	}

	f.Metadata.LastUpdated = now
	return s.persist(f)
}

// Search looks up a department by normalized query. Exact name match wins;
// otherwise the first record (in store order) whose name contains the query
// or is contained in it is returned.
func (s *Store) Search(query string) (Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Match{}, false
	}

	for _, d := range f.Departments {
		if strings.ToLower(d.Name) == q {
			return Match{Department: d.Name, PhoneNumber: d.PhoneNumber, Exact: true}, true
		}
	}
	for _, d := range f.Departments {
		name := strings.ToLower(d.Name)
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return Match{Department: d.Name, PhoneNumber: d.PhoneNumber}, true
		}
	}
	return Match{}, false
}

// List returns all records in store order.
func (s *Store) List() []Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().Departments
}

func mergeAliases(existing, add []string) []string {
	out := existing
	for _, a := range add {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		found := false
		for _, e := range out {
			if e == a {
				found = true
				break
			}
		}
		if !found {
			out = append(out, a)
		}
	}
	return out
}

func lowerAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
