// Package history persists an audit log of resolution attempts in SQLite.
// The log is how low-confidence answers and repeated misses get reviewed.
package history

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the resolution log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used
// by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "deptline.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't
// been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// SaveResolution records a lookup outcome. A missing ID or CreatedAt is
// filled in.
func (s *Store) SaveResolution(r Resolution) (Resolution, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	phonesJSON := r.PhonesJSON
	if phonesJSON == "" {
		phonesJSON = "[]"
	}
	urlsJSON := r.URLsJSON
	if urlsJSON == "" {
		urlsJSON = "[]"
	}

	_, err := s.db.Exec(`
		INSERT INTO resolutions (id, created_at, query, interpreted, found, department, phone, source, reason, low_confidence, phones_json, urls_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Query, r.Interpreted,
		r.Found, r.Department, r.Phone, r.Source, r.Reason, r.LowConfidence,
		phonesJSON, urlsJSON,
	)
	if err != nil {
		return Resolution{}, err
	}
	r.PhonesJSON = phonesJSON
	r.URLsJSON = urlsJSON
	return r, nil
}

// GetResolution returns a single record by ID.
func (s *Store) GetResolution(id string) (Resolution, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, query, interpreted, found, department, phone, source, reason, low_confidence, phones_json, urls_json
		FROM resolutions WHERE id = ?`, id)
	r, err := scanResolution(row)
	if err == sql.ErrNoRows {
		return Resolution{}, ErrNotFound
	}
	return r, err
}

// ListResolutions returns records newest-first.
func (s *Store) ListResolutions(limit, offset int) ([]Resolution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, query, interpreted, found, department, phone, source, reason, low_confidence, phones_json, urls_json
		FROM resolutions ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Resolution
	for rows.Next() {
		r, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResolution(row scanner) (Resolution, error) {
	var r Resolution
	var createdAt string
	err := row.Scan(&r.ID, &createdAt, &r.Query, &r.Interpreted, &r.Found,
		&r.Department, &r.Phone, &r.Source, &r.Reason, &r.LowConfidence,
		&r.PhonesJSON, &r.URLsJSON)
	if err != nil {
		return Resolution{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Resolution{}, fmt.Errorf("parsing created_at: %w", err)
	}
	r.CreatedAt = t
	return r, nil
}
