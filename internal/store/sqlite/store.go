// Package sqlite persists institutions and their research results
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ppiankov/policyscout/internal/model"
	"github.com/ppiankov/policyscout/internal/store/sqlite/migrations"
)

// ErrNotFound is returned when an institution does not exist
var ErrNotFound = errors.New("not found")

// Store is the sqlite-backed storage collaborator
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore opens (creating if needed) policyscout.db under dataDir.
// An empty dataDir defaults to ~/.policyscout/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".policyscout", "data")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "policyscout.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath, now: time.Now}
	if err := s.migrate(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys embed.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// ==================== Institutions ====================

const institutionColumns = "id, name, domain, website, country, summary, last_updated"

// CreateInstitution inserts inst and returns it with its ID set. Names are
// unique, compared case-insensitively.
func (s *Store) CreateInstitution(ctx context.Context, inst model.Institution) (model.Institution, error) {
	if strings.TrimSpace(inst.Name) == "" {
		return model.Institution{}, errors.New("institution name is required")
	}
	if inst.LastUpdated.IsZero() {
		inst.LastUpdated = s.now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO universities (name, domain, website, country, summary, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
	`, inst.Name, inst.Domain, inst.Website, inst.Country, inst.Summary, inst.LastUpdated)
	if err != nil {
		return model.Institution{}, fmt.Errorf("inserting institution %q: %w", inst.Name, err)
	}

	inst.ID, err = res.LastInsertId()
	if err != nil {
		return model.Institution{}, fmt.Errorf("reading institution id: %w", err)
	}
	return inst, nil
}

// GetInstitution returns one institution by ID
func (s *Store) GetInstitution(ctx context.Context, id int64) (model.Institution, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+institutionColumns+" FROM universities WHERE id = ?", id)
	inst, err := scanInstitution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Institution{}, fmt.Errorf("institution %d: %w", id, ErrNotFound)
	}
	return inst, err
}

// FindInstitution returns the institution with exactly this name
func (s *Store) FindInstitution(ctx context.Context, name string) (model.Institution, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+institutionColumns+" FROM universities WHERE name = ?", name)
	inst, err := scanInstitution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Institution{}, fmt.Errorf("institution %q: %w", name, ErrNotFound)
	}
	return inst, err
}

// ListInstitutions returns every institution ordered by name
func (s *Store) ListInstitutions(ctx context.Context) ([]model.Institution, error) {
	return s.queryInstitutions(ctx, "SELECT "+institutionColumns+" FROM universities ORDER BY name")
}

// SearchInstitutions returns institutions whose name contains query
func (s *Store) SearchInstitutions(ctx context.Context, query string) ([]model.Institution, error) {
	return s.queryInstitutions(ctx,
		"SELECT "+institutionColumns+" FROM universities WHERE name LIKE ? ESCAPE '\\' ORDER BY name",
		"%"+escapeLike(query)+"%")
}

// UpdateSummary writes back a refreshed summary and timestamp
func (s *Store) UpdateSummary(ctx context.Context, id int64, summary string, updated time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE universities SET summary = ?, last_updated = ? WHERE id = ?",
		summary, updated.UTC(), id)
	if err != nil {
		return fmt.Errorf("updating institution %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("institution %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) queryInstitutions(ctx context.Context, query string, args ...any) ([]model.Institution, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying institutions: %w", err)
	}
	defer rows.Close()

	var out []model.Institution
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstitution(row scanner) (model.Institution, error) {
	var inst model.Institution
	err := row.Scan(&inst.ID, &inst.Name, &inst.Domain, &inst.Website, &inst.Country, &inst.Summary, &inst.LastUpdated)
	return inst, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ==================== Research results ====================

// SaveResearch replaces the stored policies and sources of one institution
// with those of result and refreshes its summary. Sources[i] is linked to
// Policies[i]; the write is a single transaction.
func (s *Store) SaveResearch(ctx context.Context, institutionID int64, result *model.ResearchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE universities SET summary = ?, last_updated = ? WHERE id = ?",
		result.Summary, now, institutionID)
	if err != nil {
		return fmt.Errorf("updating institution %d: %w", institutionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("institution %d: %w", institutionID, ErrNotFound)
	}

	// sources first: their policy_id references policies
	for _, table := range []string{"sources", "policies"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE university_id = ?", institutionID); err != nil {
			return fmt.Errorf("clearing %s of institution %d: %w", table, institutionID, err)
		}
	}

	policyIDs := make([]int64, len(result.Policies))
	for i, p := range result.Policies {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO policies (university_id, category, title, content, status, summary, implementation_date, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, institutionID, p.Category, p.Title, p.Content, string(p.Status), p.Summary, nullTime(p.ImplementationDate), p.LastUpdated)
		if err != nil {
			return fmt.Errorf("inserting policy %q: %w", p.Title, err)
		}
		if policyIDs[i], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading policy id: %w", err)
		}
	}

	for i, src := range result.Sources {
		meta, err := json.Marshal(src.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling source metadata: %w", err)
		}

		var policyID sql.NullInt64
		if i < len(policyIDs) {
			policyID = sql.NullInt64{Int64: policyIDs[i], Valid: true}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sources (university_id, policy_id, url, title, type, retrieval_date, content, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, institutionID, policyID, src.URL, src.Title, string(src.Type), src.RetrievalDate, src.Content, string(meta)); err != nil {
			return fmt.Errorf("inserting source %s: %w", src.URL, err)
		}
	}

	return tx.Commit()
}

// ListPolicies returns an institution's policies, optionally restricted to
// one category
func (s *Store) ListPolicies(ctx context.Context, institutionID int64, category string) ([]model.PolicyRecord, error) {
	query := `SELECT category, title, content, status, summary, implementation_date, last_updated
		FROM policies WHERE university_id = ?`
	args := []any{institutionID}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying policies: %w", err)
	}
	defer rows.Close()

	var out []model.PolicyRecord
	for rows.Next() {
		var (
			p           model.PolicyRecord
			status      string
			implemented sql.NullTime
		)
		if err := rows.Scan(&p.Category, &p.Title, &p.Content, &status, &p.Summary, &implemented, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("scanning policy: %w", err)
		}
		p.Status = model.PolicyStatus(status)
		if implemented.Valid {
			t := implemented.Time
			p.ImplementationDate = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListSources returns an institution's sources in insertion order
func (s *Store) ListSources(ctx context.Context, institutionID int64) ([]model.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, title, type, retrieval_date, content, metadata
		FROM sources WHERE university_id = ? ORDER BY id
	`, institutionID)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var out []model.SourceRecord
	for rows.Next() {
		var (
			src  model.SourceRecord
			typ  string
			meta string
		)
		if err := rows.Scan(&src.URL, &src.Title, &typ, &src.RetrievalDate, &src.Content, &meta); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		src.Type = model.SourceType(typ)
		if err := json.Unmarshal([]byte(meta), &src.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", src.URL, err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
