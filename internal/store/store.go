// Package store persists projects and their service definitions to SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abramin/voyage/internal/catalog"
)

// DirName is the directory created under the base dir for Voyage data.
const DirName = ".voyage"

// Store handles persistence of catalog data to SQLite.
type Store struct {
	db      *sql.DB
	dbPath  string
	baseDir string
}

// Open creates or opens a Voyage catalog database.
// The database lives at .voyage/catalog.db relative to baseDir.
func Open(baseDir string) (*Store, error) {
	voyageDir := filepath.Join(baseDir, DirName)
	if err := os.MkdirAll(voyageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s directory: %w", DirName, err)
	}

	dbPath := filepath.Join(voyageDir, "catalog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{
		db:      db,
		dbPath:  dbPath,
		baseDir: baseDir,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the path to the database file.
func (s *Store) DBPath() string {
	return s.dbPath
}

// Clear removes all data from the database.
func (s *Store) Clear() error {
	for _, table := range []string{"services", "projects", "metadata"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing table %s: %w", table, err)
		}
	}
	return nil
}

// SaveProject replaces the project and all of its services in one transaction.
func (s *Store) SaveProject(p catalog.Project, source string) error {
	batch, err := s.BeginBatch()
	if err != nil {
		return fmt.Errorf("starting batch: %w", err)
	}
	if err := batch.UpsertProject(p, source); err != nil {
		batch.Rollback()
		return fmt.Errorf("saving project %s: %w", p.ID, err)
	}
	if err := batch.DeleteServices(p.ID); err != nil {
		batch.Rollback()
		return fmt.Errorf("clearing services of %s: %w", p.ID, err)
	}
	for i, svc := range p.Services {
		if err := batch.InsertService(p.ID, i, svc); err != nil {
			batch.Rollback()
			return fmt.Errorf("saving service %s/%s: %w", svc.Name, svc.Version, err)
		}
	}
	return batch.Commit()
}

// GetProject loads a project with its services in their saved order.
func (s *Store) GetProject(id string) (*catalog.Project, error) {
	p := &catalog.Project{ID: id}
	var desc, markdown sql.NullString
	err := s.db.QueryRow(
		"SELECT name, description, markdown FROM projects WHERE id = ?", id,
	).Scan(&p.Name, &desc, &markdown)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying project %s: %w", id, err)
	}
	p.Description = desc.String
	p.Markdown = markdown.String

	rows, err := s.db.Query(
		"SELECT definition FROM services WHERE project_id = ? ORDER BY position", id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying services of %s: %w", id, err)
	}
	defer rows.Close()

	p.Services = []catalog.Service{}
	for rows.Next() {
		var def string
		if err := rows.Scan(&def); err != nil {
			return nil, fmt.Errorf("scanning service: %w", err)
		}
		var svc catalog.Service
		if err := json.Unmarshal([]byte(def), &svc); err != nil {
			return nil, fmt.Errorf("decoding service: %w", err)
		}
		p.Services = append(p.Services, svc)
	}
	return p, rows.Err()
}

// ListProjects returns every stored project ordered by id.
func (s *Store) ListProjects() ([]ProjectSummary, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.name, p.description, p.source, p.updated_at, COUNT(s.name)
		FROM projects p
		LEFT JOIN services s ON s.project_id = p.id
		GROUP BY p.id
		ORDER BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []ProjectSummary
	for rows.Next() {
		var ps ProjectSummary
		var desc, source sql.NullString
		var updated string
		if err := rows.Scan(&ps.ID, &ps.Name, &desc, &source, &updated, &ps.ServiceCount); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		ps.Description = desc.String
		ps.Source = source.String
		ps.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		projects = append(projects, ps)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project and its services.
func (s *Store) DeleteProject(id string) error {
	if _, err := s.db.Exec("DELETE FROM services WHERE project_id = ?", id); err != nil {
		return fmt.Errorf("deleting services of %s: %w", id, err)
	}
	res, err := s.db.Exec("DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetMetadata stores a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetMetadata retrieves a value from the metadata table.
// A missing key yields ErrNotFound.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("metadata %s: %w", key, ErrNotFound)
	}
	return value, err
}

// GetStats returns statistics about the stored catalog.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&stats.ProjectCount); err != nil {
		return nil, fmt.Errorf("counting projects: %w", err)
	}
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(command_count), 0), COALESCE(SUM(subscription_count), 0)
		FROM services
	`).Scan(&stats.ServiceCount, &stats.CommandCount, &stats.SubscriptionCount)
	if err != nil {
		return nil, fmt.Errorf("counting services: %w", err)
	}

	if ts, err := s.GetMetadata(MetaIndexedAt); err == nil {
		stats.IndexedAt, _ = time.Parse(time.RFC3339, ts)
	}

	return stats, nil
}

// WriteIndexJSON writes index.json next to the database for quick UI boot.
func (s *Store) WriteIndexJSON() error {
	stats, err := s.GetStats()
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	projects, err := s.ListProjects()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}

	meta := &IndexMetadata{
		Version:      "1",
		BaseDir:      s.baseDir,
		IndexedAt:    stats.IndexedAt,
		ProjectCount: stats.ProjectCount,
		ServiceCount: stats.ServiceCount,
		Projects:     ids,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index.json: %w", err)
	}

	indexPath := filepath.Join(filepath.Dir(s.dbPath), "index.json")
	if err := os.WriteFile(indexPath, data, 0644); err != nil {
		return fmt.Errorf("writing index.json: %w", err)
	}

	return nil
}

// BeginBatch starts a transaction for batch writes.
// Call Commit() when done, or Rollback() on error.
func (s *Store) BeginBatch() (*BatchTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &BatchTx{tx: tx}, nil
}

// BatchTx wraps a transaction for batch operations.
type BatchTx struct {
	tx *sql.Tx
}

// Commit commits the batch transaction.
func (b *BatchTx) Commit() error {
	return b.tx.Commit()
}

// Rollback rolls back the batch transaction.
func (b *BatchTx) Rollback() error {
	return b.tx.Rollback()
}

// UpsertProject inserts or updates a project row within the batch.
func (b *BatchTx) UpsertProject(p catalog.Project, source string) error {
	_, err := b.tx.Exec(`
		INSERT INTO projects (id, name, description, markdown, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			markdown = excluded.markdown,
			source = excluded.source,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Description, p.Markdown, source, time.Now().UTC().Format(time.RFC3339))
	return err
}

// DeleteServices removes every service of a project within the batch.
func (b *BatchTx) DeleteServices(projectID string) error {
	_, err := b.tx.Exec("DELETE FROM services WHERE project_id = ?", projectID)
	return err
}

// InsertService stores one service definition within the batch.
func (b *BatchTx) InsertService(projectID string, position int, svc catalog.Service) error {
	def, err := json.Marshal(svc)
	if err != nil {
		return fmt.Errorf("encoding service: %w", err)
	}
	_, err = b.tx.Exec(`
		INSERT INTO services (project_id, name, version, position, deprecated, command_count, subscription_count, definition)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, projectID, svc.Name, svc.Version, position, svc.Deprecated, len(svc.Commands), len(svc.Subscriptions), string(def))
	return err
}
