// Package store persists finished extraction results keyed by document
// hash, so re-uploads of the same PDF can be served without a new session
// and results can be exported later.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Extraction is one persisted result row.
type Extraction struct {
	DocID     string
	Model     string
	CreatedAt time.Time
	Record    invoice.Record
}

func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS extractions (
		doc_id TEXT PRIMARY KEY,
		model TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		record_json TEXT NOT NULL,
		agent_raw TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// Save upserts one extraction result. Documents are immutable, so a
// re-extraction of the same bytes simply replaces the previous row.
func (s *Store) Save(ctx context.Context, docID, model string, rec invoice.Record, agentRaw json.RawMessage) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO extractions (doc_id, model, created_at, record_json, agent_raw)
		VALUES (?, ?, CURRENT_TIMESTAMP, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			model = excluded.model,
			created_at = excluded.created_at,
			record_json = excluded.record_json,
			agent_raw = excluded.agent_raw
	`, docID, model, string(b), string(agentRaw))
	if err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	s.logger.Info("store.save.ok", "doc_id", docID, "model", model)
	return nil
}

// Get returns the stored result for a document, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, docID string) (*Extraction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, model, created_at, record_json
		FROM extractions WHERE doc_id = ?
	`, docID)
	return scanExtraction(row)
}

// List returns all stored results, newest first.
func (s *Store) List(ctx context.Context) ([]Extraction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, model, created_at, record_json
		FROM extractions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	var out []Extraction
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExtraction(row scanner) (*Extraction, error) {
	var e Extraction
	var recJSON string
	if err := row.Scan(&e.DocID, &e.Model, &e.CreatedAt, &recJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(recJSON), &e.Record); err != nil {
		return nil, fmt.Errorf("unmarshal record for %s: %w", e.DocID, err)
	}
	return &e, nil
}
