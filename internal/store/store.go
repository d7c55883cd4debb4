package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/jmartell/docintel/internal/pipeline"
)

// Store persists finished runs so summaries survive the process. It speaks
// SQLite for local/batch use and Postgres for deployments; the DSN picks the
// driver.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

const ddl = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	cancelled   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_documents (
	run_id        TEXT NOT NULL,
	idx           INTEGER NOT NULL,
	filename      TEXT NOT NULL,
	status        TEXT NOT NULL,
	detected_type TEXT NOT NULL DEFAULT '',
	type_score    REAL NOT NULL DEFAULT 0,
	confidence    REAL NOT NULL DEFAULT 0,
	error_kind    TEXT NOT NULL DEFAULT '',
	error_detail  TEXT NOT NULL DEFAULT '',
	fields_json   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, idx)
);
`

// Open connects, pings, and ensures the schema exists. DSNs beginning with
// postgres:// or postgresql:// use pgx; everything else is treated as a
// SQLite path (":memory:" included).
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	if driver == "sqlite" {
		// a pooled second connection to :memory: would see an empty database
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s store: %w", driver, err)
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("store.open", "driver", driver)
	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes a finished summary and all of its records in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, summary pipeline.RunSummary) error {
	ok, failed, cancelled := summary.Counts()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, succeeded, failed, cancelled)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		summary.RunID.String(), summary.StartedAt, summary.FinishedAt, ok, failed, cancelled,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, rec := range summary.Records {
		var conf float32
		var fieldsJSON string
		if rec.Result != nil {
			conf = rec.Result.ConfidenceScore
			if b, err := json.Marshal(rec.Result.Fields); err == nil {
				fieldsJSON = string(b)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_documents
			 (run_id, idx, filename, status, detected_type, type_score, confidence, error_kind, error_detail, fields_json)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			summary.RunID.String(), i, rec.Filename, string(rec.Status), string(rec.DetectedType),
			rec.TypeScore, conf, string(rec.ErrorKind), rec.ErrorDetail, fieldsJSON,
		); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Info("store.run_saved", "run_id", summary.RunID, "records", len(summary.Records))
	return nil
}

// RunRow is a persisted run header.
type RunRow struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
	Cancelled  int
}

// ListRuns returns run headers newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, succeeded, failed, cancelled
		 FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Succeeded, &r.Failed, &r.Cancelled); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DocumentRow is a persisted per-document record.
type DocumentRow struct {
	RunID        string
	Index        int
	Filename     string
	Status       string
	DetectedType string
	TypeScore    float32
	Confidence   float32
	ErrorKind    string
	ErrorDetail  string
	FieldsJSON   string
}

// ListRunDocuments returns a run's records in input order.
func (s *Store) ListRunDocuments(ctx context.Context, runID string) ([]DocumentRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, idx, filename, status, detected_type, type_score, confidence, error_kind, error_detail, fields_json
		 FROM run_documents WHERE run_id = $1 ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.RunID, &d.Index, &d.Filename, &d.Status, &d.DetectedType,
			&d.TypeScore, &d.Confidence, &d.ErrorKind, &d.ErrorDetail, &d.FieldsJSON); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
