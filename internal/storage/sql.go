package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"biochem/internal/genome"
	"biochem/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQLStore persists JSON payloads in SQLite or Postgres through sqlx.
type SQLStore struct {
	driver string
	dsn    string

	mu sync.RWMutex
	db *sqlx.DB
}

func NewSQLiteStore(path string) *SQLStore {
	return &SQLStore{driver: DriverSQLite, dsn: path}
}

func NewPostgresStore(dsn string) *SQLStore {
	return &SQLStore{driver: DriverPostgres, dsn: dsn}
}

type payloadRow struct {
	ID        string `db:"id"`
	StartedAt int64  `db:"started_at"`
	Payload   string `db:"payload"`
}

func (s *SQLStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dsn == "" {
		return fmt.Errorf("%s dsn is required", s.driver)
	}
	if s.db != nil {
		return nil
	}

	db, err := sqlx.Open(s.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping %s: %w", s.driver, err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	s.db = db
	return nil
}

func (s *SQLStore) SaveGenome(ctx context.Context, id string, g *genome.Genome) error {
	payload, err := EncodeGenome(g)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "genomes", payloadRow{ID: id, Payload: string(payload)})
}

func (s *SQLStore) GetGenome(ctx context.Context, id string) (*genome.Genome, bool, error) {
	payload, ok, err := s.payload(ctx, "genomes", id)
	if err != nil || !ok {
		return nil, ok, err
	}
	g, err := DecodeGenome([]byte(payload))
	if err != nil {
		return nil, false, fmt.Errorf("decode genome %s: %w", id, err)
	}
	return g, true, nil
}

func (s *SQLStore) SaveEpochHistory(ctx context.Context, runID string, history []model.EpochRecord) error {
	payload, err := EncodeEpochHistory(history)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "epochs", payloadRow{ID: runID, Payload: string(payload)})
}

func (s *SQLStore) GetEpochHistory(ctx context.Context, runID string) ([]model.EpochRecord, bool, error) {
	payload, ok, err := s.payload(ctx, "epochs", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	history, err := DecodeEpochHistory([]byte(payload))
	if err != nil {
		return nil, false, fmt.Errorf("decode epoch history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *SQLStore) SaveRunSummary(ctx context.Context, summary model.RunSummary) error {
	payload, err := EncodeRunSummary(summary)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "runs", payloadRow{
		ID:        summary.ID,
		StartedAt: summary.StartedAt.UnixNano(),
		Payload:   string(payload),
	})
}

func (s *SQLStore) GetRunSummary(ctx context.Context, runID string) (model.RunSummary, bool, error) {
	payload, ok, err := s.payload(ctx, "runs", runID)
	if err != nil || !ok {
		return model.RunSummary{}, ok, err
	}
	summary, err := DecodeRunSummary([]byte(payload))
	if err != nil {
		return model.RunSummary{}, false, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return summary, true, nil
}

func (s *SQLStore) ListRuns(ctx context.Context) ([]model.RunSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payloads []string
	if err := db.SelectContext(ctx, &payloads, `SELECT payload FROM runs ORDER BY started_at, id`); err != nil {
		return nil, err
	}
	runs := make([]model.RunSummary, 0, len(payloads))
	for _, payload := range payloads {
		summary, err := DecodeRunSummary([]byte(payload))
		if err != nil {
			return nil, err
		}
		runs = append(runs, summary)
	}
	return runs, nil
}

func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLStore) upsert(ctx context.Context, table string, row payloadRow) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, started_at, payload)
		VALUES (:id, :started_at, :payload)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			payload = excluded.payload
	`, table)
	_, err = db.NamedExecContext(ctx, query, row)
	return err
}

func (s *SQLStore) payload(ctx context.Context, table, id string) (string, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return "", false, err
	}
	var payload string
	query := db.Rebind(fmt.Sprintf(`SELECT payload FROM %s WHERE id = ?`, table))
	if err := db.GetContext(ctx, &payload, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return payload, true, nil
}

func (s *SQLStore) getDB() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sqlx.DB) error {
	for _, table := range []string{"genomes", "epochs", "runs"} {
		_, err := db.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				started_at BIGINT NOT NULL DEFAULT 0,
				payload TEXT NOT NULL
			)`, table))
		if err != nil {
			return err
		}
	}
	return nil
}
