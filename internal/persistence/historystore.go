package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/smilemakc/noteflow/internal/config"
)

// TransitionRecord is one append-only row of the FSM's transition log.
// Purely additive/audit: the engine never reads it back, per spec §4.9's
// supplement.
type TransitionRecord struct {
	bun.BaseModel `bun:"table:transitions,alias:t"`

	ID        int64     `bun:"id,pk,autoincrement"`
	RunID     string    `bun:"run_id,notnull"`
	FromState string    `bun:"from_state,notnull"`
	Event     string    `bun:"event,notnull"`
	ToState   string    `bun:"to_state,notnull"`
	At        time.Time `bun:"at,notnull"`
}

// HistoryStore appends FSM transitions to Postgres via bun, grounded on
// the teacher's ExecutionRepository (internal/infrastructure/storage/
// execution_repository.go): a thin struct around *bun.DB, one method per
// operation, errors wrapped with fmt.Errorf.
type HistoryStore struct {
	db *bun.DB
}

// NewHistoryStore opens a pgdriver connection per cfg and wraps it in a
// bun.DB using the Postgres dialect.
func NewHistoryStore(cfg config.DatabaseConfig) (*HistoryStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	sqldb.SetMaxOpenConns(cfg.MaxConnections)
	sqldb.SetMaxIdleConns(cfg.MinConnections)
	sqldb.SetConnMaxIdleTime(cfg.MaxIdleTime)
	sqldb.SetConnMaxLifetime(cfg.MaxConnLifetime)

	db := bun.NewDB(sqldb, pgdialect.New())
	return NewHistoryStoreFromDB(db), nil
}

// NewHistoryStoreFromDB wraps an already-open bun.DB, letting tests supply
// a sqlmock-backed *bun.DB without going through NewHistoryStore's
// connection setup.
func NewHistoryStoreFromDB(db *bun.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// EnsureSchema creates the transitions table if it doesn't already exist.
func (h *HistoryStore) EnsureSchema(ctx context.Context) error {
	_, err := h.db.NewCreateTable().Model((*TransitionRecord)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create transitions table: %w", err)
	}
	return nil
}

// Append inserts one transition row. Failures here are non-fatal to the
// caller's transition (spec §4.9 supplement mirrors the teacher's
// safeNotify swallow in dag_executor.go), so callers typically log rather
// than propagate this error.
func (h *HistoryStore) Append(ctx context.Context, rec TransitionRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	_, err := h.db.NewInsert().Model(&rec).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to append transition for run %q: %w", rec.RunID, err)
	}
	return nil
}

// ForRun returns every recorded transition for a run, oldest first. Not
// used by the engine itself; exposed for external audit/debugging tools.
func (h *HistoryStore) ForRun(ctx context.Context, runID string) ([]TransitionRecord, error) {
	var recs []TransitionRecord
	err := h.db.NewSelect().Model(&recs).Where("run_id = ?", runID).OrderExpr("id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions for run %q: %w", runID, err)
	}
	return recs, nil
}

// Close closes the underlying connection pool.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}
