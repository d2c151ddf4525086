package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func newMockHistoryStore(t *testing.T) (*HistoryStore, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })

	db := bun.NewDB(sqldb, pgdialect.New())
	return NewHistoryStoreFromDB(db), mock
}

func TestHistoryStore_EnsureSchema_CreatesTable(t *testing.T) {
	store, mock := newMockHistoryStore(t)
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

// Postgres has no LastInsertId, so bun issues an insert with a RETURNING
// clause for the autoincrement "id" column and scans it back via
// QueryContext rather than ExecContext.
func TestHistoryStore_Append_InsertsRow(t *testing.T) {
	store, mock := newMockHistoryStore(t)
	mock.ExpectQuery("INSERT INTO \"transitions\"").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	rec := TransitionRecord{
		RunID:     "run-1",
		FromState: "IDLE",
		Event:     "START_WORKFLOW",
		ToState:   "STAGE_RUNNING",
		At:        time.Now().UTC(),
	}
	require.NoError(t, store.Append(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_Append_DefaultsTimestampWhenZero(t *testing.T) {
	store, mock := newMockHistoryStore(t)
	mock.ExpectQuery("INSERT INTO \"transitions\"").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	rec := TransitionRecord{RunID: "run-2", FromState: "IDLE", Event: "START_WORKFLOW", ToState: "STAGE_RUNNING"}
	require.NoError(t, store.Append(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_ForRun_ScansRows(t *testing.T) {
	store, mock := newMockHistoryStore(t)
	rows := sqlmock.NewRows([]string{"id", "run_id", "from_state", "event", "to_state", "at"}).
		AddRow(1, "run-3", "IDLE", "START_WORKFLOW", "STAGE_RUNNING", time.Now().UTC()).
		AddRow(2, "run-3", "STAGE_RUNNING", "START_STEP", "STEP_RUNNING", time.Now().UTC())
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	recs, err := store.ForRun(context.Background(), "run-3")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, "run-3", recs[0].RunID)
	require.NoError(t, mock.ExpectationsWereMet())
}
