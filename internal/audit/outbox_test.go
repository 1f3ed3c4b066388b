package audit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txcontext "retreat/pkg/platform/tx"
)

func newMockOutbox(t *testing.T) (*OutboxStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewOutboxStore(db), mock, db
}

func TestOutboxStore_Append(t *testing.T) {
	store, mock, _ := newMockOutbox(t)
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(sqlmock.AnyArg(), "registration", "r1", ActionRegistrationRefunded, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Append(context.Background(), Event{Action: ActionRegistrationRefunded, RegistrationID: "r1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxStore_AppendUsesContextTransaction(t *testing.T) {
	store, mock, db := newMockOutbox(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outbox").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	ctx := txcontext.WithTx(context.Background(), tx)
	require.NoError(t, store.Append(ctx, Event{Action: ActionAdminLogin, Actor: "staff@example.org"}))
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxStore_PendingAndMarkPublished(t *testing.T) {
	store, mock, _ := newMockOutbox(t)
	id1, id2 := uuid.New(), uuid.New()
	created := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, aggregate_id, event_type, payload, created_at").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "aggregate_id", "event_type", "payload", "created_at"}).
			AddRow(id1.String(), "r1", ActionRegistrationConfirmed, []byte(`{"action":"registration_confirmed"}`), created).
			AddRow(id2.String(), "r2", ActionRegistrationDeleted, []byte(`{"action":"registration_deleted"}`), created))
	mock.ExpectExec("UPDATE outbox SET published_at").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	entries, err := store.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, id1, entries[0].ID)
	assert.Equal(t, "r2", entries[1].AggregateID)

	require.NoError(t, store.MarkPublished(context.Background(), []uuid.UUID{id1, id2}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxStore_PendingQueryError(t *testing.T) {
	store, mock, _ := newMockOutbox(t)
	mock.ExpectQuery("SELECT id").WillReturnError(errors.New("connection reset"))

	_, err := store.Pending(context.Background(), 10)
	assert.ErrorContains(t, err, "query outbox")
}
