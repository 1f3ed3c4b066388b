package tx

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecPrefersContextTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	assert.Equal(t, Executor(db), Exec(ctx, db))

	mock.ExpectBegin()
	sqlTx, err := db.Begin()
	require.NoError(t, err)

	txCtx := WithTx(ctx, sqlTx)
	got, ok := From(txCtx)
	require.True(t, ok)
	assert.Same(t, sqlTx, got)
	assert.Equal(t, Executor(sqlTx), Exec(txCtx, db))

	assert.Equal(t, ctx, WithTx(ctx, nil))
}
