package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsertDoNothingSkipsConflicts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"external_code", "author_name", "paid_value"}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_amendments"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_amendments"}, cols).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "amendments" .+ ON CONFLICT \("external_code"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "amendments",
		Columns:      cols,
		ConflictKeys: []string{"external_code"},
		DoNothing:    true,
	}, [][]any{
		{"202012340001", "JOAO DA SILVA", 1000.50},
		{"202012340001", "JOAO DA SILVA", 1000.50},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertUpdateMode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"external_id", "name", "party"}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_legislators"}, cols).
		WillReturnResult(1)
	mock.ExpectExec(`ON CONFLICT \("external_id"\) DO UPDATE SET "name" = EXCLUDED."name", "party" = EXCLUDED."party"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "legislators",
		Columns:      cols,
		ConflictKeys: []string{"external_id"},
	}, [][]any{{int64(204554), "JOAO DA SILVA", "XX"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertEmptyRowsIsNoop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "amendments",
		Columns:      []string{"external_code"},
		ConflictKeys: []string{"external_code"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertRequiresConflictKeys(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:   "amendments",
		Columns: []string{"external_code"},
	}, [][]any{{"x"}})
	assert.Error(t, err)
}
