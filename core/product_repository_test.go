package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgProductRepositoryCreateCommitsBothRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs("4600000000001", "Dark chocolate", 3, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))
	mock.ExpectQuery(`INSERT INTO product_records`).
		WithArgs(int64(7), 5, 2.5, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "record_date"}).AddRow(int64(11), created))
	mock.ExpectCommit()

	p, err := NewPgProductRepository(mock).Create(context.Background(), ProductCreateInput{
		Barcode:    " 4600000000001 ",
		Name:       "Dark chocolate",
		CategoryID: 3,
		Rating:     5,
		Price:      2.5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "4600000000001", p.Barcode)
	require.Len(t, p.Records, 1)
	assert.Equal(t, int64(11), p.Records[0].ID)
	assert.Equal(t, int64(7), p.Records[0].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgProductRepositoryCreateRollsBackOnRecordFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))
	mock.ExpectQuery(`INSERT INTO product_records`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("check constraint violated"))
	mock.ExpectRollback()

	p, err := NewPgProductRepository(mock).Create(context.Background(), ProductCreateInput{
		Barcode: "4600000000001",
		Name:    "Dark chocolate",
		Rating:  9,
	})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "check constraint violated")
	assert.NoError(t, mock.ExpectationsWereMet(), "transaction must be rolled back, not committed")
}

func TestPgProductRepositoryGetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM products WHERE barcode`).
		WithArgs("0000").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPgProductRepository(mock).GetByBarcode(context.Background(), "0000")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgProductRepositoryListEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM products ORDER BY`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "barcode", "name", "category_id", "photo", "created_at"}))

	items, err := NewPgProductRepository(mock).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items, "empty list encodes as [] not null")
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}
