package core

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgCredentialRepositoryGet(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      string
		wantErr   error
		errMsg    string
	}{
		{
			name: "stored digest is normalized",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT password_hash FROM app_auth`).
					WithArgs(credentialRowID).
					WillReturnRows(pgxmock.NewRows([]string{"password_hash"}).AddRow("  ABCDEF0123  "))
			},
			want: "abcdef0123",
		},
		{
			name: "missing row",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT password_hash FROM app_auth`).
					WithArgs(credentialRowID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: ErrAuthNotConfigured,
		},
		{
			name: "blank digest",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT password_hash FROM app_auth`).
					WithArgs(credentialRowID).
					WillReturnRows(pgxmock.NewRows([]string{"password_hash"}).AddRow("   "))
			},
			wantErr: ErrAuthNotConfigured,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT password_hash FROM app_auth`).
					WithArgs(credentialRowID).
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			got, err := NewPgCredentialRepository(mock).Get(context.Background())
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, ErrAuthNotConfigured)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPgCredentialRepositorySet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	digest := Digest("letmein", "a-real-pepper")
	mock.ExpectExec(`INSERT INTO app_auth`).
		WithArgs(credentialRowID, digest).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewPgCredentialRepository(mock).Set(context.Background(), digest))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCredentialRepositorySetRejectsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	require.Error(t, NewPgCredentialRepository(mock).Set(context.Background(), "  "))
	assert.NoError(t, mock.ExpectationsWereMet())
}
