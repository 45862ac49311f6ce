package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/universal-api/internal/errs"
)

var testSettings = Settings{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 10 * time.Minute}

func newPG(t *testing.T) (*PG, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPG(mock, testSettings), mock
}

func TestPGAllow_NoRow_Allows(t *testing.T) {
	l, mock := newPG(t)
	mock.ExpectQuery(`SELECT blocked_until FROM auth_lockout WHERE client_hash=\$1`).
		WithArgs([]byte("h")).
		WillReturnError(pgx.ErrNoRows)

	ok, dur, err := l.Allow(context.Background(), []byte("h"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, dur)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAllow_BlockedUntilFuture(t *testing.T) {
	l, mock := newPG(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	mock.ExpectQuery(`SELECT blocked_until`).
		WithArgs([]byte("h")).
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow(now.Add(3 * time.Minute)))

	ok, dur, err := l.Allow(context.Background(), []byte("h"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 3*time.Minute, dur)
}

func TestPGAllow_PastBlock_Allows(t *testing.T) {
	l, mock := newPG(t)
	mock.ExpectQuery(`SELECT blocked_until`).
		WithArgs([]byte("h")).
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow(time.Now().Add(-time.Minute)))

	ok, _, err := l.Allow(context.Background(), []byte("h"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPGAllow_DBError_Propagates(t *testing.T) {
	l, mock := newPG(t)
	mock.ExpectQuery(`SELECT blocked_until`).
		WithArgs([]byte("h")).
		WillReturnError(errors.New("db boom"))

	ok, _, err := l.Allow(context.Background(), []byte("h"))
	require.False(t, ok)
	require.ErrorIs(t, err, errs.ErrStorage)
}

func TestPGFailure_Increments_NoBlock(t *testing.T) {
	l, mock := newPG(t)
	mock.ExpectQuery(`INSERT INTO auth_lockout .* RETURNING fail_count`).
		WithArgs([]byte("h"), testSettings.Window).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(2))

	blocked, dur, err := l.Failure(context.Background(), []byte("h"))
	require.NoError(t, err)
	require.False(t, blocked)
	require.Zero(t, dur)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGFailure_BlocksAtThreshold(t *testing.T) {
	l, mock := newPG(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	mock.ExpectQuery(`RETURNING fail_count`).
		WithArgs([]byte("h"), testSettings.Window).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(5))
	mock.ExpectExec(`UPDATE auth_lockout SET blocked_until=\$2, fail_count=0 WHERE client_hash=\$1`).
		WithArgs([]byte("h"), now.Add(testSettings.BlockFor)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	blocked, dur, err := l.Failure(context.Background(), []byte("h"))
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, testSettings.BlockFor, dur)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGFailure_Errors(t *testing.T) {
	l, mock := newPG(t)
	mock.ExpectQuery(`RETURNING fail_count`).
		WithArgs([]byte("h"), testSettings.Window).
		WillReturnError(errors.New("query error"))
	_, _, err := l.Failure(context.Background(), []byte("h"))
	require.ErrorIs(t, err, errs.ErrStorage)

	mock.ExpectQuery(`RETURNING fail_count`).
		WithArgs([]byte("h"), testSettings.Window).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(9))
	mock.ExpectExec(`UPDATE auth_lockout`).
		WithArgs([]byte("h"), pgxmock.AnyArg()).
		WillReturnError(errors.New("exec fail"))
	blocked, _, err := l.Failure(context.Background(), []byte("h"))
	require.ErrorIs(t, err, errs.ErrStorage)
	require.False(t, blocked)
}

func TestHashIP_Determinism(t *testing.T) {
	a := HashIP("1.2.3.4")
	b := HashIP("1.2.3.4")
	c := HashIP("5.6.7.8")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 32)
}
