package services

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/gympoints/store"
)

// newMockService runs the engine against a MySQL-dialect gorm over sqlmock.
func newMockService(t *testing.T) (*RewardsService, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return NewRewardsService(store.NewGormStore(db), DefaultRules()), mock
}

func TestLeaderboardStorageFailure(t *testing.T) {
	svc, mock := newMockService(t)
	cause := errors.New("connection reset by peer")
	mock.ExpectQuery("SELECT").WillReturnError(cause)

	_, err := svc.Leaderboard(t.Context(), 10)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage", KindName(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInStorageFailureRollsBack(t *testing.T) {
	svc, mock := newMockService(t)
	cause := errors.New("lock wait timeout exceeded")
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FOR UPDATE").WillReturnError(cause)
	mock.ExpectRollback()

	_, err := svc.CheckIn(t.Context(), 1, day("2024-05-10"))
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrMemberNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "already_checked_in", KindName(ErrAlreadyCheckedIn))
	assert.Equal(t, "insufficient_points", KindName(errors.Join(errors.New("ctx"), ErrInsufficientPoints)))
	assert.Nil(t, ErrorKind(errors.New("foreign")))
	assert.ErrorIs(t, asKind("op", errors.New("boom")), ErrStorage)
	assert.Equal(t, ErrDuplicateEmail, asKind("op", ErrDuplicateEmail))
}
