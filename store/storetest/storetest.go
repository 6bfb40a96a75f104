// Package storetest provides in-memory SQLite record stores for tests.
package storetest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/gympoints/config"
	"github.com/cppla/gympoints/models"
	"github.com/cppla/gympoints/store"
)

var seq atomic.Int64

// NewDB opens a private, migrated in-memory database closed at test cleanup.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:gympoints_test_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// New returns a GormStore over a fresh in-memory database.
func New(t testing.TB) *store.GormStore {
	t.Helper()
	return store.NewGormStore(NewDB(t))
}

// SeedPrize inserts a prize and returns it.
func SeedPrize(t testing.TB, s store.RecordStore, name string, points int, available bool) *models.Prize {
	t.Helper()
	p := &models.Prize{Name: name, Description: name, Points: points, Available: available}
	if err := s.CreatePrize(t.Context(), p); err != nil {
		t.Fatalf("seed prize: %v", err)
	}
	return p
}

// SeedMember inserts a member with the given points and returns it.
func SeedMember(t testing.TB, s store.RecordStore, email string, points int) *models.Member {
	t.Helper()
	m := &models.Member{
		Name:    "Member " + email,
		Email:   email,
		Phone:   "11999990000",
		Address: "Rua A, 1",
		Points:  points,
		Level:   points/100 + 1,
	}
	if err := s.CreateMember(t.Context(), m); err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return m
}
