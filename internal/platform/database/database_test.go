package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/config"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"uniqueIndex"`
}

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", Sqlite: config.SqliteConfig{Path: "file::memory:"}, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	return db
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	tests := []config.DatabaseConfig{
		{Driver: "oracle"},
		{Driver: "postgres"},
		{Driver: "mysql"},
	}
	for _, cfg := range tests {
		if _, err := Open(cfg); err == nil {
			t.Errorf("Open(%q) should fail", cfg.Driver)
		}
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	db := openMemory(t)
	if err := db.Create(&widget{Name: "a"}).Error; err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := db.Create(&widget{Name: "a"}).Error
	if !IsDuplicateKeyError(err) {
		t.Fatalf("IsDuplicateKeyError(%v) = false", err)
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"mysql duplicate", fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1062}), true},
	}
	for _, tt := range tests {
		if got := IsDuplicateKeyError(tt.err); got != tt.want {
			t.Errorf("%s: IsDuplicateKeyError() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"postgres serialization", &pgconn.PgError{Code: "40001"}, true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, false},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"sqlite locked text", errors.New("database is locked"), true},
	}
	for _, tt := range tests {
		if got := IsRetryableError(tt.err); got != tt.want {
			t.Errorf("%s: IsRetryableError() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTransactWithRetry(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	t.Run("succeeds after stale writes", func(t *testing.T) {
		calls := 0
		err := TransactWithRetry(ctx, db, 3, func(tx *gorm.DB) error {
			calls++
			if calls < 3 {
				return ErrStaleWrite
			}
			return tx.Create(&widget{Name: "retried"}).Error
		})
		if err != nil || calls != 3 {
			t.Fatalf("err = %v, calls = %d", err, calls)
		}
	})

	t.Run("escalates to conflict", func(t *testing.T) {
		calls := 0
		err := TransactWithRetry(ctx, db, 2, func(tx *gorm.DB) error {
			calls++
			if err := tx.Create(&widget{Name: fmt.Sprintf("rolled-back-%d", calls)}).Error; err != nil {
				return err
			}
			return ErrStaleWrite
		})
		if !apperror.IsKind(err, apperror.KindConflict) || calls != 3 {
			t.Fatalf("err = %v, calls = %d", err, calls)
		}
		var n int64
		db.Model(&widget{}).Where("name LIKE ?", "rolled-back-%").Count(&n)
		if n != 0 {
			t.Fatalf("%d rows survived rollback", n)
		}
	})

	t.Run("other errors are returned as is", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := TransactWithRetry(ctx, db, 5, func(tx *gorm.DB) error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Fatalf("err = %v, calls = %d", err, calls)
		}
	})
}
