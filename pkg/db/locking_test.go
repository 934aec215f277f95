package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type lockedRow struct {
	ID string
}

func TestForUpdateAddsRowLockOnPostgres(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=misrak dbname=misrak",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	stmt := ForUpdate(db).
		Table("locked_rows").
		Where("id = ?", "abc").
		Find(&[]lockedRow{}).Statement

	require.True(t, strings.Contains(stmt.SQL.String(), "FOR UPDATE"),
		"expected row lock clause in %q", stmt.SQL.String())
}

func TestForUpdateSkipsSqlite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	stmt := ForUpdate(db).
		Table("locked_rows").
		Where("id = ?", "abc").
		Find(&[]lockedRow{}).Statement

	require.False(t, strings.Contains(stmt.SQL.String(), "FOR UPDATE"),
		"sqlite has no FOR UPDATE syntax, got %q", stmt.SQL.String())
}
