package db

import (
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "001_core", migrations[0].Name)
	assert.Contains(t, migrations[0].SQL, "appointments_no_overlap")
	assert.Contains(t, migrations[0].SQL, "EXCLUDE USING gist")
}

func TestLoadMigrations_OrderAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_late.sql":  {Data: []byte("SELECT 10")},
		"m/002_mid.sql":   {Data: []byte("SELECT 2")},
		"m/README.md":     {Data: []byte("docs")},
		"m/notes.sql":     {Data: []byte("SELECT 0")},
		"m/abc_bad.sql":   {Data: []byte("SELECT 0")},
		"m/001_first.sql": {Data: []byte("SELECT 1")},
	}

	migrations, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	var names []string
	for _, m := range migrations {
		names = append(names, m.Name)
	}
	assert.Equal(t, "001_first,002_mid,010_late", strings.Join(names, ","))
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1")},
		"m/001_b.sql": {Data: []byte("SELECT 1")},
	}

	_, err := loadMigrations(fsys, "m")
	require.Error(t, err)
}

func TestPgErrorClassification(t *testing.T) {
	excl := &pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"}
	wrapped := fmt.Errorf("insert appointment: %w", excl)

	assert.True(t, IsExclusionViolation(wrapped, ""))
	assert.True(t, IsExclusionViolation(wrapped, "appointments_no_overlap"))
	assert.False(t, IsExclusionViolation(wrapped, "other"))
	assert.False(t, IsUniqueViolation(wrapped, ""))

	uniq := &pgconn.PgError{Code: "23505", ConstraintName: "billing_invoice_number_key"}
	assert.True(t, IsUniqueViolation(uniq, "billing_invoice_number_key"))
	assert.False(t, IsExclusionViolation(fmt.Errorf("plain"), ""))
}
