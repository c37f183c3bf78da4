package db

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrate struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	srcErr     error
	dbErr      error
}

func (f *fakeMigrate) Up() error   { return f.upErr }
func (f *fakeMigrate) Down() error { return f.downErr }
func (f *fakeMigrate) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}
func (f *fakeMigrate) Close() (error, error) { return f.srcErr, f.dbErr }

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/devcamper?sslmode=disable":   "pgx5://u:p@localhost:5432/devcamper?sslmode=disable",
		"postgresql://u:p@localhost:5432/devcamper?sslmode=disable": "pgx5://u:p@localhost:5432/devcamper?sslmode=disable",
		"pgx5://u:p@localhost/devcamper":                            "pgx5://u:p@localhost/devcamper",
	}

	for in, want := range tests {
		assert.Equal(t, want, migrateURL(in))
	}
}

func TestMigrator_Up(t *testing.T) {
	assert.NoError(t, (&Migrator{m: &fakeMigrate{}}).Up())
	assert.NoError(t, (&Migrator{m: &fakeMigrate{upErr: migrate.ErrNoChange}}).Up())
	assert.Error(t, (&Migrator{m: &fakeMigrate{upErr: errors.New("syntax error")}}).Up())
}

func TestMigrator_Version(t *testing.T) {
	v, dirty, err := (&Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}).Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)

	v, dirty, err = (&Migrator{m: &fakeMigrate{version: 1, dirty: true}}).Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.True(t, dirty)
}

func TestMigrator_Close(t *testing.T) {
	assert.NoError(t, (&Migrator{m: &fakeMigrate{}}).Close())
	assert.Error(t, (&Migrator{m: &fakeMigrate{dbErr: errors.New("conn reset")}}).Close())
}

func TestEmbeddedMigrationsPaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Equal(t, len(ups), len(downs))
}
