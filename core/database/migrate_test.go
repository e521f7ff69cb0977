package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files := listMigrationFiles(migrationsFS, migrationsDir)
	require.NotEmpty(t, files)
	assert.Equal(t, "0001_form_sessions.up.sql", files[0])

	raw, err := migrationsFS.ReadFile("migrations/0001_form_sessions.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "form_sessions")
}

func TestFileAttrs(t *testing.T) {
	attrs := fileAttrs([]string{"0001_a.up.sql"})
	require.Len(t, attrs, 2)
	assert.Equal(t, "files_total", attrs[0].Key)
	assert.Equal(t, int64(1), attrs[0].Value.Int64())
	assert.Equal(t, "files_preview", attrs[1].Key)
}

func TestSelectApplied(t *testing.T) {
	files := []string{"0001_a.up.sql", "0002_b.up.sql", "0003_c.up.sql"}
	assert.Equal(t, []string{"0002_b.up.sql", "0003_c.up.sql"}, selectApplied(files, 1, 3))
	assert.Nil(t, selectApplied(files, 3, 3))
	assert.Equal(t, uint64(2), parseVersion("0002_b.up.sql"))
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "pw", Name: "forms"}
	assert.Equal(t, "user=bot password=pw host=db port=5432 dbname=forms sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}
