package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add refunds table", "add_refunds_table"},
		{"Add-Refunds-Table", "add_refunds_table"},
		{"add__refunds", "add_refunds"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add refunds", "Track refunded orders")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, "000001_add_refunds.up.sql", filepath.Base(first.UpPath))
	assert.Equal(t, "000001_add_refunds.down.sql", filepath.Base(first.DownPath))

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Track refunded orders")

	second, err := CreateMigration(dir, "Index Customer Phone", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.Equal(t, "000002_index_customer_phone", second.FileName())

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_later.up.sql":    {Data: []byte("SELECT 1;")},
		"000010_later.down.sql":  {Data: []byte("SELECT 1;")},
		"000002_second.up.sql":   {Data: []byte("SELECT 1;")},
		"000002_second.down.sql": {Data: []byte("SELECT 1;")},
		"README.md":              {Data: []byte("notes")},
		"draft.up.sql":           {Data: []byte("SELECT 1;")},
	}

	files, err := ListMigrations(fsys)

	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, uint(2), files[0].Version)
	assert.Equal(t, "second", files[0].Name)
	assert.Equal(t, uint(10), files[1].Version)
	assert.Equal(t, "000010_later.down.sql", files[1].DownPath)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, uint(1), files[0].Version)

	for i, f := range files {
		assert.Equal(t, uint(i+1), f.Version, "versions must be contiguous")
		_, err := migrations.FS.Open(f.DownPath)
		assert.NoError(t, err, "missing rollback for %s", f.FileName())
	}
}
