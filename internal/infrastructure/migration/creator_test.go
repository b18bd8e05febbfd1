package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/erp/stockledger/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add stock movements", "add_stock_movements"},
		{"Add-Product-Thresholds", "add_product_thresholds"},
		{"add__ledger__index", "add_ledger_index"},
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
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000002_create_stock_movements.up.sql"), []byte("--"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000002_create_stock_movements.down.sql"), []byte("--"), 0o644))

	mf, err := CreateMigration(dir, "add product thresholds", "min and max stock")
	require.NoError(t, err)
	assert.Equal(t, "000003", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000003_add_product_thresholds.up.sql"), mf.UpPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "min and max stock")
	assert.Contains(t, string(up), "BEGIN;")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")
}

func TestCreateMigration_FirstInNewDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")
	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_b.up.sql":   {Data: []byte("--")},
		"000002_b.down.sql": {Data: []byte("--")},
		"000001_a.up.sql":   {Data: []byte("--")},
		"000001_a.down.sql": {Data: []byte("--")},
		"README.md":         {Data: []byte("docs")},
		"dir.up.sql/x":      {Data: []byte("--")},
	}
	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a", "000002_b"}, names)

	missing, err := ListMigrations(os.DirFS("/nonexistent/migrations"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_create_catalog",
		"000002_create_stock_movements",
		"000003_create_stock_documents",
	}, names)

	for _, name := range names {
		_, err := migrations.FS.Open(name + ".down.sql")
		assert.NoError(t, err, name)
	}

	ledger, err := migrations.FS.ReadFile("000002_create_stock_movements.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(ledger), "uq_stock_movements_posting")
}
