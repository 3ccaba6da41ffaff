package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSeedFixture(t *testing.T) {
	data, err := loadSeed("seed.yaml")
	require.NoError(t, err)
	require.Len(t, data.Suppliers, 3)
	require.Equal(t, "SUP-001", data.Suppliers[0].Code)
	require.Len(t, data.Items, 5)
	for _, it := range data.Items {
		require.NotEmpty(t, it.Unit, it.SKU)
	}
}

func TestLoadSeedRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("suppliers: [oops"), 0o600))
	_, err := loadSeed(path)
	require.Error(t, err)
}
