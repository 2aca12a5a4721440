package disk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAttr(t *testing.T, path, value string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(value), 0o644))
}

func TestLabelFrom(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeAttr(t, filepath.Join(root, "sdb", "device", "vendor"), "SanDisk \n")
	writeAttr(t, filepath.Join(root, "sdb", "device", "model"), "Cruzer_Blade\n")
	writeAttr(t, filepath.Join(root, "sdc", "device", "model"), "Ultra_Fit\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sdd"), 0o755))

	assert.Equal(t, "SanDisk Cruzer Blade", labelFrom(root, "sdb"))
	assert.Equal(t, "Ultra Fit", labelFrom(root, "sdc"))
	assert.Empty(t, labelFrom(root, "sdd"))
	assert.Empty(t, labelFrom(root, "sdz"))
}
