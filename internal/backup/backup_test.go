package backup

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIncludeInBackup(t *testing.T) {
	assert.True(t, ShouldIncludeInBackup("root.json"))
	assert.False(t, ShouldIncludeInBackup("root.123.tmp"))
	assert.False(t, ShouldIncludeInBackup(filepath.Join("nested", "root.json")))
	assert.False(t, ShouldIncludeInBackup("notes.txt"))
}

func TestCreateBackup(t *testing.T) {
	dataDir := t.TempDir()
	backupDir := filepath.Join(t.TempDir(), "backups")

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "root.json"), []byte(`{"version":1}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "root.42.tmp"), []byte("partial"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "logs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "logs", "x.json"), []byte("{}"), 0600))

	backupFile, err := CreateBackup(dataDir, backupDir)
	require.NoError(t, err)
	assert.Equal(t, backupDir, filepath.Dir(backupFile))

	reader, err := zip.OpenReader(backupFile)
	require.NoError(t, err)
	defer reader.Close()

	var names []string
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"root.json"}, names)
}
