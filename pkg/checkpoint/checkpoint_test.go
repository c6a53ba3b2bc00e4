package checkpoint

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replharvest/pkg/logger"
	"replharvest/pkg/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManagerAt(filepath.Join(t.TempDir(), "m", "alice.manifest.json"))
	require.NoError(t, err)
	return mgr.WithLogger(logger.NewNopLogger())
}

func TestBeginCreatesAndResumes(t *testing.T) {
	mgr := newTestManager(t)

	first, err := mgr.Begin("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Runs)
	assert.NotEmpty(t, first.RunID)
	assert.True(t, mgr.Exists())

	require.NoError(t, mgr.RecordCompleted(models.NewItem("Todo App", "/t")))

	second, err := mgr.Begin("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Runs)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.True(t, second.IsCompleted("todoapp"))
	assert.Equal(t, first.RunID, second.Completed["todoapp"].RunID)
}

func TestRecordRequiresBegin(t *testing.T) {
	mgr := newTestManager(t)
	assert.Error(t, mgr.RecordCompleted(models.NewItem("x", "")))
}

func TestLoadMissing(t *testing.T) {
	mgr := newTestManager(t)

	m, err := mgr.Load()
	require.NoError(t, err)
	assert.Nil(t, m)

	info, err := mgr.Info()
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestLoadCorrupt(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, os.WriteFile(mgr.Path(), []byte("{not json"), 0644))

	_, err := mgr.Load()
	assert.Error(t, err)
}

func TestBackupAndDelete(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Begin("alice")
	require.NoError(t, err)

	require.NoError(t, mgr.Backup())
	assert.FileExists(t, mgr.Path()+BackupSuffix)

	require.NoError(t, mgr.Delete())
	assert.False(t, mgr.Exists())
	require.NoError(t, mgr.Delete())

	info, err := mgr.Info()
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestNewManagerUsesDataDirectory(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout only applies on linux")
	}
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	mgr, err := NewManager("bob")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(mgr.Path(), filepath.Join("replharvest", "manifests", "bob.manifest.json")))
}
