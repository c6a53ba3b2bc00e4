package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replharvest/pkg/models"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("zip"), 0644))
}

func TestNewStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	s, err := NewStore(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, dir, s.Dir())
}

func TestAlreadyFetched(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "my-project.zip")
	touch(t, dir, "half-done.zip.crdownload")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "chat-app"), 0755))

	s, err := NewStore(dir)
	require.NoError(t, err)

	tests := []struct {
		name string
		want bool
	}{
		{"My Project", true},
		{"My Project 2", false},
		{"Project", true},
		{"Half Done", false},
		{"Chat App", false},
		{"---", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.AlreadyFetched(models.NewItem(tt.name, ""))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlreadyFetchedSeesNewFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	item := models.NewItem("Todo", "")
	got, _ := s.AlreadyFetched(item)
	assert.False(t, got)

	touch(t, dir, "todo.zip")
	got, _ = s.AlreadyFetched(item)
	assert.True(t, got)
}

func TestListFilesSkipsPartials(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.zip", "b.zip.part", "c.TMP", "d.download", "e.zip"} {
		touch(t, dir, n)
	}
	s, _ := NewStore(dir)

	names, err := s.ListFiles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.zip", "e.zip"}, names)
}

func TestWaitForArtifact(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "old.zip")
	s, _ := NewStore(dir)
	existing, err := s.Snapshot()
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		partial := filepath.Join(dir, "new.zip.crdownload")
		_ = os.WriteFile(partial, []byte("z"), 0644)
		_ = os.Rename(partial, filepath.Join(dir, "new.zip"))
	}()

	name, err := WaitForArtifact(context.Background(), dir, existing, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "new.zip", name)
}

func TestWaitForArtifactTimesOut(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "old.zip")

	_, err := WaitForArtifact(context.Background(), dir, map[string]bool{"old.zip": true}, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoArtifact)
}
