package storage

import (
	"fmt"
	"os"
	"strings"

	"replharvest/pkg/identity"
	"replharvest/pkg/models"
)

// partialSuffixes mark downloads the browser has not finished writing
var partialSuffixes = []string{".crdownload", ".part", ".tmp", ".download"}

// IsPartial reports whether name is an in-progress download
func IsPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// EnsureDirectory creates path (and parents) if it does not exist
func EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	return nil
}

// Store answers "was this item already fetched" from the destination directory.
// It holds no cache: the directory is written by the browser behind our back.
type Store struct {
	dir string
}

// NewStore creates a store over dir, creating the directory when needed
func NewStore(dir string) (*Store, error) {
	if err := EnsureDirectory(dir); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the destination directory
func (s *Store) Dir() string { return s.dir }

// ListFiles returns the names of finished files in the destination directory
func (s *Store) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || IsPartial(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// AlreadyFetched reports whether any finished file name, once normalized,
// contains the item's identity key. Containment is deliberately loose and
// accepts false positives ("app" matches "my-app.zip").
func (s *Store) AlreadyFetched(item models.Item) (bool, error) {
	if item.IdentityKey == "" {
		return false, nil
	}

	names, err := s.ListFiles()
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if identity.Matches(name, item.IdentityKey) {
			return true, nil
		}
	}
	return false, nil
}

// Snapshot returns the current finished file names as a set
func (s *Store) Snapshot() (map[string]bool, error) {
	names, err := s.ListFiles()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}
