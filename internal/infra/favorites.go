package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/portscope/portscope/internal/domain"
)

// favoritesFile is the on-disk schema of the favorites store.
type favoritesFile struct {
	Version int   `json:"version"`
	Ports   []int `json:"ports"`
}

// FileFavoritesStore implements domain.FavoritesStore as a JSON file,
// written atomically and serialized with a file lock so concurrent engine
// instances cannot corrupt it.
type FileFavoritesStore struct {
	path string
}

// NewFileFavoritesStore creates a store at dir/favorites.json.
func NewFileFavoritesStore(dir string) *FileFavoritesStore {
	return &FileFavoritesStore{path: filepath.Join(dir, "favorites.json")}
}

// Load returns the persisted favorite ports. A missing file is an empty set.
func (s *FileFavoritesStore) Load() ([]int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read favorites: %w", err)
	}

	var file favoritesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse favorites: %w", err)
	}
	sort.Ints(file.Ports)
	return file.Ports, nil
}

// Save persists the favorite ports, replacing the previous set.
func (s *FileFavoritesStore) Save(ports []int) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create favorites directory: %w", err)
	}

	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	sorted := append([]int(nil), ports...)
	sort.Ints(sorted)
	return s.atomicWrite(favoritesFile{Version: 1, Ports: sorted})
}

func (s *FileFavoritesStore) atomicWrite(file favoritesFile) error {
	data, err := json.Marshal(file)
	if err != nil {
		return err
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return err
	}
	return nil
}

var _ domain.FavoritesStore = (*FileFavoritesStore)(nil)
