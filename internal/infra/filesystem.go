package infra

import (
	"os"

	"github.com/portscope/portscope/internal/domain"
)

// OSFileSystem implements domain.FileSystem against the real filesystem.
// Any I/O error during a probe is treated as "does not exist".
type OSFileSystem struct{}

// NewOSFileSystem creates a filesystem backed by the OS.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// Exists checks if a path exists.
func (fs *OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DirExists checks if a path exists and is a directory.
func (fs *OSFileSystem) DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ReadFile returns the content of a file.
func (fs *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

var _ domain.FileSystem = (*OSFileSystem)(nil)
