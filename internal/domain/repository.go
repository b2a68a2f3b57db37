package domain

import "context"

// ConnectionScanner enumerates listening TCP sockets with their owning
// processes. Implementation: uses gopsutil for cross-platform support.
type ConnectionScanner interface {
	// Scan returns one Socket per (port, pid) pair in LISTEN state.
	Scan(ctx context.Context) ([]Socket, error)
}

// FallbackScanner is the secondary enumeration backend used when the primary
// one fails or finds nothing. Implementation: parses lsof/netstat output.
type FallbackScanner interface {
	Scan(ctx context.Context) ([]Socket, error)
}

// ProcessController handles OS process operations on discovered owners.
type ProcessController interface {
	// Kill terminates a process by PID.
	Kill(pid int) error

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool
}

// FileSystem is the filesystem-query capability injected into the resolver
// and the project detector so both are testable without a real filesystem.
type FileSystem interface {
	// Exists checks if a path exists (file or directory).
	Exists(path string) bool

	// DirExists checks if a path exists and is a directory.
	DirExists(path string) bool

	// ReadFile returns the content of a file.
	ReadFile(path string) ([]byte, error)
}

// WorkspaceProvider supplies the open workspace root directories.
type WorkspaceProvider interface {
	Roots() []string
}

// FavoritesStore persists the set of favorite ports across sessions.
type FavoritesStore interface {
	// Load returns the persisted favorite ports.
	Load() ([]int, error)

	// Save persists the favorite ports, replacing the previous set.
	Save(ports []int) error
}

// HistoryStore persists the append-only port transition log.
type HistoryStore interface {
	// Append adds one entry and trims the log to the configured cap.
	Append(entry HistoryEntry) error

	// Recent returns up to limit entries, newest first.
	Recent(limit int) ([]HistoryEntry, error)

	// StartCounts returns how many "started" entries each port has.
	StartCounts() (map[int]int, error)

	// Close releases resources (e.g., database connection).
	Close() error
}
