package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/portscope/portscope/internal/domain"
)

// mockFileSystem implements domain.FileSystem over in-memory maps.
type mockFileSystem struct {
	dirs  map[string]bool
	files map[string][]byte
}

func newMockFileSystem() *mockFileSystem {
	return &mockFileSystem{
		dirs:  make(map[string]bool),
		files: make(map[string][]byte),
	}
}

func (m *mockFileSystem) Exists(path string) bool {
	if m.dirs[path] {
		return true
	}
	_, ok := m.files[path]
	return ok
}

func (m *mockFileSystem) DirExists(path string) bool {
	return m.dirs[path]
}

func (m *mockFileSystem) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, errNotFound
	}
	return data, nil
}

type notFoundError struct{}

func (notFoundError) Error() string { return "file not found" }

var errNotFound = notFoundError{}

// stubWorkspaces implements domain.WorkspaceProvider over a fixed list.
type stubWorkspaces struct {
	roots []string
}

func (s *stubWorkspaces) Roots() []string {
	return s.roots
}

// mockFavoritesStore implements domain.FavoritesStore in memory.
type mockFavoritesStore struct {
	ports   []int
	loadErr error
	saveErr error
	saves   int
}

func (m *mockFavoritesStore) Load() ([]int, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.ports, nil
}

func (m *mockFavoritesStore) Save(ports []int) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ports = append([]int(nil), ports...)
	m.saves++
	return nil
}

// mockHistoryStore implements domain.HistoryStore in memory.
type mockHistoryStore struct {
	mu        sync.Mutex
	entries   []domain.HistoryEntry
	appendErr error
}

func (m *mockHistoryStore) Append(entry domain.HistoryEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockHistoryStore) Recent(limit int) ([]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.HistoryEntry(nil), m.entries...)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *mockHistoryStore) StartCounts() (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[int]int)
	for _, entry := range m.entries {
		if entry.Action == domain.ActionStarted {
			counts[entry.Port]++
		}
	}
	return counts, nil
}

func (m *mockHistoryStore) Close() error { return nil }

func (m *mockHistoryStore) actions() []domain.HistoryAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.HistoryAction, len(m.entries))
	for i, entry := range m.entries {
		out[i] = entry.Action
	}
	return out
}

// mockProcessController implements domain.ProcessController in memory.
type mockProcessController struct {
	running map[int]bool
	killErr error
	killed  []int
}

func (m *mockProcessController) Kill(pid int) error {
	if m.killErr != nil {
		return m.killErr
	}
	m.killed = append(m.killed, pid)
	delete(m.running, pid)
	return nil
}

func (m *mockProcessController) IsRunning(pid int) bool {
	return m.running[pid]
}

// mockScanner implements both scanner interfaces for monitor tests.
type mockScanner struct {
	sockets   []domain.Socket
	err       error
	callCount int32
	block     chan struct{} // When set, Scan waits until the channel closes
}

func (m *mockScanner) Scan(ctx context.Context) ([]domain.Socket, error) {
	atomic.AddInt32(&m.callCount, 1)
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.sockets, nil
}

func (m *mockScanner) calls() int {
	return int(atomic.LoadInt32(&m.callCount))
}
