package usecase

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/portscope/portscope/internal/domain"
)

// SnapshotStore owns the current record list and the favorites set. A scan
// replaces the record list atomically; readers never observe a partial
// snapshot. Port state transitions between snapshots are appended to the
// history store.
// prevListener is what the previous snapshot remembered about a port, kept
// so stopped entries can still name the process that went away.
type prevListener struct {
	pid  int
	name string
}

type SnapshotStore struct {
	mu        sync.Mutex
	records   []domain.PortRecord
	prevPorts map[int]prevListener
	favorites map[int]bool
	scanned   bool // At least one Replace happened

	favStore  domain.FavoritesStore
	histStore domain.HistoryStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewSnapshotStore loads the persisted favorites and returns a store ready
// to accept scan results. A favorites load failure is not fatal; the set
// starts empty and is rebuilt on the next toggle.
func NewSnapshotStore(favStore domain.FavoritesStore, histStore domain.HistoryStore, logger *zap.Logger) *SnapshotStore {
	s := &SnapshotStore{
		prevPorts: make(map[int]prevListener),
		favorites: make(map[int]bool),
		favStore:  favStore,
		histStore: histStore,
		logger:    logger,
		now:       time.Now,
	}

	ports, err := favStore.Load()
	if err != nil {
		logger.Warn("failed to load favorites, starting empty", zap.Error(err))
		return s
	}
	for _, port := range ports {
		s.favorites[port] = true
	}
	return s
}

// Replace atomically swaps in a new snapshot. Each record gets its favorite
// flag and a status computed against the previous (port, pid) index; port
// start/stop/change transitions are appended to history.
func (s *SnapshotStore) Replace(records []domain.PortRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	currentPorts := make(map[int]prevListener, len(records))
	timestamp := s.now()

	for i := range records {
		records[i].IsFavorite = s.favorites[records[i].Port]

		prev, seen := s.prevPorts[records[i].Port]
		switch {
		case !seen:
			records[i].Status = domain.StatusNew
		case prev.pid != records[i].PID:
			records[i].Status = domain.StatusChanged
		default:
			records[i].Status = domain.StatusStable
		}

		// First scan establishes the baseline without flooding history.
		if s.scanned {
			switch records[i].Status {
			case domain.StatusNew:
				s.appendHistory(domain.HistoryEntry{
					Port:        records[i].Port,
					PID:         records[i].PID,
					ProcessName: records[i].ProcessName,
					Timestamp:   timestamp,
					Action:      domain.ActionStarted,
				})
			case domain.StatusChanged:
				s.appendHistory(domain.HistoryEntry{
					Port:        records[i].Port,
					PID:         records[i].PID,
					ProcessName: records[i].ProcessName,
					Timestamp:   timestamp,
					Action:      domain.ActionChanged,
					Details:     fmt.Sprintf("pid %d -> %d", prev.pid, records[i].PID),
				})
			}
		}

		currentPorts[records[i].Port] = prevListener{
			pid:  records[i].PID,
			name: records[i].ProcessName,
		}
	}

	if s.scanned {
		for port, prev := range s.prevPorts {
			if _, alive := currentPorts[port]; !alive {
				s.appendHistory(domain.HistoryEntry{
					Port:        port,
					PID:         prev.pid,
					ProcessName: prev.name,
					Timestamp:   timestamp,
					Action:      domain.ActionStopped,
				})
			}
		}
	}

	s.records = records
	s.prevPorts = currentPorts
	s.scanned = true
}

// appendHistory is best-effort; a persistence fault never aborts a scan.
func (s *SnapshotStore) appendHistory(entry domain.HistoryEntry) {
	if s.histStore == nil {
		return
	}
	if err := s.histStore.Append(entry); err != nil {
		s.logger.Warn("failed to append history entry",
			zap.Int("port", entry.Port),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
}

// Records returns a copy of the current snapshot.
func (s *SnapshotStore) Records() []domain.PortRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PortRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Scanned reports whether at least one scan has been published.
func (s *SnapshotStore) Scanned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanned
}

// ToggleFavorite flips favorite membership for a port, updates the flag on
// every currently-held record for that port, and persists the set. Returns
// the new membership state.
func (s *SnapshotStore) ToggleFavorite(port int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.favorites[port] {
		delete(s.favorites, port)
	} else {
		s.favorites[port] = true
	}
	nowFavorite := s.favorites[port]

	for i := range s.records {
		if s.records[i].Port == port {
			s.records[i].IsFavorite = nowFavorite
		}
	}

	if err := s.favStore.Save(s.favoritePortsLocked()); err != nil {
		return nowFavorite, fmt.Errorf("failed to persist favorites: %w", err)
	}
	return nowFavorite, nil
}

// IsFavorite reports favorite membership for a port.
func (s *SnapshotStore) IsFavorite(port int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites[port]
}

// Favorites returns the favorite ports in ascending order.
func (s *SnapshotStore) Favorites() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favoritePortsLocked()
}

func (s *SnapshotStore) favoritePortsLocked() []int {
	ports := make([]int, 0, len(s.favorites))
	for port := range s.favorites {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}
