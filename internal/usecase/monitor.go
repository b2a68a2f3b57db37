package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/portscope/portscope/internal/domain"
)

// detectWorkers bounds concurrent project detections per scan.
const detectWorkers = 8

// Monitor orchestrates the scan pipeline: backend enumeration, working
// directory resolution, classification, project detection, and snapshot
// publication. At most one scan is in flight at a time; overlapping
// requests (e.g. a timer tick arriving mid-scan) are coalesced into no-ops
// so a late-finishing scan can never overwrite a later one's snapshot.
type Monitor struct {
	primary    domain.ConnectionScanner
	fallback   domain.FallbackScanner
	resolver   *WorkdirResolver
	classifier *Classifier
	detector   *ProjectDetector
	snapshot   *SnapshotStore
	workspaces domain.WorkspaceProvider
	settings   domain.Settings
	logger     *zap.Logger

	busyMu sync.Mutex
	busy   bool

	stateMu    sync.Mutex
	searchTerm string
	filterMode domain.FilterMode
}

// NewMonitor wires the engine together.
func NewMonitor(
	primary domain.ConnectionScanner,
	fallback domain.FallbackScanner,
	resolver *WorkdirResolver,
	classifier *Classifier,
	detector *ProjectDetector,
	snapshot *SnapshotStore,
	workspaces domain.WorkspaceProvider,
	settings domain.Settings,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		primary:    primary,
		fallback:   fallback,
		resolver:   resolver,
		classifier: classifier,
		detector:   detector,
		snapshot:   snapshot,
		workspaces: workspaces,
		settings:   settings,
		filterMode: settings.FilterMode,
		logger:     logger,
	}
}

// Scan runs one full discovery cycle and publishes the resulting snapshot.
// Returns the number of records published. A scan that finds nothing on
// both backends publishes an empty snapshot and returns 0 with no error;
// the caller can distinguish that from "filtered to zero" via View.NoPorts.
// A second Scan arriving while one is running returns immediately.
func (m *Monitor) Scan(ctx context.Context) (int, error) {
	m.busyMu.Lock()
	if m.busy {
		m.busyMu.Unlock()
		m.logger.Debug("scan already in flight, coalescing")
		return 0, nil
	}
	m.busy = true
	m.busyMu.Unlock()

	defer func() {
		m.busyMu.Lock()
		m.busy = false
		m.busyMu.Unlock()
	}()

	sockets := m.enumerate(ctx)
	sockets = m.dedup(sockets)

	if m.settings.OnlyWorkspace {
		sockets = m.filterWorkspaceOnly(sockets)
	}

	records := m.buildRecords(ctx, sockets)

	if !m.settings.ShowSystem {
		kept := records[:0]
		for _, rec := range records {
			if rec.Category == domain.CategoryDev || m.snapshot.IsFavorite(rec.Port) {
				kept = append(kept, rec)
			}
		}
		records = kept
	}

	m.snapshot.Replace(records)

	if len(records) == 0 {
		m.logger.Warn("scan found no listening ports")
	}
	return len(records), nil
}

// enumerate tries the primary backend and falls back to the secondary one
// on fault or empty result. A failure of both yields an empty slice; the
// empty result is surfaced, never silently papered over with stale data.
func (m *Monitor) enumerate(ctx context.Context) []domain.Socket {
	sockets, err := m.primary.Scan(ctx)
	if err != nil {
		m.logger.Warn("primary scan backend failed, falling back", zap.Error(err))
		sockets = nil
	}
	if len(sockets) > 0 {
		return sockets
	}

	fallbackSockets, err := m.fallback.Scan(ctx)
	if err != nil {
		m.logger.Warn("fallback scan backend failed", zap.Error(err))
		return nil
	}
	return fallbackSockets
}

// dedup keeps the first occurrence per (port, pid) pair.
func (m *Monitor) dedup(sockets []domain.Socket) []domain.Socket {
	seen := make(map[string]bool, len(sockets))
	out := sockets[:0]
	for _, sock := range sockets {
		key := fmt.Sprintf("%d:%d", sock.Port, sock.PID)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sock)
	}
	return out
}

// filterWorkspaceOnly drops sockets whose command line mentions none of the
// workspace roots or configured extra paths.
func (m *Monitor) filterWorkspaceOnly(sockets []domain.Socket) []domain.Socket {
	paths := append(append([]string(nil), m.workspaces.Roots()...), m.settings.ExtraPaths...)

	out := sockets[:0]
	for _, sock := range sockets {
		cmdLower := strings.ToLower(sock.CommandLine)
		for _, path := range paths {
			if path != "" && strings.Contains(cmdLower, strings.ToLower(path)) {
				out = append(out, sock)
				break
			}
		}
	}
	return out
}

// buildRecords resolves, classifies, and runs project detection for each
// socket. Detections are independent units fanned out over a bounded worker
// pool; the scan completes only after every detection finishes.
func (m *Monitor) buildRecords(ctx context.Context, sockets []domain.Socket) []domain.PortRecord {
	records := make([]domain.PortRecord, len(sockets))
	for i, sock := range sockets {
		rec := domain.PortRecord{
			Port:        sock.Port,
			PID:         sock.PID,
			ProcessName: sock.ProcessName,
			CommandLine: sock.CommandLine,
		}
		if dir, ok := m.resolver.Resolve(sock.CommandLine); ok {
			rec.WorkspaceFolder = dir
		}
		rec.Category = m.classifier.Classify(sock.Port, sock.ProcessName, sock.CommandLine)
		if label, ok := m.classifier.Label(sock.Port); ok {
			rec.Label = label
		}
		records[i] = rec
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, detectWorkers)
	for i := range records {
		if records[i].Category != domain.CategoryDev || records[i].WorkspaceFolder == "" {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(rec *domain.PortRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			rec.Project = m.detector.Detect(rec.WorkspaceFolder)
		}(&records[i])
	}
	wg.Wait()

	select {
	case <-ctx.Done():
		m.logger.Debug("scan context canceled after detection", zap.Error(ctx.Err()))
	default:
	}

	return records
}

// SetSearchTerm stores the search term used by View.
func (m *Monitor) SetSearchTerm(term string) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.searchTerm = term
}

// SetFilter stores the filter mode used by View.
func (m *Monitor) SetFilter(mode domain.FilterMode) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.filterMode = mode
}

// View builds a view over the current snapshot using the stored search term
// and filter mode.
func (m *Monitor) View(groupBy domain.GroupBy, viewMode domain.ViewMode) domain.View {
	m.stateMu.Lock()
	term, filter := m.searchTerm, m.filterMode
	m.stateMu.Unlock()
	return m.CurrentView(term, filter, groupBy, viewMode)
}

// CurrentView builds a view over the current snapshot with explicit
// arguments. Pure over the snapshot: identical arguments on an unchanged
// snapshot yield identical output.
func (m *Monitor) CurrentView(searchTerm string, filterMode domain.FilterMode, groupBy domain.GroupBy, viewMode domain.ViewMode) domain.View {
	return BuildView(m.snapshot.Records(), searchTerm, filterMode, groupBy, viewMode, m.settings.CustomGroups)
}

// ToggleFavorite flips favorite membership for a port.
func (m *Monitor) ToggleFavorite(port int) (bool, error) {
	return m.snapshot.ToggleFavorite(port)
}

// Snapshot exposes the snapshot store for callers needing record access.
func (m *Monitor) Snapshot() *SnapshotStore {
	return m.snapshot
}
