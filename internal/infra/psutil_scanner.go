// Package infra implements infrastructure concerns (scanning backends,
// filesystem, persistence).
package infra

import (
	"context"
	"strings"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/portscope/portscope/internal/domain"
)

// PsutilScanner implements domain.ConnectionScanner using gopsutil.
type PsutilScanner struct{}

// NewPsutilScanner creates the primary scanning backend.
func NewPsutilScanner() *PsutilScanner {
	return &PsutilScanner{}
}

// Scan enumerates TCP sockets in LISTEN state across all local network
// families and resolves each owner's name and command line from the
// process table. Lookup misses fall back to whatever the connection entry
// itself carries, leaving pid 0 records intact.
func (s *PsutilScanner) Scan(ctx context.Context) ([]domain.Socket, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, err
	}

	procs := s.processIndex(ctx)

	var sockets []domain.Socket
	for _, conn := range conns {
		if !strings.EqualFold(conn.Status, "LISTEN") {
			continue
		}
		if conn.Laddr.Port == 0 {
			continue
		}

		sock := domain.Socket{
			Port: int(conn.Laddr.Port),
			PID:  int(conn.Pid),
		}
		if info, ok := procs[conn.Pid]; ok {
			sock.ProcessName = info.name
			sock.CommandLine = info.cmdline
		}
		sockets = append(sockets, sock)
	}

	return sockets, nil
}

type procInfo struct {
	name    string
	cmdline string
}

// processIndex builds a pid lookup table once per scan. Individual process
// reads can fail when a process exits mid-scan; those entries are skipped.
func (s *PsutilScanner) processIndex(ctx context.Context) map[int32]procInfo {
	index := make(map[int32]procInfo)

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return index
	}

	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue // Process may have exited
		}
		cmdline, _ := p.CmdlineWithContext(ctx)
		index[p.Pid] = procInfo{name: name, cmdline: cmdline}
	}
	return index
}

// ProcessControllerImpl implements domain.ProcessController using gopsutil.
type ProcessControllerImpl struct{}

// NewProcessController creates a process controller.
func NewProcessController() *ProcessControllerImpl {
	return &ProcessControllerImpl{}
}

// Kill terminates a process by PID.
func (pc *ProcessControllerImpl) Kill(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Kill()
}

// IsRunning checks if a PID exists and is running.
func (pc *ProcessControllerImpl) IsRunning(pid int) bool {
	running, err := process.PidExists(int32(pid))
	return err == nil && running
}

var (
	_ domain.ConnectionScanner = (*PsutilScanner)(nil)
	_ domain.ProcessController = (*ProcessControllerImpl)(nil)
)
