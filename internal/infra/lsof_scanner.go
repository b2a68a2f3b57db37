package infra

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/portscope/portscope/internal/domain"
)

var listenPortPattern = regexp.MustCompile(`:(\d+)\s+\(LISTEN\)`)

// LsofScanner implements domain.FallbackScanner by shelling out to lsof and
// streaming its output one row at a time. It is only consulted when the
// primary gopsutil backend fails or finds nothing.
type LsofScanner struct {
	// runCommand is swappable for tests.
	runCommand func(ctx context.Context, name string, args ...string) (string, error)
}

// NewLsofScanner creates the fallback scanning backend.
func NewLsofScanner() *LsofScanner {
	return &LsofScanner{runCommand: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

// Scan parses `lsof -nP -iTCP -sTCP:LISTEN` output. Rows are consumed as a
// stream; parse failures on individual rows are skipped rather than
// aborting the scan. Command lines are resolved per PID through ps, cached
// so each PID is queried once.
func (s *LsofScanner) Scan(ctx context.Context) ([]domain.Socket, error) {
	output, err := s.runCommand(ctx, "lsof", "-nP", "-iTCP", "-sTCP:LISTEN")
	if err != nil {
		return nil, fmt.Errorf("lsof failed: %w", err)
	}

	var sockets []domain.Socket
	cmdlines := make(map[int]string)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		sock, ok := parseLsofLine(scanner.Text())
		if !ok {
			continue
		}

		if _, cached := cmdlines[sock.PID]; !cached {
			cmdlines[sock.PID] = s.commandLine(ctx, sock.PID)
		}
		if cmdline := cmdlines[sock.PID]; cmdline != "" {
			sock.CommandLine = cmdline
		}

		sockets = append(sockets, sock)
	}

	return sockets, nil
}

// parseLsofLine extracts (port, pid, name) from one lsof row, e.g.
//
//	node  4321  u  23u  IPv4  0x0  0t0  TCP *:3000 (LISTEN)
func parseLsofLine(line string) (domain.Socket, bool) {
	if !strings.Contains(line, "LISTEN") {
		return domain.Socket{}, false
	}

	fields := strings.Fields(line)
	if len(fields) < 9 {
		return domain.Socket{}, false
	}

	matches := listenPortPattern.FindStringSubmatch(line)
	if len(matches) < 2 {
		return domain.Socket{}, false
	}
	port, err := strconv.Atoi(matches[1])
	if err != nil || port < 1 || port > 65535 {
		return domain.Socket{}, false
	}

	pid, err := strconv.Atoi(fields[1])
	if err != nil {
		pid = 0
	}

	return domain.Socket{
		Port:        port,
		PID:         pid,
		ProcessName: fields[0],
	}, true
}

// commandLine resolves the full command line for a PID via ps. Best-effort;
// an empty string means the short lsof command name stands.
func (s *LsofScanner) commandLine(ctx context.Context, pid int) string {
	if pid <= 0 {
		return ""
	}
	out, err := s.runCommand(ctx, "ps", "-p", strconv.Itoa(pid), "-o", "args=")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

var _ domain.FallbackScanner = (*LsofScanner)(nil)
