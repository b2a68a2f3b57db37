package usecase

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/portscope/portscope/internal/domain"
)

// PortKiller terminates the process behind a listening port. Liveness is
// re-checked before signaling so a record from a stale snapshot cannot hit
// a recycled pid.
type PortKiller struct {
	control domain.ProcessController
	logger  *zap.Logger
}

// NewPortKiller creates a killer around a process controller.
func NewPortKiller(control domain.ProcessController, logger *zap.Logger) *PortKiller {
	return &PortKiller{control: control, logger: logger}
}

// Kill finds the record listening on port and kills its owning process.
// Returns the record that was targeted so callers can report what died.
func (k *PortKiller) Kill(records []domain.PortRecord, port int) (domain.PortRecord, error) {
	for _, rec := range records {
		if rec.Port != port {
			continue
		}
		if rec.PID == 0 {
			return rec, fmt.Errorf("port %d has no known owning process", port)
		}
		if !k.control.IsRunning(rec.PID) {
			return rec, fmt.Errorf("process %d on port %d already exited", rec.PID, port)
		}
		if err := k.control.Kill(rec.PID); err != nil {
			return rec, fmt.Errorf("failed to kill pid %d on port %d: %w", rec.PID, port, err)
		}
		k.logger.Info("killed listening process",
			zap.Int("port", port),
			zap.Int("pid", rec.PID),
			zap.String("process", rec.ProcessName))
		return rec, nil
	}
	return domain.PortRecord{}, fmt.Errorf("no process is listening on port %d", port)
}
