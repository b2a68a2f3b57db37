// Package daemon implements the periodic re-scan loop.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/portscope/portscope/internal/usecase"
)

// PollerConfig holds the re-scan loop configuration.
type PollerConfig struct {
	Interval time.Duration // How often to re-scan (0 disables the ticker)
}

// Poller drives periodic scans. Overlap protection lives in the monitor's
// single-flight guard: a tick arriving while a scan is still running is
// coalesced, never run concurrently.
type Poller struct {
	config  PollerConfig
	monitor *usecase.Monitor
	logger  *zap.Logger
}

// NewPoller creates a poller around a monitor.
func NewPoller(config PollerConfig, monitor *usecase.Monitor, logger *zap.Logger) *Poller {
	return &Poller{
		config:  config,
		monitor: monitor,
		logger:  logger,
	}
}

// Run scans once immediately, then on every tick until the context is
// canceled. This blocks.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		zap.Duration("interval", p.config.Interval))

	p.scan(ctx)

	if p.config.Interval <= 0 {
		p.logger.Info("auto-refresh disabled, waiting for shutdown")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping")
			return ctx.Err()
		case <-ticker.C:
			p.scan(ctx)
		}
	}
}

func (p *Poller) scan(ctx context.Context) {
	count, err := p.monitor.Scan(ctx)
	if err != nil {
		p.logger.Error("scan failed", zap.Error(err))
		return
	}
	p.logger.Debug("scan completed", zap.Int("ports", count))
}
