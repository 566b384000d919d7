package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/espkey/internal/devicelog"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// LogFetcher fetches a device's full log.
type LogFetcher interface {
	GetLog(ctx context.Context) (devicelog.Log, error)
}

// Poller refetches a device log for the viewer, backing off exponentially
// while the device keeps failing. It is driven by a single goroutine at a
// time.
type Poller struct {
	device   LogFetcher
	interval time.Duration
	logger   *slog.Logger
	failures int
}

// NewPoller returns a Poller fetching from device every interval.
func NewPoller(device LogFetcher, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{device: device, interval: interval, logger: logger.With("component", "poller")}
}

// Poll fetches the log once.
func (p *Poller) Poll(ctx context.Context) (devicelog.Log, error) {
	entries, err := p.device.GetLog(ctx)
	if err != nil {
		p.failures++
		p.logger.Debug("log poll failed", "failures", p.failures, "error", err)
		return nil, err
	}
	p.failures = 0
	return entries, nil
}

// Next returns how long to wait before the next poll.
func (p *Poller) Next() time.Duration {
	return calculateBackoff(p.failures, p.interval)
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff or base, whichever is larger.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	limit := max(maxBackoff, base)
	if failures > 16 {
		return limit
	}
	return min(base<<failures, limit)
}
