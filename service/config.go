package service

import "sync"

// ServiceConfig tunes a StreamingDataService. Grounded on muxado's
// Config/initDefaults pattern (internal/muxado/config.go): zero-valued
// fields are filled with defaults exactly once, the first time the config
// is used, so callers can construct a ServiceConfig with only the fields
// they care about.
type ServiceConfig struct {
	// ReplayBufferSizeBytes bounds each session's OutputRingBuffer by
	// total bytes. Default ~2 MiB.
	ReplayBufferSizeBytes int64
	// ReplayBufferMaxChunks bounds each session's OutputRingBuffer by
	// chunk count. Default ~20000.
	ReplayBufferMaxChunks int
	// DefaultWindowSize is the initial per-client flow-control credit.
	// Default ~64 KiB.
	DefaultWindowSize int64
	// PerClientQueueCapacity bounds the pending output queue for one
	// client before a chunk is dropped for that subscriber (logged,
	// rate-limited) and its sender treated as a FlowControlViolation
	// candidate. This queue is both the fan-out point and the
	// backpressure point: there is no separate shared broadcast channel,
	// since a chunk with zero registered clients has nowhere to go and
	// nothing to drop. Default ~1000, matching the distilled spec's
	// output-broadcast buffer sizing.
	PerClientQueueCapacity int
	// InputBufferSize bounds the service-wide input channel. Default ~100.
	InputBufferSize int
	// TargetLatencyMs is the processTerminalOutput budget before a
	// slow-processing warning is logged. Default 100ms.
	TargetLatencyMs int64
	// MaxScrollbackLines bounds each session's scrollback history.
	MaxScrollbackLines int
	// MaxRetainedStateDeltas bounds how many of a session's most recently
	// applied state deltas are kept for RegisterClient to replay against a
	// reconnecting client's lastKnownStateSequence, instead of resending
	// the full StateSnapshot. Default ~256.
	MaxRetainedStateDeltas int
	// ShutdownGraceMs bounds how long Shutdown waits for each client's
	// pending output queue to drain before forcing it closed. Default
	// 2000ms, per the "flushes pending writes best-effort within a grace
	// period" cancellation rule.
	ShutdownGraceMs int64

	initOnce sync.Once
}

func (c *ServiceConfig) initDefaults() {
	c.initOnce.Do(func() {
		if c.ReplayBufferSizeBytes == 0 {
			c.ReplayBufferSizeBytes = 2 * 1024 * 1024
		}
		if c.ReplayBufferMaxChunks == 0 {
			c.ReplayBufferMaxChunks = 20000
		}
		if c.DefaultWindowSize == 0 {
			c.DefaultWindowSize = 64 * 1024
		}
		if c.PerClientQueueCapacity == 0 {
			c.PerClientQueueCapacity = 1000
		}
		if c.InputBufferSize == 0 {
			c.InputBufferSize = 100
		}
		if c.TargetLatencyMs == 0 {
			c.TargetLatencyMs = 100
		}
		if c.MaxScrollbackLines == 0 {
			c.MaxScrollbackLines = 10000
		}
		if c.MaxRetainedStateDeltas == 0 {
			c.MaxRetainedStateDeltas = 256
		}
		if c.ShutdownGraceMs == 0 {
			c.ShutdownGraceMs = 2000
		}
	})
}
