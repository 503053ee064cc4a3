// Package reconnect tracks recently-disconnected clients and serves
// replay+snapshot data on reattach within a bounded window. The
// disconnected-client store is an expirable LRU (golang-lru/v2/expirable)
// rather than a hand-rolled map+timestamp sweep, and periodic cleanup is
// scheduled the way nishisan-dev-n-backup schedules its recurring jobs
// (internal/agent/scheduler.go, robfig/cron/v3) generalized from
// per-backup-entry schedules to one fixed-interval sweep.
package reconnect

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/inconshreveable/log15/v3"
	"github.com/robfig/cron/v3"

	"github.com/tmuxagent/streamcore/service"
	"github.com/tmuxagent/streamcore/termstate"
)

// ErrorCode for reconnection-specific failures.
type ErrorCode uint32

const (
	NoError ErrorCode = iota
	WindowExpired
	SessionNotFound
)

// DisconnectedClientState is kept until disconnectedAt + reconnectionWindow
// passes.
type DisconnectedClientState struct {
	ClientId          string
	SessionId         uint32
	LastSequenceNumber uint64
	LastStateSequence  uint64
	DisconnectedAt     time.Time
}

// ReconnectionResult reports the outcome of AttemptReconnection.
type ReconnectionResult struct {
	Success                 bool
	ChunksReplayed          int
	OldestSequenceAvailable uint64
	DataLost                bool
	StateSnapshot           *termstate.Snapshot
	StateDeltas             []termstate.StateDelta
	ErrorCode               ErrorCode
}

// Config tunes a Manager.
type Config struct {
	ReconnectionWindow time.Duration
	CleanupGrace       time.Duration
	MaxReplayBytes      int
	CleanupSchedule     string // cron expression; default "@every 30s"
}

// Manager tracks disconnected clients and brokers reattachment through the
// orchestrating StreamingDataService.
type Manager struct {
	mu             sync.Mutex
	disconnected   *lru.LRU[string, DisconnectedClientState]
	stateSnapshots map[uint32]termstate.Snapshot

	cfg Config
	svc *service.StreamingDataService
	log log15.Logger
	now func() time.Time

	cron *cron.Cron

	cleanupsRun uint64
}

// New creates a Manager bound to svc, the orchestrator it will re-register
// clients against on reconnection.
func New(cfg Config, svc *service.StreamingDataService, log log15.Logger) *Manager {
	if cfg.ReconnectionWindow == 0 {
		cfg.ReconnectionWindow = 30 * time.Second
	}
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = "@every 30s"
	}
	if log == nil {
		log = log15.Root()
	}
	m := &Manager{
		disconnected:   lru.NewLRU[string, DisconnectedClientState](4096, nil, cfg.ReconnectionWindow+cfg.CleanupGrace),
		stateSnapshots: make(map[uint32]termstate.Snapshot),
		cfg:            cfg,
		svc:            svc,
		log:            log,
		now:            time.Now,
	}
	return m
}

// SetClock overrides the time source used for disconnection timestamps and
// window checks. Intended for tests; production callers never need it.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// StartCleanup schedules periodic CleanupExpired calls. Safe to skip if the
// caller prefers to drive cleanup itself (the expirable LRU evicts lazily
// on access regardless).
func (m *Manager) StartCleanup() error {
	c := cron.New()
	if _, err := c.AddFunc(m.cfg.CleanupSchedule, m.CleanupExpired); err != nil {
		return err
	}
	m.cron = c
	c.Start()
	return nil
}

// StopCleanup stops the cron scheduler started by StartCleanup, waiting up
// to ctx's deadline for an in-flight cleanup to finish.
func (m *Manager) StopCleanup(ctx context.Context) {
	if m.cron == nil {
		return
	}
	stopCtx := m.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		m.log.Warn("reconnection cleanup stop timed out")
	}
}

// RecordDisconnection inserts or overwrites the disconnected-client entry
// for clientId. A later disconnection for the same client replaces the
// earlier sequences.
func (m *Manager) RecordDisconnection(clientId string, sessionId uint32, lastSequence, lastStateSequence uint64) {
	m.disconnected.Add(clientId, DisconnectedClientState{
		ClientId:           clientId,
		SessionId:          sessionId,
		LastSequenceNumber: lastSequence,
		LastStateSequence:  lastStateSequence,
		DisconnectedAt:     m.now(),
	})
}

// CanReconnect reports whether clientId may still attempt reconnection:
// true for an unknown (never disconnected, or already expired) client, and
// true while its entry is within the reconnection window.
func (m *Manager) CanReconnect(clientId string) bool {
	entry, ok := m.disconnected.Get(clientId)
	if !ok {
		return true
	}
	return m.now().Sub(entry.DisconnectedAt) < m.cfg.ReconnectionWindow
}

// AttemptReconnection validates the window, re-registers the client
// against the orchestrator, and requests replay from the resolved
// sequence. On success the disconnected-client entry is removed.
func (m *Manager) AttemptReconnection(clientId string, sessionId uint32, lastKnownSequence *uint64) ReconnectionResult {
	entry, known := m.disconnected.Get(clientId)
	if known && m.now().Sub(entry.DisconnectedAt) >= m.cfg.ReconnectionWindow {
		return ReconnectionResult{Success: false, ErrorCode: WindowExpired}
	}

	seq := uint64(0)
	if lastKnownSequence != nil {
		seq = *lastKnownSequence
	} else if known {
		seq = entry.LastSequenceNumber
	}

	var lastStateSeq *uint64
	if known {
		s := entry.LastStateSequence
		lastStateSeq = &s
	}

	result, _, err := m.svc.RegisterClient(sessionId, service.ClientInfo{ClientId: clientId}, &seq, lastStateSeq)
	if err != nil {
		if service.GetErrorCode(err) == service.SessionNotFound {
			return ReconnectionResult{Success: false, ErrorCode: SessionNotFound}
		}
		return ReconnectionResult{Success: false}
	}

	m.disconnected.Remove(clientId)
	return ReconnectionResult{
		Success:                 true,
		ChunksReplayed:          result.ChunksReplayed,
		OldestSequenceAvailable: result.OldestAvailableSequence,
		DataLost:                result.DataLost,
		StateSnapshot:           result.StateSnapshot,
		StateDeltas:             result.StateDeltas,
	}
}

// UpdateStateSnapshot keeps the reconnection cache synchronous with live
// state, so a reattach that arrives after the owning session has already
// been destroyed can still offer the last-known snapshot.
func (m *Manager) UpdateStateSnapshot(sessionId uint32, snapshot termstate.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateSnapshots[sessionId] = snapshot
}

func (m *Manager) GetStateSnapshot(sessionId uint32) (termstate.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.stateSnapshots[sessionId]
	return snap, ok
}

func (m *Manager) ClearSessionState(sessionId uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stateSnapshots, sessionId)
}

func (m *Manager) ClearClientState(clientId string) {
	m.disconnected.Remove(clientId)
}

// CleanupExpired is idempotent and safe to call on a timer; the expirable
// LRU already evicts lazily, so this touches its keys to drive eviction
// proactively and counts the sweep in Statistics.CleanupsRun; it does not
// report how many entries were live.
func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	m.cleanupsRun++
	m.mu.Unlock()
	_ = m.disconnected.Keys()
}

// Statistics reports operational counters for observability.
type Statistics struct {
	TrackedClients int
	CleanupsRun    uint64
}

func (m *Manager) GetStatistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Statistics{
		TrackedClients: m.disconnected.Len(),
		CleanupsRun:    m.cleanupsRun,
	}
}
