package reconnect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmuxagent/streamcore/service"
	"github.com/tmuxagent/streamcore/termstate"
)

func termstateSnapshotStub() termstate.Snapshot {
	return termstate.Snapshot{Columns: 80, Rows: 24, SequenceNumber: 9}
}

func newTestManager(t *testing.T, window time.Duration) (*Manager, *service.StreamingDataService, *fakeClock) {
	t.Helper()
	svc := service.New(service.ServiceConfig{}, nil)
	svc.Start()
	require.True(t, svc.CreateSession(1, 80, 24))

	clock := &fakeClock{t: time.Unix(0, 0)}
	m := New(Config{ReconnectionWindow: window}, svc, nil)
	m.SetClock(clock.Now)
	return m, svc, clock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// TestReconnectionWindowScenario mirrors the spec's disconnect-then-reattach
// timeline: disconnect at t=0 with a 5s window, a reattach at t=4s succeeds,
// a reattach at t=6s is rejected as expired.
func TestReconnectionWindowScenario(t *testing.T) {
	m, svc, clock := newTestManager(t, 5*time.Second)

	_, _, err := svc.RegisterClient(1, service.ClientInfo{ClientId: "c1"}, nil, nil)
	require.NoError(t, err)
	m.RecordDisconnection("c1", 1, 42, 7)

	clock.Advance(4 * time.Second)
	assert.True(t, m.CanReconnect("c1"))

	result := m.AttemptReconnection("c1", 1, nil)
	assert.True(t, result.Success)
	assert.Equal(t, NoError, result.ErrorCode)

	// A second disconnection/reattach past the window is rejected.
	m.RecordDisconnection("c1", 1, 50, 8)
	clock.Advance(6 * time.Second)
	assert.False(t, m.CanReconnect("c1"))

	result = m.AttemptReconnection("c1", 1, nil)
	assert.False(t, result.Success)
	assert.Equal(t, WindowExpired, result.ErrorCode)
}

func TestCanReconnectUnknownClientIsTrue(t *testing.T) {
	m, _, _ := newTestManager(t, 5*time.Second)
	assert.True(t, m.CanReconnect("never-seen"))
}

func TestAttemptReconnectionUnknownSessionFails(t *testing.T) {
	m, _, _ := newTestManager(t, 5*time.Second)
	m.RecordDisconnection("c1", 1, 1, 1)

	result := m.AttemptReconnection("c1", 99, nil)
	assert.False(t, result.Success)
	assert.Equal(t, SessionNotFound, result.ErrorCode)
}

func TestAttemptReconnectionUsesLastKnownSequenceOverride(t *testing.T) {
	m, svc, _ := newTestManager(t, 5*time.Second)
	for _, s := range []string{"a", "b", "c"} {
		_, err := svc.ProcessTerminalOutput(1, []byte(s))
		require.NoError(t, err)
	}
	m.RecordDisconnection("c1", 1, 10, 0)

	from := uint64(1)
	result := m.AttemptReconnection("c1", 1, &from)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.ChunksReplayed)
}

func TestAttemptReconnectionCarriesStateDeltas(t *testing.T) {
	m, svc, _ := newTestManager(t, 5*time.Second)
	require.NoError(t, svc.UpdateTerminalState(1, termstate.Snapshot{
		Columns: 80, Rows: 24, SequenceNumber: 1,
	}, true))
	require.NoError(t, svc.ApplyStateDelta(1, termstate.StateDelta{BaseSequence: 1, NewSequence: 2}))

	lastState := uint64(1)
	m.RecordDisconnection("c1", 1, 0, lastState)

	result := m.AttemptReconnection("c1", 1, nil)
	require.True(t, result.Success)
	assert.Nil(t, result.StateSnapshot)
	require.Len(t, result.StateDeltas, 1)
	assert.Equal(t, uint64(1), result.StateDeltas[0].BaseSequence)
}

func TestClearClientStateRemovesEntry(t *testing.T) {
	m, _, _ := newTestManager(t, 5*time.Second)
	m.RecordDisconnection("c1", 1, 1, 1)
	m.ClearClientState("c1")
	stats := m.GetStatistics()
	assert.Equal(t, 0, stats.TrackedClients)
}

func TestUpdateAndGetStateSnapshot(t *testing.T) {
	m, _, _ := newTestManager(t, 5*time.Second)
	_, ok := m.GetStateSnapshot(1)
	assert.False(t, ok)

	m.UpdateStateSnapshot(1, termstateSnapshotStub())
	snap, ok := m.GetStateSnapshot(1)
	require.True(t, ok)
	assert.Equal(t, uint64(9), snap.SequenceNumber)

	m.ClearSessionState(1)
	_, ok = m.GetStateSnapshot(1)
	assert.False(t, ok)
}

func TestCleanupExpiredIsIdempotent(t *testing.T) {
	m, _, _ := newTestManager(t, 5*time.Second)
	m.RecordDisconnection("c1", 1, 1, 1)
	m.CleanupExpired()
	m.CleanupExpired()
	assert.Equal(t, uint64(2), m.GetStatistics().CleanupsRun)
}
