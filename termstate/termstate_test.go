package termstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreWithSnapshot(t *testing.T) *Store {
	t.Helper()
	s := New(0, 8, nil)
	s.UpdateSnapshot(Snapshot{
		Columns:        80,
		Rows:           24,
		CursorX:        0,
		CursorY:        0,
		ForegroundColor: 7,
		Attributes:     0,
		SequenceNumber: 1,
	}, true)
	return s
}

func TestApplyDeltaExampleScenario(t *testing.T) {
	s := newStoreWithSnapshot(t)
	err := s.ApplyDelta(StateDelta{
		BaseSequence: 1,
		NewSequence:  2,
		Updates: []StateUpdate{
			{Type: CursorMove, Row: 5, Col: 10},
			{Type: ColorChange, Color: 3},
			{Type: AttributeChange, Attributes: 4},
		},
	})
	require.NoError(t, err)

	got := s.GetSnapshot()
	assert.Equal(t, 10, got.CursorX)
	assert.Equal(t, 5, got.CursorY)
	assert.Equal(t, uint32(3), got.ForegroundColor)
	assert.Equal(t, uint32(4), got.Attributes)
	assert.Equal(t, uint64(2), got.SequenceNumber)
}

func TestApplyDeltaWrongBaseSequenceFails(t *testing.T) {
	s := newStoreWithSnapshot(t)
	err := s.ApplyDelta(StateDelta{BaseSequence: 99, NewSequence: 2})
	require.Error(t, err)
	var mismatch *StateOutOfSync
	assert.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uint64(1), s.CurrentSequence())
}

func TestApplyDeltaMalformedUpdateTypeFails(t *testing.T) {
	s := newStoreWithSnapshot(t)
	err := s.ApplyDelta(StateDelta{
		BaseSequence: 1,
		NewSequence:  2,
		Updates:      []StateUpdate{{Type: UpdateType(99)}},
	})
	require.Error(t, err)
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)
	assert.Equal(t, uint64(1), s.CurrentSequence())
}

func TestApplyDeltaLineUpdate(t *testing.T) {
	s := newStoreWithSnapshot(t)
	err := s.ApplyDelta(StateDelta{
		BaseSequence: 1,
		NewSequence:  2,
		Updates: []StateUpdate{
			{Type: LineUpdate, Row: 0, Data: []byte("hello")},
		},
	})
	require.NoError(t, err)
	got := s.GetSnapshot()
	assert.Equal(t, []byte("hello"), got.ScreenContent[:5])
}

func TestApplyDeltaOutOfBoundsCoordinateIsLoggedNotFailed(t *testing.T) {
	s := newStoreWithSnapshot(t)
	err := s.ApplyDelta(StateDelta{
		BaseSequence: 1,
		NewSequence:  2,
		Updates: []StateUpdate{
			{Type: CursorMove, Row: 1000, Col: 1000},
		},
	})
	require.NoError(t, err)
	got := s.GetSnapshot()
	assert.Equal(t, 79, got.CursorX)
	assert.Equal(t, 23, got.CursorY)
}

func TestScrollbackPage(t *testing.T) {
	s := New(0, 0, nil)
	for i := 1; i <= 5; i++ {
		s.PushScrollbackLine([]string{"line1", "line2", "line3", "line4", "line5"}[i-1])
	}
	page := s.GetScrollbackPage(1, 2)
	assert.Equal(t, 1, page.StartLine)
	assert.Equal(t, 5, page.TotalLines)
	assert.Equal(t, "line2\nline3\n", page.Lines)
	assert.True(t, page.HasMore)
}

func TestScrollbackEviction(t *testing.T) {
	s := New(3, 0, nil)
	for i := 1; i <= 5; i++ {
		s.PushScrollbackLine([]string{"l1", "l2", "l3", "l4", "l5"}[i-1])
	}
	page := s.GetScrollbackPage(0, 10)
	assert.Equal(t, 3, page.TotalLines)
	assert.Equal(t, "l3\nl4\nl5\n", page.Lines)
}

func TestDeltasSinceReturnsRetainedChain(t *testing.T) {
	s := newStoreWithSnapshot(t)
	first := StateDelta{BaseSequence: 1, NewSequence: 2, Updates: []StateUpdate{{Type: CursorMove, Row: 1, Col: 1}}}
	second := StateDelta{BaseSequence: 2, NewSequence: 3, Updates: []StateUpdate{{Type: CursorMove, Row: 2, Col: 2}}}
	require.NoError(t, s.ApplyDelta(first))
	require.NoError(t, s.ApplyDelta(second))

	deltas, ok := s.DeltasSince(1)
	require.True(t, ok)
	assert.Equal(t, []StateDelta{first, second}, deltas)

	_, ok = s.DeltasSince(3)
	assert.False(t, ok, "already current, nothing to replay")
}

func TestDeltasSinceMissesOnceEvicted(t *testing.T) {
	s := newStoreWithSnapshot(t)
	s.maxRetainedDeltas = 1
	require.NoError(t, s.ApplyDelta(StateDelta{BaseSequence: 1, NewSequence: 2}))
	require.NoError(t, s.ApplyDelta(StateDelta{BaseSequence: 2, NewSequence: 3}))

	_, ok := s.DeltasSince(1)
	assert.False(t, ok, "delta from seq 1 was evicted, caller must fall back to snapshot")

	deltas, ok := s.DeltasSince(2)
	require.True(t, ok)
	assert.Len(t, deltas, 1)
}

func TestScroll(t *testing.T) {
	s := newStoreWithSnapshot(t)
	err := s.ApplyDelta(StateDelta{
		BaseSequence: 1,
		NewSequence:  2,
		Updates: []StateUpdate{
			{Type: LineUpdate, Row: 0, Data: []byte("first row")},
			{Type: Scroll, IntValue: 1},
		},
	})
	require.NoError(t, err)
	got := s.GetSnapshot()
	// row 0 now holds what was row 1 (blank), so "first row" is gone from row 0.
	assert.NotEqual(t, "first row", string(got.ScreenContent[:9]))
}
