// Package termstate holds the latest terminal screen snapshot for a
// session and applies incremental updates to it, plus a bounded scrollback
// history. The scrollback ring reuses the eviction discipline from
// ringbuffer, line-indexed instead of byte-indexed.
package termstate

import (
	"bytes"

	"github.com/inconshreveable/log15/v3"
)

// StateOutOfSync is returned by ApplyDelta when the delta's base sequence
// doesn't match the store's current sequence.
type StateOutOfSync struct {
	Expected uint64
	Got      uint64
}

func (e *StateOutOfSync) Error() string {
	return "termstate: out of sync"
}

// ProtocolError is returned for a structurally invalid delta (an update
// whose type tag is outside the known set).
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "termstate: protocol error: " + e.Reason
}

// UpdateType tags a StateUpdate variant.
type UpdateType int

const (
	CursorMove UpdateType = iota
	CursorVisibility
	LineUpdate
	RegionUpdate
	Scroll
	ClearScreen
	ClearLine
	AttributeChange
	ColorChange
	updateTypeCount
)

func (t UpdateType) valid() bool {
	return t >= CursorMove && t < updateTypeCount
}

// StateUpdate is one tagged change within a StateDelta. Which fields are
// meaningful depends on Type:
//
//	CursorMove:       Row, Col
//	CursorVisibility: Bool
//	LineUpdate:       Row, Data
//	RegionUpdate:     Row, Col, Data
//	Scroll:           IntValue (signed line count)
//	ClearScreen:      (none)
//	ClearLine:        Row
//	AttributeChange:  Attributes
//	ColorChange:      Color (foreground index)
type StateUpdate struct {
	Type       UpdateType
	Row        int
	Col        int
	Data       []byte
	IntValue   int
	Bool       bool
	Attributes uint32
	Color      uint32
}

// StateDelta is applicable only against the snapshot whose sequence number
// equals BaseSequence.
type StateDelta struct {
	BaseSequence uint64
	NewSequence  uint64
	Updates      []StateUpdate
}

// Snapshot is the full terminal screen state.
type Snapshot struct {
	Columns          int
	Rows             int
	CursorX          int
	CursorY          int
	CursorVisible    bool
	ScreenContent    []byte
	ScrollbackOffset uint64
	ScrollbackTotal  uint64
	ForegroundColor  uint32
	BackgroundColor  uint32
	Attributes       uint32
	SequenceNumber   uint64
	Charset          string
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.ScreenContent = append([]byte(nil), s.ScreenContent...)
	return out
}

// ScrollbackPage is the response to GetScrollbackPage.
type ScrollbackPage struct {
	StartLine  int
	TotalLines int
	Lines      string
	HasMore    bool
}

// Store holds the latest snapshot, a bounded history of recently applied
// deltas, and a bounded scrollback history for one session.
type Store struct {
	log log15.Logger

	snapshot Snapshot
	hasState bool

	scrollback         []string
	maxScrollbackLines int

	recentDeltas      []StateDelta
	maxRetainedDeltas int
}

// New creates an empty store. maxScrollbackLines bounds the scrollback
// ring; 0 disables the bound (unbounded growth, matching a caller that
// never pushed lines). maxRetainedDeltas bounds how many of the most
// recently applied deltas are kept for DeltasSince; 0 disables retention
// entirely (DeltasSince always misses, falling back to full-snapshot
// resync).
func New(maxScrollbackLines, maxRetainedDeltas int, log log15.Logger) *Store {
	if log == nil {
		log = log15.Root()
	}
	return &Store{log: log, maxScrollbackLines: maxScrollbackLines, maxRetainedDeltas: maxRetainedDeltas}
}

// UpdateSnapshot replaces the stored snapshot outright. initial=true is
// only meaningful to callers tracking whether a full resync is underway;
// the store itself accepts it unconditionally on an empty store.
func (s *Store) UpdateSnapshot(snap Snapshot, initial bool) {
	s.snapshot = snap.clone()
	s.hasState = true
}

// ApplyDelta validates delta.BaseSequence against the current sequence,
// then folds each update into a derived snapshot in order.
func (s *Store) ApplyDelta(delta StateDelta) error {
	if !s.hasState || s.snapshot.SequenceNumber != delta.BaseSequence {
		return &StateOutOfSync{Expected: s.snapshot.SequenceNumber, Got: delta.BaseSequence}
	}
	for _, u := range delta.Updates {
		if !u.Type.valid() {
			return &ProtocolError{Reason: "unknown update type"}
		}
	}

	next := s.snapshot.clone()
	for _, u := range delta.Updates {
		s.applyOne(&next, u)
	}
	next.SequenceNumber = delta.NewSequence
	s.snapshot = next
	s.retainDelta(delta)
	return nil
}

func (s *Store) retainDelta(delta StateDelta) {
	if s.maxRetainedDeltas <= 0 {
		return
	}
	s.recentDeltas = append(s.recentDeltas, delta)
	if len(s.recentDeltas) > s.maxRetainedDeltas {
		s.recentDeltas = s.recentDeltas[len(s.recentDeltas)-s.maxRetainedDeltas:]
	}
}

// DeltasSince returns the ordered chain of retained deltas that bring a
// client from seq up to the current snapshot sequence. ok is false if seq
// is already current (nothing to send), or if any intervening delta has
// already been evicted from the retention window, in which case the
// caller must fall back to a full Snapshot.
func (s *Store) DeltasSince(seq uint64) (deltas []StateDelta, ok bool) {
	if seq == s.snapshot.SequenceNumber {
		return nil, false
	}
	for i, d := range s.recentDeltas {
		if d.BaseSequence == seq {
			return append([]StateDelta(nil), s.recentDeltas[i:]...), true
		}
	}
	return nil, false
}

func (s *Store) applyOne(snap *Snapshot, u StateUpdate) {
	switch u.Type {
	case CursorMove:
		x, y, ok := s.clamp(snap, u.Col, u.Row)
		if !ok {
			s.log.Warn("cursor move out of bounds", "col", u.Col, "row", u.Row)
		}
		snap.CursorX, snap.CursorY = x, y
	case CursorVisibility:
		snap.CursorVisible = u.Bool
	case LineUpdate:
		if u.Row < 0 || u.Row >= snap.Rows {
			s.log.Warn("line update out of bounds", "row", u.Row)
			return
		}
		s.writeRow(snap, u.Row, 0, u.Data)
	case RegionUpdate:
		if u.Row < 0 || u.Row >= snap.Rows || u.Col < 0 || u.Col >= snap.Columns {
			s.log.Warn("region update out of bounds", "row", u.Row, "col", u.Col)
			return
		}
		s.writeRow(snap, u.Row, u.Col, u.Data)
	case Scroll:
		s.scroll(snap, u.IntValue)
	case ClearScreen:
		blank := bytes.Repeat([]byte{' '}, snap.Columns*snap.Rows)
		snap.ScreenContent = blank
	case ClearLine:
		if u.Row < 0 || u.Row >= snap.Rows {
			s.log.Warn("clear line out of bounds", "row", u.Row)
			return
		}
		blank := bytes.Repeat([]byte{' '}, snap.Columns)
		s.writeRow(snap, u.Row, 0, blank)
	case AttributeChange:
		snap.Attributes = u.Attributes
	case ColorChange:
		snap.ForegroundColor = u.Color
	}
}

func (s *Store) clamp(snap *Snapshot, col, row int) (int, int, bool) {
	ok := true
	if col < 0 {
		col, ok = 0, false
	} else if col >= snap.Columns {
		col, ok = snap.Columns-1, false
	}
	if row < 0 {
		row, ok = 0, false
	} else if row >= snap.Rows {
		row, ok = snap.Rows-1, false
	}
	return col, row, ok
}

func (s *Store) writeRow(snap *Snapshot, row, col int, data []byte) {
	if len(snap.ScreenContent) < snap.Columns*snap.Rows {
		grown := make([]byte, snap.Columns*snap.Rows)
		copy(grown, snap.ScreenContent)
		snap.ScreenContent = grown
	}
	start := row*snap.Columns + col
	end := start + len(data)
	maxEnd := (row + 1) * snap.Columns
	if end > maxEnd {
		end = maxEnd
		data = data[:end-start]
	}
	copy(snap.ScreenContent[start:end], data)
}

// scroll shifts the screen content by n rows (positive: content moves up,
// revealing blank rows at the bottom; negative: content moves down),
// filling newly exposed rows with spaces in the current attribute.
func (s *Store) scroll(snap *Snapshot, n int) {
	if n == 0 || snap.Rows == 0 {
		return
	}
	rowBytes := snap.Columns

	shifted := make([]byte, len(snap.ScreenContent))
	for i := range shifted {
		shifted[i] = ' '
	}
	for row := 0; row < snap.Rows; row++ {
		src := row + n
		if src < 0 || src >= snap.Rows {
			continue
		}
		copy(shifted[row*rowBytes:(row+1)*rowBytes], snap.ScreenContent[src*rowBytes:(src+1)*rowBytes])
	}
	snap.ScreenContent = shifted
}

// CurrentSequence returns the sequence number of the stored snapshot.
func (s *Store) CurrentSequence() uint64 {
	return s.snapshot.SequenceNumber
}

// GetSnapshot returns a copy of the stored snapshot.
func (s *Store) GetSnapshot() Snapshot {
	return s.snapshot.clone()
}

// PushScrollbackLine appends a newline-terminated line to the scrollback
// history, evicting the oldest line if the history is at its bound.
func (s *Store) PushScrollbackLine(line string) {
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}
	s.scrollback = append(s.scrollback, line)
	if s.maxScrollbackLines > 0 && len(s.scrollback) > s.maxScrollbackLines {
		s.scrollback = s.scrollback[len(s.scrollback)-s.maxScrollbackLines:]
	}
}

// GetScrollbackPage returns up to lineCount lines starting at startLine
// (0-indexed).
func (s *Store) GetScrollbackPage(startLine, lineCount int) ScrollbackPage {
	total := len(s.scrollback)
	if startLine < 0 {
		startLine = 0
	}
	if startLine >= total {
		return ScrollbackPage{StartLine: startLine, TotalLines: total, Lines: "", HasMore: false}
	}
	end := startLine + lineCount
	if end > total {
		end = total
	}
	var b bytes.Buffer
	for _, l := range s.scrollback[startLine:end] {
		b.WriteString(l)
	}
	return ScrollbackPage{
		StartLine:  startLine,
		TotalLines: total,
		Lines:      b.String(),
		HasMore:    end < total,
	}
}
