package frame

import "google.golang.org/protobuf/encoding/protowire"

// Message payload shapes for every frame type in the wire format. Each
// struct documents its field numbers; they are part of the wire contract
// and must never be renumbered.

// CompressionType is the enum carried alongside output chunks and
// compression-control messages.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionDeflate
	CompressionLZ4
)

// --- TerminalOutputData {1:sessionId, 2:data, 3:sequenceNumber, 4:compressed} ---
// Fields 5-7 are additions needed to carry the full OutputChunk shape
// (compression family, replay marker, chunk timestamp) over the wire.
type TerminalOutputData struct {
	SessionId       uint32
	Data            []byte
	SequenceNumber  uint64
	Compressed      bool
	CompressionType CompressionType
	IsReplay        bool
	TimestampMs     uint64
}

func (m TerminalOutputData) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendBytes(b, 2, m.Data)
	b = appendUint64(b, 3, m.SequenceNumber)
	b = appendBool(b, 4, m.Compressed)
	b = appendUint32(b, 5, uint32(m.CompressionType))
	b = appendBool(b, 6, m.IsReplay)
	b = appendUint64(b, 7, m.TimestampMs)
	return b
}

func UnmarshalTerminalOutputData(b []byte) (TerminalOutputData, error) {
	var m TerminalOutputData
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeBytes(rest)
			m.Data = v
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.SequenceNumber = v
			return n, err
		case 4:
			v, n, err := consumeVarint(rest)
			m.Compressed = v != 0
			return n, err
		case 5:
			v, n, err := consumeVarint(rest)
			m.CompressionType = CompressionType(v)
			return n, err
		case 6:
			v, n, err := consumeVarint(rest)
			m.IsReplay = v != 0
			return n, err
		case 7:
			v, n, err := consumeVarint(rest)
			m.TimestampMs = v
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- TerminalInputData {1:sessionId, 2:data, 3:sequenceNumber} ---
type TerminalInputData struct {
	SessionId      uint32
	Data           []byte
	SequenceNumber uint64
}

func (m TerminalInputData) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendBytes(b, 2, m.Data)
	b = appendUint64(b, 3, m.SequenceNumber)
	return b
}

func UnmarshalTerminalInputData(b []byte) (TerminalInputData, error) {
	var m TerminalInputData
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeBytes(rest)
			m.Data = v
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.SequenceNumber = v
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- TerminalResize {1:sessionId, 2:columns, 3:rows} ---
type TerminalResize struct {
	SessionId uint32
	Columns   uint32
	Rows      uint32
}

func (m TerminalResize) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint32(b, 2, m.Columns)
	b = appendUint32(b, 3, m.Rows)
	return b
}

func UnmarshalTerminalResize(b []byte) (TerminalResize, error) {
	var m TerminalResize
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.Columns = uint32(v)
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.Rows = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- Signal {1:sessionId, 2:signalNumber} ---
type Signal struct {
	SessionId    uint32
	SignalNumber uint32
}

func (m Signal) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint32(b, 2, m.SignalNumber)
	return b
}

func UnmarshalSignal(b []byte) (Signal, error) {
	var m Signal
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.SignalNumber = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- StateSnapshotMsg {1:sessionId, 2:columns, 3:rows, 4:cursorX, 5:cursorY,
// 6:cursorVisible, 7:screenContent, 8:scrollbackOffset, 9:scrollbackTotal,
// 10:foregroundColor, 11:backgroundColor, 12:attributes, 13:sequenceNumber,
// 14:charset} ---
type StateSnapshotMsg struct {
	SessionId        uint32
	Columns          uint32
	Rows             uint32
	CursorX          uint32
	CursorY          uint32
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

func (m StateSnapshotMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint32(b, 2, m.Columns)
	b = appendUint32(b, 3, m.Rows)
	b = appendUint32(b, 4, m.CursorX)
	b = appendUint32(b, 5, m.CursorY)
	b = appendBool(b, 6, m.CursorVisible)
	b = appendBytes(b, 7, m.ScreenContent)
	b = appendUint64(b, 8, m.ScrollbackOffset)
	b = appendUint64(b, 9, m.ScrollbackTotal)
	b = appendUint32(b, 10, m.ForegroundColor)
	b = appendUint32(b, 11, m.BackgroundColor)
	b = appendUint32(b, 12, m.Attributes)
	b = appendUint64(b, 13, m.SequenceNumber)
	b = appendString(b, 14, m.Charset)
	return b
}

func UnmarshalStateSnapshotMsg(b []byte) (StateSnapshotMsg, error) {
	var m StateSnapshotMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.Columns = uint32(v)
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.Rows = uint32(v)
			return n, err
		case 4:
			v, n, err := consumeVarint(rest)
			m.CursorX = uint32(v)
			return n, err
		case 5:
			v, n, err := consumeVarint(rest)
			m.CursorY = uint32(v)
			return n, err
		case 6:
			v, n, err := consumeVarint(rest)
			m.CursorVisible = v != 0
			return n, err
		case 7:
			v, n, err := consumeBytes(rest)
			m.ScreenContent = v
			return n, err
		case 8:
			v, n, err := consumeVarint(rest)
			m.ScrollbackOffset = v
			return n, err
		case 9:
			v, n, err := consumeVarint(rest)
			m.ScrollbackTotal = v
			return n, err
		case 10:
			v, n, err := consumeVarint(rest)
			m.ForegroundColor = uint32(v)
			return n, err
		case 11:
			v, n, err := consumeVarint(rest)
			m.BackgroundColor = uint32(v)
			return n, err
		case 12:
			v, n, err := consumeVarint(rest)
			m.Attributes = uint32(v)
			return n, err
		case 13:
			v, n, err := consumeVarint(rest)
			m.SequenceNumber = v
			return n, err
		case 14:
			v, n, err := consumeBytes(rest)
			m.Charset = string(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// UpdateType tags a StateUpdateMsg variant.
type UpdateType uint32

const (
	UpdateCursorMove UpdateType = iota
	UpdateCursorVisibility
	UpdateLineUpdate
	UpdateRegionUpdate
	UpdateScroll
	UpdateClearScreen
	UpdateClearLine
	UpdateAttributeChange
	UpdateColorChange
)

func (t UpdateType) valid() bool {
	return t <= UpdateColorChange
}

// --- StateUpdateMsg {1:updateType, 2:row, 3:col, 4:data, 5:intValue} ---
// intValue is zigzag-encoded so Scroll's signed line count stays compact.
type StateUpdateMsg struct {
	UpdateType UpdateType
	Row        uint32
	Col        uint32
	Data       []byte
	IntValue   int64
}

func (m StateUpdateMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, uint32(m.UpdateType))
	b = appendUint32(b, 2, m.Row)
	b = appendUint32(b, 3, m.Col)
	b = appendBytes(b, 4, m.Data)
	b = appendZigZag(b, 5, m.IntValue)
	return b
}

func UnmarshalStateUpdateMsg(b []byte) (StateUpdateMsg, error) {
	var m StateUpdateMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.UpdateType = UpdateType(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.Row = uint32(v)
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.Col = uint32(v)
			return n, err
		case 4:
			v, n, err := consumeBytes(rest)
			m.Data = v
			return n, err
		case 5:
			v, n, err := consumeVarint(rest)
			m.IntValue = zigzagDecode(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- StateDeltaMsg {1:sessionId, 2:baseSequenceNumber, 3:newSequenceNumber, 4:updates} ---
// updates is repeated: each occurrence of field 4 carries one
// StateUpdateMsg-encoded submessage, in order.
type StateDeltaMsg struct {
	SessionId         uint32
	BaseSequenceNumber uint64
	NewSequenceNumber  uint64
	Updates            []StateUpdateMsg
}

func (m StateDeltaMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint64(b, 2, m.BaseSequenceNumber)
	b = appendUint64(b, 3, m.NewSequenceNumber)
	for _, u := range m.Updates {
		b = appendMessage(b, 4, u.Marshal())
	}
	return b
}

func UnmarshalStateDeltaMsg(b []byte) (StateDeltaMsg, error) {
	var m StateDeltaMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.BaseSequenceNumber = v
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.NewSequenceNumber = v
			return n, err
		case 4:
			raw, n, err := consumeBytes(rest)
			if err != nil {
				return n, err
			}
			u, uerr := UnmarshalStateUpdateMsg(raw)
			if uerr != nil {
				return n, uerr
			}
			if !u.UpdateType.valid() {
				return n, newErr(InvalidFrame, nil)
			}
			m.Updates = append(m.Updates, u)
			return n, nil
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- FlowControlMessage {1:sessionId, 2:windowSize, 3:bytesAcknowledged} ---
type FlowControlMessage struct {
	SessionId         uint32
	WindowSize        uint32
	BytesAcknowledged uint64
}

func (m FlowControlMessage) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint32(b, 2, m.WindowSize)
	b = appendUint64(b, 3, m.BytesAcknowledged)
	return b
}

func UnmarshalFlowControlMessage(b []byte) (FlowControlMessage, error) {
	var m FlowControlMessage
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.WindowSize = uint32(v)
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.BytesAcknowledged = v
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- WindowUpdateMsg {1:sessionId, 2:windowIncrement} ---
type WindowUpdateMsg struct {
	SessionId       uint32
	WindowIncrement uint32
}

func (m WindowUpdateMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint32(b, 2, m.WindowIncrement)
	return b
}

func UnmarshalWindowUpdateMsg(b []byte) (WindowUpdateMsg, error) {
	var m WindowUpdateMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.WindowIncrement = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- HeartbeatMsg {1:sequenceNumber, 2:timestampMs, 3:pendingAcks} ---
type HeartbeatMsg struct {
	SequenceNumber uint64
	TimestampMs    uint64
	PendingAcks    uint32
}

func (m HeartbeatMsg) Marshal() []byte {
	var b []byte
	b = appendUint64(b, 1, m.SequenceNumber)
	b = appendUint64(b, 2, m.TimestampMs)
	b = appendUint32(b, 3, m.PendingAcks)
	return b
}

func UnmarshalHeartbeatMsg(b []byte) (HeartbeatMsg, error) {
	var m HeartbeatMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SequenceNumber = v
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.TimestampMs = v
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.PendingAcks = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- HeartbeatAckMsg {1:sequenceNumber, 2:serverTimestampMs, 3:latencyMs} ---
type HeartbeatAckMsg struct {
	SequenceNumber    uint64
	ServerTimestampMs uint64
	LatencyMs         uint64
}

func (m HeartbeatAckMsg) Marshal() []byte {
	var b []byte
	b = appendUint64(b, 1, m.SequenceNumber)
	b = appendUint64(b, 2, m.ServerTimestampMs)
	b = appendUint64(b, 3, m.LatencyMs)
	return b
}

func UnmarshalHeartbeatAckMsg(b []byte) (HeartbeatAckMsg, error) {
	var m HeartbeatAckMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SequenceNumber = v
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.ServerTimestampMs = v
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.LatencyMs = v
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}
