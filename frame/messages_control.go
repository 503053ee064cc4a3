package frame

import "google.golang.org/protobuf/encoding/protowire"

// Handshake, session-lifecycle and control messages. Field numbers here
// are this module's own extension of the wire table (the distilled spec
// only enumerates TerminalOutputData/TerminalInputData/TerminalResize/
// StateSnapshot/StateDelta/StateUpdate/FlowControlMessage/WindowUpdate/
// Heartbeat/HeartbeatAck); everything below is assigned once, consistently,
// and documented here as the source of truth.

// --- VersionNegotiationMsg {1:clientVersion, 2:minVersion, 3:maxVersion} ---
type VersionNegotiationMsg struct {
	ClientVersion uint32
	MinVersion    uint32
	MaxVersion    uint32
}

func (m VersionNegotiationMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.ClientVersion)
	b = appendUint32(b, 2, m.MinVersion)
	b = appendUint32(b, 3, m.MaxVersion)
	return b
}

func UnmarshalVersionNegotiationMsg(b []byte) (VersionNegotiationMsg, error) {
	var m VersionNegotiationMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.ClientVersion = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.MinVersion = uint32(v)
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.MaxVersion = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- VersionResponseMsg {1:selectedVersion, 2:accepted, 3:rejectionReason} ---
type VersionResponseMsg struct {
	SelectedVersion uint32
	Accepted        bool
	RejectionReason string
}

func (m VersionResponseMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SelectedVersion)
	b = appendBool(b, 2, m.Accepted)
	b = appendString(b, 3, m.RejectionReason)
	return b
}

func UnmarshalVersionResponseMsg(b []byte) (VersionResponseMsg, error) {
	var m VersionResponseMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SelectedVersion = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.Accepted = v != 0
			return n, err
		case 3:
			v, n, err := consumeBytes(rest)
			m.RejectionReason = string(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- CapabilityExchangeMsg {1:compressionList(repeated), 2:features(repeated),
// 3:maxMessageSize, 4:maxConcurrentSessions} ---
type CapabilityExchangeMsg struct {
	CompressionList       []uint32
	Features              []string
	MaxMessageSize        uint32
	MaxConcurrentSessions uint32
}

func (m CapabilityExchangeMsg) Marshal() []byte {
	var b []byte
	for _, c := range m.CompressionList {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(c))
	}
	for _, f := range m.Features {
		b = appendString(b, 2, f)
	}
	b = appendUint32(b, 3, m.MaxMessageSize)
	b = appendUint32(b, 4, m.MaxConcurrentSessions)
	return b
}

func UnmarshalCapabilityExchangeMsg(b []byte) (CapabilityExchangeMsg, error) {
	var m CapabilityExchangeMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.CompressionList = append(m.CompressionList, uint32(v))
			return n, err
		case 2:
			v, n, err := consumeBytes(rest)
			m.Features = append(m.Features, string(v))
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.MaxMessageSize = uint32(v)
			return n, err
		case 4:
			v, n, err := consumeVarint(rest)
			m.MaxConcurrentSessions = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- CapabilityResponseMsg {1:compressionList, 2:features,
// 3:negotiatedMaxMessageSize, 4:heartbeatIntervalMs} ---
type CapabilityResponseMsg struct {
	CompressionList         []uint32
	Features                []string
	NegotiatedMaxMessageSize uint32
	HeartbeatIntervalMs     uint32
}

func (m CapabilityResponseMsg) Marshal() []byte {
	var b []byte
	for _, c := range m.CompressionList {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(c))
	}
	for _, f := range m.Features {
		b = appendString(b, 2, f)
	}
	b = appendUint32(b, 3, m.NegotiatedMaxMessageSize)
	b = appendUint32(b, 4, m.HeartbeatIntervalMs)
	return b
}

func UnmarshalCapabilityResponseMsg(b []byte) (CapabilityResponseMsg, error) {
	var m CapabilityResponseMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.CompressionList = append(m.CompressionList, uint32(v))
			return n, err
		case 2:
			v, n, err := consumeBytes(rest)
			m.Features = append(m.Features, string(v))
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.NegotiatedMaxMessageSize = uint32(v)
			return n, err
		case 4:
			v, n, err := consumeVarint(rest)
			m.HeartbeatIntervalMs = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- AuthenticationRequestMsg {1:clientId, 2:credential, 3:deviceInfoKeys(repeated),
// 4:deviceInfoValues(repeated, parallel to 3)} ---
type AuthenticationRequestMsg struct {
	ClientId        string
	Credential      []byte
	DeviceInfoKeys  []string
	DeviceInfoValues []string
}

func (m AuthenticationRequestMsg) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.ClientId)
	b = appendBytes(b, 2, m.Credential)
	for _, k := range m.DeviceInfoKeys {
		b = appendString(b, 3, k)
	}
	for _, v := range m.DeviceInfoValues {
		b = appendString(b, 4, v)
	}
	return b
}

func UnmarshalAuthenticationRequestMsg(b []byte) (AuthenticationRequestMsg, error) {
	var m AuthenticationRequestMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(rest)
			m.ClientId = string(v)
			return n, err
		case 2:
			v, n, err := consumeBytes(rest)
			m.Credential = v
			return n, err
		case 3:
			v, n, err := consumeBytes(rest)
			m.DeviceInfoKeys = append(m.DeviceInfoKeys, string(v))
			return n, err
		case 4:
			v, n, err := consumeBytes(rest)
			m.DeviceInfoValues = append(m.DeviceInfoValues, string(v))
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- AuthenticationResponseMsg {1:success, 2:sessionToken, 3:expiresInMs,
// 4:errorCode, 5:message} ---
type AuthenticationResponseMsg struct {
	Success      bool
	SessionToken string
	ExpiresInMs  uint64
	ErrorCode    uint32
	Message      string
}

func (m AuthenticationResponseMsg) Marshal() []byte {
	var b []byte
	b = appendBool(b, 1, m.Success)
	b = appendString(b, 2, m.SessionToken)
	b = appendUint64(b, 3, m.ExpiresInMs)
	b = appendUint32(b, 4, m.ErrorCode)
	b = appendString(b, 5, m.Message)
	return b
}

func UnmarshalAuthenticationResponseMsg(b []byte) (AuthenticationResponseMsg, error) {
	var m AuthenticationResponseMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.Success = v != 0
			return n, err
		case 2:
			v, n, err := consumeBytes(rest)
			m.SessionToken = string(v)
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.ExpiresInMs = v
			return n, err
		case 4:
			v, n, err := consumeVarint(rest)
			m.ErrorCode = uint32(v)
			return n, err
		case 5:
			v, n, err := consumeBytes(rest)
			m.Message = string(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- SessionCreateMsg {1:sessionId, 2:columns, 3:rows} ---
type SessionCreateMsg struct {
	SessionId uint32
	Columns   uint32
	Rows      uint32
}

func (m SessionCreateMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint32(b, 2, m.Columns)
	b = appendUint32(b, 3, m.Rows)
	return b
}

func UnmarshalSessionCreateMsg(b []byte) (SessionCreateMsg, error) {
	var m SessionCreateMsg
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

// --- SessionCreatedMsg {1:sessionId, 2:success, 3:errorCode, 4:message} ---
type SessionCreatedMsg struct {
	SessionId uint32
	Success   bool
	ErrorCode uint32
	Message   string
}

func (m SessionCreatedMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendBool(b, 2, m.Success)
	b = appendUint32(b, 3, m.ErrorCode)
	b = appendString(b, 4, m.Message)
	return b
}

func UnmarshalSessionCreatedMsg(b []byte) (SessionCreatedMsg, error) {
	var m SessionCreatedMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.Success = v != 0
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.ErrorCode = uint32(v)
			return n, err
		case 4:
			v, n, err := consumeBytes(rest)
			m.Message = string(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- SessionAttachRequestMsg {1:sessionId, 2:clientId, 3:replayFromSequence,
// 4:hasReplayFromSequence, 5:lastKnownStateSequence, 6:hasLastKnownStateSequence,
// 7:windowSize} ---
// Fields 4 and 6 carry explicit presence since "replayFromSequence" and
// "lastKnownStateSequence" are optional per the registration contract and
// 0 is itself a valid sequence/absence-sentinel ambiguity otherwise.
type SessionAttachRequestMsg struct {
	SessionId                 uint32
	ClientId                  string
	ReplayFromSequence        uint64
	HasReplayFromSequence     bool
	LastKnownStateSequence    uint64
	HasLastKnownStateSequence bool
	WindowSize                uint32
}

func (m SessionAttachRequestMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendString(b, 2, m.ClientId)
	b = appendUint64(b, 3, m.ReplayFromSequence)
	b = appendBool(b, 4, m.HasReplayFromSequence)
	b = appendUint64(b, 5, m.LastKnownStateSequence)
	b = appendBool(b, 6, m.HasLastKnownStateSequence)
	b = appendUint32(b, 7, m.WindowSize)
	return b
}

func UnmarshalSessionAttachRequestMsg(b []byte) (SessionAttachRequestMsg, error) {
	var m SessionAttachRequestMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeBytes(rest)
			m.ClientId = string(v)
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.ReplayFromSequence = v
			return n, err
		case 4:
			v, n, err := consumeVarint(rest)
			m.HasReplayFromSequence = v != 0
			return n, err
		case 5:
			v, n, err := consumeVarint(rest)
			m.LastKnownStateSequence = v
			return n, err
		case 6:
			v, n, err := consumeVarint(rest)
			m.HasLastKnownStateSequence = v != 0
			return n, err
		case 7:
			v, n, err := consumeVarint(rest)
			m.WindowSize = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- SessionAttachedMsg {1:sessionId, 2:success, 3:chunksReplayed,
// 4:oldestAvailableSequence, 5:dataLost, 6:errorCode, 7:message} ---
type SessionAttachedMsg struct {
	SessionId               uint32
	Success                 bool
	ChunksReplayed          uint32
	OldestAvailableSequence uint64
	DataLost                bool
	ErrorCode               uint32
	Message                 string
}

func (m SessionAttachedMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendBool(b, 2, m.Success)
	b = appendUint32(b, 3, m.ChunksReplayed)
	b = appendUint64(b, 4, m.OldestAvailableSequence)
	b = appendBool(b, 5, m.DataLost)
	b = appendUint32(b, 6, m.ErrorCode)
	b = appendString(b, 7, m.Message)
	return b
}

func UnmarshalSessionAttachedMsg(b []byte) (SessionAttachedMsg, error) {
	var m SessionAttachedMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.Success = v != 0
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.ChunksReplayed = uint32(v)
			return n, err
		case 4:
			v, n, err := consumeVarint(rest)
			m.OldestAvailableSequence = v
			return n, err
		case 5:
			v, n, err := consumeVarint(rest)
			m.DataLost = v != 0
			return n, err
		case 6:
			v, n, err := consumeVarint(rest)
			m.ErrorCode = uint32(v)
			return n, err
		case 7:
			v, n, err := consumeBytes(rest)
			m.Message = string(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- SessionDetachMsg / SessionDetachedMsg {1:sessionId, 2:clientId} ---
type SessionDetachMsg struct {
	SessionId uint32
	ClientId  string
}

func (m SessionDetachMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendString(b, 2, m.ClientId)
	return b
}

func UnmarshalSessionDetachMsg(b []byte) (SessionDetachMsg, error) {
	var m SessionDetachMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeBytes(rest)
			m.ClientId = string(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

type SessionDetachedMsg = SessionDetachMsg

func UnmarshalSessionDetachedMsg(b []byte) (SessionDetachedMsg, error) {
	return UnmarshalSessionDetachMsg(b)
}

// --- SessionCloseMsg {1:sessionId} ---
type SessionCloseMsg struct {
	SessionId uint32
}

func (m SessionCloseMsg) Marshal() []byte {
	return appendUint32(nil, 1, m.SessionId)
}

func UnmarshalSessionCloseMsg(b []byte) (SessionCloseMsg, error) {
	var m SessionCloseMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- SessionClosedMsg {1:sessionId, 2:errorCode} ---
type SessionClosedMsg struct {
	SessionId uint32
	ErrorCode uint32
}

func (m SessionClosedMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint32(b, 2, m.ErrorCode)
	return b
}

func UnmarshalSessionClosedMsg(b []byte) (SessionClosedMsg, error) {
	var m SessionClosedMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.ErrorCode = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- SessionListResponseMsg {1:sessionIds(repeated)} ---
// SessionList itself carries no payload; it is an empty control request.
type SessionListResponseMsg struct {
	SessionIds []uint32
}

func (m SessionListResponseMsg) Marshal() []byte {
	var b []byte
	for _, id := range m.SessionIds {
		b = appendUint32(b, 1, id)
	}
	return b
}

func UnmarshalSessionListResponseMsg(b []byte) (SessionListResponseMsg, error) {
	var m SessionListResponseMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionIds = append(m.SessionIds, uint32(v))
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- ScrollbackRequestMsg {1:sessionId, 2:startLine, 3:lineCount} ---
type ScrollbackRequestMsg struct {
	SessionId uint32
	StartLine uint32
	LineCount uint32
}

func (m ScrollbackRequestMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint32(b, 2, m.StartLine)
	b = appendUint32(b, 3, m.LineCount)
	return b
}

func UnmarshalScrollbackRequestMsg(b []byte) (ScrollbackRequestMsg, error) {
	var m ScrollbackRequestMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.StartLine = uint32(v)
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.LineCount = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- ScrollbackResponseMsg {1:sessionId, 2:startLine, 3:totalLines, 4:lines, 5:hasMore} ---
type ScrollbackResponseMsg struct {
	SessionId  uint32
	StartLine  uint32
	TotalLines uint32
	Lines      []byte
	HasMore    bool
}

func (m ScrollbackResponseMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint32(b, 2, m.StartLine)
	b = appendUint32(b, 3, m.TotalLines)
	b = appendBytes(b, 4, m.Lines)
	b = appendBool(b, 5, m.HasMore)
	return b
}

func UnmarshalScrollbackResponseMsg(b []byte) (ScrollbackResponseMsg, error) {
	var m ScrollbackResponseMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.StartLine = uint32(v)
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.TotalLines = uint32(v)
			return n, err
		case 4:
			v, n, err := consumeBytes(rest)
			m.Lines = v
			return n, err
		case 5:
			v, n, err := consumeVarint(rest)
			m.HasMore = v != 0
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- ProtocolErrorMsg {1:sessionId, 2:errorCode, 3:message, 4:fatal} ---
type ProtocolErrorMsg struct {
	SessionId uint32
	ErrorCode uint32
	Message   string
	Fatal     bool
}

func (m ProtocolErrorMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendUint32(b, 2, m.ErrorCode)
	b = appendString(b, 3, m.Message)
	b = appendBool(b, 4, m.Fatal)
	return b
}

func UnmarshalProtocolErrorMsg(b []byte) (ProtocolErrorMsg, error) {
	var m ProtocolErrorMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.ErrorCode = uint32(v)
			return n, err
		case 3:
			v, n, err := consumeBytes(rest)
			m.Message = string(v)
			return n, err
		case 4:
			v, n, err := consumeVarint(rest)
			m.Fatal = v != 0
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- CloseMsg {1:reason} ---
type CloseMsg struct {
	Reason string
}

func (m CloseMsg) Marshal() []byte {
	return appendString(nil, 1, m.Reason)
}

func UnmarshalCloseMsg(b []byte) (CloseMsg, error) {
	var m CloseMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(rest)
			m.Reason = string(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- CompressionControlMsg {1:sessionId, 2:enabled, 3:level, 4:compressionType} ---
type CompressionControlMsg struct {
	SessionId       uint32
	Enabled         bool
	Level           uint32
	CompressionType CompressionType
}

func (m CompressionControlMsg) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.SessionId)
	b = appendBool(b, 2, m.Enabled)
	b = appendUint32(b, 3, m.Level)
	b = appendUint32(b, 4, uint32(m.CompressionType))
	return b
}

func UnmarshalCompressionControlMsg(b []byte) (CompressionControlMsg, error) {
	var m CompressionControlMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(rest)
			m.Enabled = v != 0
			return n, err
		case 3:
			v, n, err := consumeVarint(rest)
			m.Level = uint32(v)
			return n, err
		case 4:
			v, n, err := consumeVarint(rest)
			m.CompressionType = CompressionType(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

// --- PauseMsg / ResumeMsg {1:sessionId} ---
type PauseMsg struct {
	SessionId uint32
}

func (m PauseMsg) Marshal() []byte {
	return appendUint32(nil, 1, m.SessionId)
}

func UnmarshalPauseMsg(b []byte) (PauseMsg, error) {
	var m PauseMsg
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, rest []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(rest)
			m.SessionId = uint32(v)
			return n, err
		default:
			return skipField(typ, rest)
		}
	})
	return m, err
}

type ResumeMsg = PauseMsg

func UnmarshalResumeMsg(b []byte) (ResumeMsg, error) {
	return UnmarshalPauseMsg(b)
}
