package frame

// Type is the 1-byte frame type code carried in the wire header. The set is
// closed and grouped by range, matching the wire format table: control
// frames in 0x00-0x0F, session frames in 0x10-0x1F, data frames in
// 0x30-0x3F, state frames in 0x40-0x4F, flow frames in 0x50-0x5F.
//
// Field/code numbers here must never be renumbered across protocol
// versions once shipped.
type Type uint8

const (
	// Control frames
	VersionNegotiation  Type = 0x00
	VersionResponse     Type = 0x01
	CapabilityExchange  Type = 0x02
	CapabilityResponse  Type = 0x03
	Heartbeat           Type = 0x04
	HeartbeatAck        Type = 0x05
	ErrorFrame          Type = 0x06
	Close               Type = 0x07
	Authentication      Type = 0x08
	AuthResponse        Type = 0x09
	CompressionControl  Type = 0x0A

	// Session frames
	SessionCreate       Type = 0x10
	SessionCreated      Type = 0x11
	SessionAttach       Type = 0x12
	SessionAttached     Type = 0x13
	SessionDetach       Type = 0x14
	SessionDetached     Type = 0x15
	SessionClose        Type = 0x16
	SessionClosed       Type = 0x17
	SessionList         Type = 0x18
	SessionListResponse Type = 0x19

	// Data frames
	TerminalOutput Type = 0x30
	TerminalInput  Type = 0x31
	Resize         Type = 0x32
	Signal         Type = 0x33

	// State frames
	StateSnapshot     Type = 0x40
	StateDelta        Type = 0x41
	CursorPosition    Type = 0x42
	ScrollbackRequest Type = 0x43
	ScrollbackResponse Type = 0x44

	// Flow frames
	FlowControl Type = 0x50
	WindowUpdate Type = 0x51
	Pause        Type = 0x52
	Resume       Type = 0x53
)

var typeNames = map[Type]string{
	VersionNegotiation:  "VersionNegotiation",
	VersionResponse:     "VersionResponse",
	CapabilityExchange:  "CapabilityExchange",
	CapabilityResponse:  "CapabilityResponse",
	Heartbeat:           "Heartbeat",
	HeartbeatAck:        "HeartbeatAck",
	ErrorFrame:          "Error",
	Close:               "Close",
	Authentication:      "Authentication",
	AuthResponse:        "AuthResponse",
	CompressionControl:  "CompressionControl",
	SessionCreate:       "SessionCreate",
	SessionCreated:      "SessionCreated",
	SessionAttach:       "SessionAttach",
	SessionAttached:     "SessionAttached",
	SessionDetach:       "SessionDetach",
	SessionDetached:     "SessionDetached",
	SessionClose:        "SessionClose",
	SessionClosed:       "SessionClosed",
	SessionList:         "SessionList",
	SessionListResponse: "SessionListResponse",
	TerminalOutput:      "TerminalOutput",
	TerminalInput:       "TerminalInput",
	Resize:              "Resize",
	Signal:              "Signal",
	StateSnapshot:       "StateSnapshot",
	StateDelta:          "StateDelta",
	CursorPosition:      "CursorPosition",
	ScrollbackRequest:   "ScrollbackRequest",
	ScrollbackResponse:  "ScrollbackResponse",
	FlowControl:         "FlowControl",
	WindowUpdate:        "WindowUpdate",
	Pause:               "Pause",
	Resume:              "Resume",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "Unknown"
}

// known reports whether t is part of the closed set above. Unknown codes
// decode successfully at the header level (so the byte stream can stay in
// sync) but are rejected by RequireKnownType as UnknownFrameType.
func (t Type) known() bool {
	_, ok := typeNames[t]
	return ok
}
