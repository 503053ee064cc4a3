package frame

// Typed helpers pairing a Type constant with its Marshal/Unmarshal pair,
// so callers build and parse Frames without juggling raw Type values by
// hand. Mirrors the framer's per-type method pattern, generalized with
// generics instead of one method per concrete frame struct.

type marshaler interface {
	Marshal() []byte
}

// Build wraps a message's wire encoding in a Frame of the given type and
// session. sessionId is 0 for control frames that are not session-scoped.
func Build(t Type, sessionId uint32, m marshaler) Frame {
	return Frame{
		SessionId: sessionId,
		FrameType: t,
		Payload:   m.Marshal(),
	}
}

// Parse decodes f.Payload with unmarshal and fails with InvalidFrame if
// f.FrameType does not match want.
func Parse[T any](f Frame, want Type, unmarshal func([]byte) (T, error)) (T, error) {
	var zero T
	if f.FrameType != want {
		return zero, newErr(InvalidFrame, nil)
	}
	return unmarshal(f.Payload)
}

func BuildVersionNegotiation(m VersionNegotiationMsg) Frame {
	return Build(VersionNegotiation, 0, m)
}

func BuildVersionResponse(m VersionResponseMsg) Frame {
	return Build(VersionResponse, 0, m)
}

func BuildCapabilityExchange(m CapabilityExchangeMsg) Frame {
	return Build(CapabilityExchange, 0, m)
}

func BuildCapabilityResponse(m CapabilityResponseMsg) Frame {
	return Build(CapabilityResponse, 0, m)
}

func BuildAuthenticationRequest(m AuthenticationRequestMsg) Frame {
	return Build(Authentication, 0, m)
}

func BuildAuthenticationResponse(m AuthenticationResponseMsg) Frame {
	return Build(AuthResponse, 0, m)
}

func BuildSessionCreate(m SessionCreateMsg) Frame {
	return Build(SessionCreate, m.SessionId, m)
}

func BuildSessionCreated(m SessionCreatedMsg) Frame {
	return Build(SessionCreated, m.SessionId, m)
}

func BuildSessionAttachRequest(m SessionAttachRequestMsg) Frame {
	return Build(SessionAttach, m.SessionId, m)
}

func BuildSessionAttached(m SessionAttachedMsg) Frame {
	return Build(SessionAttached, m.SessionId, m)
}

func BuildSessionDetach(m SessionDetachMsg) Frame {
	return Build(SessionDetach, m.SessionId, m)
}

func BuildSessionDetached(m SessionDetachedMsg) Frame {
	return Build(SessionDetached, m.SessionId, m)
}

func BuildSessionClose(m SessionCloseMsg) Frame {
	return Build(SessionClose, m.SessionId, m)
}

func BuildSessionClosed(m SessionClosedMsg) Frame {
	return Build(SessionClosed, m.SessionId, m)
}

func BuildSessionList() Frame {
	return Frame{FrameType: SessionList}
}

func BuildSessionListResponse(m SessionListResponseMsg) Frame {
	return Build(SessionListResponse, 0, m)
}

func BuildTerminalOutput(m TerminalOutputData) Frame {
	return Build(TerminalOutput, m.SessionId, m)
}

func BuildTerminalInput(m TerminalInputData) Frame {
	return Build(TerminalInput, m.SessionId, m)
}

func BuildResize(m TerminalResize) Frame {
	return Build(Resize, m.SessionId, m)
}

func BuildSignal(m Signal) Frame {
	return Build(Signal, m.SessionId, m)
}

func BuildStateSnapshot(m StateSnapshotMsg) Frame {
	return Build(StateSnapshot, m.SessionId, m)
}

func BuildStateDelta(m StateDeltaMsg) Frame {
	return Build(StateDelta, m.SessionId, m)
}

func BuildScrollbackRequest(m ScrollbackRequestMsg) Frame {
	return Build(ScrollbackRequest, m.SessionId, m)
}

func BuildScrollbackResponse(m ScrollbackResponseMsg) Frame {
	return Build(ScrollbackResponse, m.SessionId, m)
}

func BuildFlowControl(m FlowControlMessage) Frame {
	return Build(FlowControl, m.SessionId, m)
}

func BuildWindowUpdate(m WindowUpdateMsg) Frame {
	return Build(WindowUpdate, m.SessionId, m)
}

func BuildPause(m PauseMsg) Frame {
	return Build(Pause, m.SessionId, m)
}

func BuildResume(m ResumeMsg) Frame {
	return Build(Resume, m.SessionId, m)
}

func BuildHeartbeat(m HeartbeatMsg) Frame {
	return Build(Heartbeat, 0, m)
}

func BuildHeartbeatAck(m HeartbeatAckMsg) Frame {
	return Build(HeartbeatAck, 0, m)
}

func BuildProtocolError(m ProtocolErrorMsg) Frame {
	return Build(ErrorFrame, m.SessionId, m)
}

func BuildClose(m CloseMsg) Frame {
	return Build(Close, 0, m)
}

func BuildCompressionControl(m CompressionControlMsg) Frame {
	return Build(CompressionControl, m.SessionId, m)
}
