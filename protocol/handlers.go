package protocol

import (
	"context"
	"time"

	"github.com/tmuxagent/streamcore/frame"
	"github.com/tmuxagent/streamcore/service"
	"github.com/tmuxagent/streamcore/termstate"
)

func snapshotToWire(sessionId uint32, s termstate.Snapshot) frame.StateSnapshotMsg {
	return frame.StateSnapshotMsg{
		SessionId:        sessionId,
		Columns:          uint32(s.Columns),
		Rows:             uint32(s.Rows),
		CursorX:          uint32(s.CursorX),
		CursorY:          uint32(s.CursorY),
		CursorVisible:    s.CursorVisible,
		ScreenContent:    s.ScreenContent,
		ScrollbackOffset: s.ScrollbackOffset,
		ScrollbackTotal:  s.ScrollbackTotal,
		ForegroundColor:  s.ForegroundColor,
		BackgroundColor:  s.BackgroundColor,
		Attributes:       s.Attributes,
		SequenceNumber:   s.SequenceNumber,
		Charset:          s.Charset,
	}
}

func updateToWire(u termstate.StateUpdate) frame.StateUpdateMsg {
	return frame.StateUpdateMsg{
		UpdateType: frame.UpdateType(u.Type),
		Row:        uint32(u.Row),
		Col:        uint32(u.Col),
		Data:       u.Data,
		IntValue:   int64(u.IntValue),
	}
}

func deltaToWire(sessionId uint32, d termstate.StateDelta) frame.StateDeltaMsg {
	updates := make([]frame.StateUpdateMsg, len(d.Updates))
	for i, u := range d.Updates {
		updates[i] = updateToWire(u)
	}
	return frame.StateDeltaMsg{
		SessionId:          sessionId,
		BaseSequenceNumber: d.BaseSequence,
		NewSequenceNumber:  d.NewSequence,
		Updates:            updates,
	}
}

func (e *Endpoint) handleSessionCreate(f frame.Frame) error {
	req, err := frame.Parse(f, frame.SessionCreate, frame.UnmarshalSessionCreateMsg)
	if err != nil {
		return err
	}
	resp := frame.SessionCreatedMsg{SessionId: req.SessionId}
	if e.svc.CreateSession(req.SessionId, req.Columns, req.Rows) {
		resp.Success = true
	} else {
		resp.ErrorCode = uint32(service.SessionAlreadyExists)
		resp.Message = "session already exists"
	}
	return e.writeFrame(frame.BuildSessionCreated(resp))
}

func (e *Endpoint) handleSessionAttach(f frame.Frame) error {
	req, err := frame.Parse(f, frame.SessionAttach, frame.UnmarshalSessionAttachRequestMsg)
	if err != nil {
		return err
	}

	var replayFrom *uint64
	if req.HasReplayFromSequence {
		v := req.ReplayFromSequence
		replayFrom = &v
	}
	var lastKnownState *uint64
	if req.HasLastKnownStateSequence {
		v := req.LastKnownStateSequence
		lastKnownState = &v
	}

	clientId := e.clientIdOrRequest(req.ClientId)
	result, ch, err := e.svc.RegisterClient(req.SessionId, service.ClientInfo{ClientId: clientId, ConnectedAt: time.Now()}, replayFrom, lastKnownState)
	resp := frame.SessionAttachedMsg{SessionId: req.SessionId}
	if err != nil {
		resp.ErrorCode = uint32(service.GetErrorCode(err))
		resp.Message = err.Error()
		if werr := e.writeFrame(frame.BuildSessionAttached(resp)); werr != nil {
			return werr
		}
		return nil
	}

	resp.Success = true
	resp.ChunksReplayed = uint32(result.ChunksReplayed)
	resp.OldestAvailableSequence = result.OldestAvailableSequence
	resp.DataLost = result.DataLost
	if err := e.writeFrame(frame.BuildSessionAttached(resp)); err != nil {
		return err
	}

	if result.StateSnapshot != nil {
		if err := e.writeFrame(frame.BuildStateSnapshot(snapshotToWire(req.SessionId, *result.StateSnapshot))); err != nil {
			return err
		}
	}
	for _, d := range result.StateDeltas {
		if err := e.writeFrame(frame.BuildStateDelta(deltaToWire(req.SessionId, d))); err != nil {
			return err
		}
	}

	e.attachSession(req.SessionId, ch)
	return nil
}

// clientIdOrRequest prefers the authenticated clientId negotiated during
// the handshake; a request-supplied id is only used if auth never set one
// (e.g. an Authenticator that permits anonymous connections).
func (e *Endpoint) clientIdOrRequest(requested string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clientId != "" {
		return e.clientId
	}
	e.clientId = requested
	return requested
}

func (e *Endpoint) attachSession(sessionId uint32, ch <-chan service.SessionOutput) {
	a := &attachment{sessionId: sessionId, ch: ch, stop: make(chan struct{})}
	e.mu.Lock()
	e.attachments[sessionId] = a
	e.mu.Unlock()
	go e.writeSessionOutput(a)
}

func (e *Endpoint) writeSessionOutput(a *attachment) {
	for {
		select {
		case <-a.stop:
			return
		case out, ok := <-a.ch:
			if !ok {
				return
			}
			if err := e.svc.AwaitSendCredit(context.Background(), a.sessionId, e.clientId, int64(len(out.Data))); err != nil {
				return
			}
			msg := frame.TerminalOutputData{
				SessionId:       out.SessionId,
				Data:            out.Data,
				SequenceNumber:  out.SequenceNumber,
				Compressed:      out.Compressed,
				CompressionType: frame.CompressionType(out.CompressionType),
				IsReplay:        out.IsReplay,
				TimestampMs:     out.TimestampMs,
			}
			if err := e.writeFrame(frame.BuildTerminalOutput(msg)); err != nil {
				return
			}
		}
	}
}

func (e *Endpoint) handleSessionDetach(f frame.Frame) error {
	req, err := frame.Parse(f, frame.SessionDetach, frame.UnmarshalSessionDetachMsg)
	if err != nil {
		return err
	}
	e.detach(req.SessionId)
	if uerr := e.svc.UnregisterClient(req.SessionId, e.clientId); uerr != nil {
		return uerr
	}
	return e.writeFrame(frame.BuildSessionDetached(frame.SessionDetachedMsg{SessionId: req.SessionId, ClientId: e.clientId}))
}

func (e *Endpoint) detach(sessionId uint32) {
	e.mu.Lock()
	a, ok := e.attachments[sessionId]
	if ok {
		delete(e.attachments, sessionId)
	}
	e.mu.Unlock()
	if ok {
		close(a.stop)
	}
}

func (e *Endpoint) handleSessionClose(f frame.Frame) error {
	req, err := frame.Parse(f, frame.SessionClose, frame.UnmarshalSessionCloseMsg)
	if err != nil {
		return err
	}
	e.detach(req.SessionId)
	e.svc.DestroySession(req.SessionId)
	return e.writeFrame(frame.BuildSessionClosed(frame.SessionClosedMsg{SessionId: req.SessionId}))
}

func (e *Endpoint) handleSessionList(f frame.Frame) error {
	e.mu.Lock()
	ids := make([]uint32, 0, len(e.attachments))
	for id := range e.attachments {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	return e.writeFrame(frame.BuildSessionListResponse(frame.SessionListResponseMsg{SessionIds: ids}))
}

func (e *Endpoint) handleScrollbackRequest(f frame.Frame) error {
	req, err := frame.Parse(f, frame.ScrollbackRequest, frame.UnmarshalScrollbackRequestMsg)
	if err != nil {
		return err
	}
	page, serr := e.svc.GetScrollbackPage(req.SessionId, int(req.StartLine), int(req.LineCount))
	if serr != nil {
		return serr
	}
	return e.writeFrame(frame.BuildScrollbackResponse(frame.ScrollbackResponseMsg{
		SessionId:  req.SessionId,
		StartLine:  uint32(page.StartLine),
		TotalLines: uint32(page.TotalLines),
		Lines:      []byte(page.Lines),
		HasMore:    page.HasMore,
	}))
}

func (e *Endpoint) handleTerminalInput(f frame.Frame) error {
	req, err := frame.Parse(f, frame.TerminalInput, frame.UnmarshalTerminalInputData)
	if err != nil {
		return err
	}
	e.svc.ProcessClientInput(e.clientId, req.SessionId, req.Data)
	return nil
}

func (e *Endpoint) handleResize(f frame.Frame) error {
	req, err := frame.Parse(f, frame.Resize, frame.UnmarshalTerminalResize)
	if err != nil {
		return err
	}
	snap, err := e.svc.GetStateSnapshot(req.SessionId)
	if err != nil {
		return err
	}
	snap.Columns = int(req.Columns)
	snap.Rows = int(req.Rows)
	return e.svc.UpdateTerminalState(req.SessionId, snap, false)
}

func (e *Endpoint) handleSignal(f frame.Frame) error {
	_, err := frame.Parse(f, frame.Signal, frame.UnmarshalSignal)
	return err
}

func (e *Endpoint) handleFlowControl(f frame.Frame) error {
	req, err := frame.Parse(f, frame.FlowControl, frame.UnmarshalFlowControlMessage)
	if err != nil {
		return err
	}
	return e.svc.HandleFlowControl(req.SessionId, e.clientId, req.BytesAcknowledged, req.WindowSize)
}

func (e *Endpoint) handleWindowUpdate(f frame.Frame) error {
	req, err := frame.Parse(f, frame.WindowUpdate, frame.UnmarshalWindowUpdateMsg)
	if err != nil {
		return err
	}
	return e.svc.HandleWindowUpdate(req.SessionId, e.clientId, req.WindowIncrement)
}

func (e *Endpoint) handleClose(f frame.Frame) error {
	_, _ = frame.Parse(f, frame.Close, frame.UnmarshalCloseMsg)
	e.Close()
	return nil
}
