package protocol

import (
	"context"
	"time"

	"github.com/tmuxagent/streamcore/frame"
)

// heartbeatLoop sends a Heartbeat frame on cfg.HeartbeatInterval and fails
// the endpoint if no HeartbeatAck (for any sequence) has arrived within
// HeartbeatInterval+HeartbeatTolerance of the last one, the same
// reset-on-activity timer discipline as muxado's Heartbeat.check.
func (e *Endpoint) heartbeatLoop(ctx context.Context) {
	timer := time.NewTimer(e.cfg.HeartbeatInterval + e.cfg.HeartbeatTolerance)
	defer timer.Stop()
	ticker := time.NewTicker(e.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sendHeartbeat()
		case <-e.ackSignal:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(e.cfg.HeartbeatInterval + e.cfg.HeartbeatTolerance)
		case <-timer.C:
			e.mu.Lock()
			seq := e.heartbeatSeq
			e.mu.Unlock()
			e.sendProtocolError(0, 0xFE, Error[HeartbeatTimeoutContext]{Context: HeartbeatTimeoutContext{SequenceNumber: seq}}.Error(), true)
			return
		}
	}
}

func (e *Endpoint) sendHeartbeat() {
	e.mu.Lock()
	e.heartbeatSeq++
	seq := e.heartbeatSeq
	e.pendingHeartbeats[seq] = time.Now()
	e.mu.Unlock()

	_ = e.writeFrame(frame.BuildHeartbeat(frame.HeartbeatMsg{
		SequenceNumber: seq,
		TimestampMs:    uint64(time.Now().UnixMilli()),
	}))
}

func (e *Endpoint) handleHeartbeatAck(f frame.Frame) error {
	ack, err := frame.Parse(f, frame.HeartbeatAck, frame.UnmarshalHeartbeatAckMsg)
	if err != nil {
		return err
	}
	e.mu.Lock()
	sentAt, ok := e.pendingHeartbeats[ack.SequenceNumber]
	if ok {
		delete(e.pendingHeartbeats, ack.SequenceNumber)
		e.lastHeartbeatRTT = time.Since(sentAt)
	}
	e.mu.Unlock()

	select {
	case e.ackSignal <- struct{}{}:
	default:
	}
	return nil
}
