// Package service implements the orchestrator tying together sessions,
// clients, the input/output fan-in/fan-out, and service-wide statistics.
// Grounded on muxado's session.go (reader/writer goroutines over channels,
// writeFrame dispatch) and stream_map.go (RWMutex-guarded id-indexed maps
// instead of back-pointers), generalized from one multiplexed connection to
// many sessions each with their own client set.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15/v3"
	"golang.org/x/time/rate"

	"github.com/tmuxagent/streamcore/compression"
	"github.com/tmuxagent/streamcore/flowcontrol"
	"github.com/tmuxagent/streamcore/ringbuffer"
	"github.com/tmuxagent/streamcore/stats"
	"github.com/tmuxagent/streamcore/termstate"
)

// ServiceState is the service's coarse lifecycle state.
type ServiceState int32

const (
	Stopped ServiceState = iota
	Running
)

// ClientInput is one input event handed off for the session's input sink.
type ClientInput struct {
	SessionId uint32
	ClientId  string
	Data      []byte
	Sequence  uint64
}

// RegistrationResult reports the outcome of RegisterClient, including any
// replay that was queued ahead of live output.
type RegistrationResult struct {
	Success                 bool
	ChunksReplayed          int
	OldestAvailableSequence uint64
	NewestAvailableSequence uint64
	DataLost                bool
	StateSnapshot           *termstate.Snapshot
	StateDeltas             []termstate.StateDelta
	ErrorCode               ErrorCode
}

// StreamingDataService is the single orchestrator for all sessions. Its
// lifecycle (Start/Stop) is mutually exclusive with session
// creation/destruction, both guarded by the same lock, matching the
// "StreamingDataService lifecycle is mutually exclusive with session
// creation/destruction" serialization rule.
type StreamingDataService struct {
	mu       sync.RWMutex
	state    ServiceState
	sessions map[uint32]*Session

	cfg ServiceConfig
	log log15.Logger

	stats *stats.StreamingStatistics

	inputCh chan ClientInput

	warnLimiter *rate.Limiter

	nextInputSeq uint64
}

// New constructs a StreamingDataService in the Stopped state.
func New(cfg ServiceConfig, log log15.Logger) *StreamingDataService {
	cfg.initDefaults()
	if log == nil {
		log = log15.Root()
	}
	return &StreamingDataService{
		sessions:    make(map[uint32]*Session),
		cfg:         cfg,
		log:         log,
		stats:       &stats.StreamingStatistics{},
		inputCh:     make(chan ClientInput, cfg.InputBufferSize),
		warnLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Start transitions Stopped -> Running. Calling Start on an already-running
// service is idempotent and logs a warning, matching the spec's
// double-start handling.
func (s *StreamingDataService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		s.log.Warn("service already running, ignoring duplicate start")
		return
	}
	s.state = Running
}

// Stop transitions to Stopped and clears all sessions and client maps.
func (s *StreamingDataService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Stopped
	s.sessions = make(map[uint32]*Session)
}

func (s *StreamingDataService) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == Running
}

// CreateSession creates a new session with the given columns/rows, failing
// (false) if the id already exists.
func (s *StreamingDataService) CreateSession(id uint32, columns, rows uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[id]; exists {
		return false
	}
	s.sessions[id] = newSession(id, columns, rows, &s.cfg, s.log)
	s.stats.RecordSessionCreated()
	return true
}

// DestroySession evicts a session and all its clients. This service keeps
// no reconnection state; recording those clients with a
// ReconnectionManager is left to the caller.
func (s *StreamingDataService) DestroySession(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		s.stats.RecordSessionDestroyed()
	}
}

func (s *StreamingDataService) session(id uint32) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, newErr(SessionNotFound, nil)
	}
	return sess, nil
}

// RegisterClient attaches a client to a session, creating its flow-control
// window at the configured default size. If replayFromSequence is supplied,
// matching ring-buffer chunks are queued (marked IsReplay) ahead of live
// output on the returned subscription channel.
func (s *StreamingDataService) RegisterClient(sessionId uint32, info ClientInfo, replayFromSequence *uint64, lastKnownStateSequence *uint64) (RegistrationResult, <-chan SessionOutput, error) {
	sess, err := s.session(sessionId)
	if err != nil {
		return RegistrationResult{Success: false, ErrorCode: SessionNotFound}, nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	cs := &clientState{
		info:   info,
		window: flowcontrol.New(s.cfg.DefaultWindowSize),
		queue:  make(chan SessionOutput, s.cfg.PerClientQueueCapacity),
	}
	sess.clients[info.ClientId] = cs
	s.stats.RecordClientRegistered()

	result := RegistrationResult{Success: true}

	if replayFromSequence != nil {
		chunks := sess.ring.ReadFrom(*replayFromSequence)
		oldest := sess.ring.OldestSequence()
		dataLost := oldest != 0 && *replayFromSequence < oldest
		result.DataLost = dataLost
		result.OldestAvailableSequence = oldest
		result.NewestAvailableSequence = sess.ring.NewestSequence()
		result.ChunksReplayed = len(chunks)
		for _, c := range chunks {
			select {
			case cs.queue <- SessionOutput{
				SessionId:       sessionId,
				Data:            c.Data,
				SequenceNumber:  c.SequenceNumber,
				Compressed:      c.Compressed,
				CompressionType: compression.Type(c.CompressionType),
				IsReplay:        true,
				TimestampMs:     c.TimestampMs,
			}:
			default:
				s.log.Warn("replay queue full, truncating replay", "sessionId", sessionId, "clientId", info.ClientId)
			}
		}
		s.stats.RecordReplay(uint64(len(chunks)), dataLost)
	}

	current := sess.state.GetSnapshot()
	needsResync := lastKnownStateSequence == nil || *lastKnownStateSequence != current.SequenceNumber
	if needsResync && current.SequenceNumber > 0 {
		if lastKnownStateSequence != nil {
			if deltas, ok := sess.state.DeltasSince(*lastKnownStateSequence); ok {
				result.StateDeltas = deltas
			}
		}
		if result.StateDeltas == nil {
			snap := current
			result.StateSnapshot = &snap
		}
	}

	return result, cs.queue, nil
}

// UnregisterClient removes a client from its session's client and
// flow-control maps. ReconnectionManager notification is the caller's
// responsibility.
func (s *StreamingDataService) UnregisterClient(sessionId uint32, clientId string) error {
	sess, err := s.session(sessionId)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if _, ok := sess.clients[clientId]; !ok {
		return newErr(ClientNotRegistered, nil)
	}
	delete(sess.clients, clientId)
	s.stats.RecordClientUnregistered()
	return nil
}

// ProcessTerminalOutput runs the compress -> ringbuffer.write -> broadcast
// pipeline for one chunk of local PTY output, returning its assigned
// sequence number.
func (s *StreamingDataService) ProcessTerminalOutput(sessionId uint32, data []byte) (uint64, error) {
	sess, err := s.session(sessionId)
	if err != nil {
		return 0, err
	}

	start := time.Now()

	sess.mu.Lock()
	result, cerr := sess.compressor.Compress(data)
	if cerr != nil {
		sess.mu.Unlock()
		return 0, newErr(CompressionError, cerr)
	}
	timestampMs := uint64(time.Now().UnixMilli())
	seq := sess.ring.Write(result.Data, result.Compressed, uint8(result.CompressionType), timestampMs)
	sess.touch()
	recipients := make([]*clientState, 0, len(sess.clients))
	for _, cs := range sess.clients {
		recipients = append(recipients, cs)
	}
	sess.mu.Unlock()

	out := SessionOutput{
		SessionId:       sessionId,
		Data:            result.Data,
		SequenceNumber:  seq,
		Compressed:      result.Compressed,
		CompressionType: result.CompressionType,
		IsReplay:        false,
		TimestampMs:     timestampMs,
	}
	for _, cs := range recipients {
		select {
		case cs.queue <- out:
		default:
			s.stats.RecordFlowControlViolation()
			if s.warnLimiter.Allow() {
				s.log.Warn("client output queue full, dropping chunk for this subscriber", "sessionId", sessionId, "clientId", cs.info.ClientId)
			}
		}
	}

	s.stats.RecordChunkProcessed(len(data), len(result.Data))
	elapsedMs := time.Since(start).Milliseconds()
	if elapsedMs > s.cfg.TargetLatencyMs {
		s.log.Warn("processTerminalOutput exceeded target latency", "sessionId", sessionId, "elapsedMs", elapsedMs)
	}
	return seq, nil
}

// ProcessClientInput verifies the client is registered for the session and
// emits the input onto the service-wide input channel. A client that isn't
// registered is a silent drop with a warning, not an error, since input
// races registration/teardown routinely.
func (s *StreamingDataService) ProcessClientInput(clientId string, sessionId uint32, data []byte) {
	sess, err := s.session(sessionId)
	if err != nil {
		s.log.Warn("input for unknown session dropped", "sessionId", sessionId, "clientId", clientId)
		return
	}
	sess.mu.Lock()
	_, ok := sess.clients[clientId]
	sess.touch()
	sess.mu.Unlock()
	if !ok {
		s.log.Warn("input from unregistered client dropped", "sessionId", sessionId, "clientId", clientId)
		return
	}

	s.mu.Lock()
	s.nextInputSeq++
	seq := s.nextInputSeq
	s.mu.Unlock()

	select {
	case s.inputCh <- ClientInput{SessionId: sessionId, ClientId: clientId, Data: data, Sequence: seq}:
	default:
		s.log.Warn("input buffer full, dropping input", "sessionId", sessionId, "clientId", clientId)
	}
}

// InputChannel exposes the service-wide input stream for the surrounding
// agent to pump into each session's PTY.
func (s *StreamingDataService) InputChannel() <-chan ClientInput {
	return s.inputCh
}

func (s *StreamingDataService) UpdateTerminalState(sessionId uint32, snap termstate.Snapshot, initial bool) error {
	sess, err := s.session(sessionId)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.state.UpdateSnapshot(snap, initial)
	return nil
}

func (s *StreamingDataService) ApplyStateDelta(sessionId uint32, delta termstate.StateDelta) error {
	sess, err := s.session(sessionId)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.state.ApplyDelta(delta); err != nil {
		switch err.(type) {
		case *termstate.StateOutOfSync:
			return newErr(StateOutOfSync, err)
		case *termstate.ProtocolError:
			return newErr(ProtocolErr, err)
		default:
			return err
		}
	}
	return nil
}

func (s *StreamingDataService) GetStateSnapshot(sessionId uint32) (termstate.Snapshot, error) {
	sess, err := s.session(sessionId)
	if err != nil {
		return termstate.Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state.GetSnapshot(), nil
}

func (s *StreamingDataService) GetScrollbackPage(sessionId uint32, startLine, lineCount int) (termstate.ScrollbackPage, error) {
	sess, err := s.session(sessionId)
	if err != nil {
		return termstate.ScrollbackPage{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state.GetScrollbackPage(startLine, lineCount), nil
}

func (s *StreamingDataService) HandleFlowControl(sessionId uint32, clientId string, bytesAcknowledged uint64, windowSize uint32) error {
	sess, err := s.session(sessionId)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	cs, ok := sess.clients[clientId]
	sess.mu.Unlock()
	if !ok {
		return newErr(ClientNotRegistered, nil)
	}
	cs.window.OnFlowControlMessage(bytesAcknowledged, windowSize)
	return nil
}

func (s *StreamingDataService) HandleWindowUpdate(sessionId uint32, clientId string, increment uint32) error {
	sess, err := s.session(sessionId)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	cs, ok := sess.clients[clientId]
	sess.mu.Unlock()
	if !ok {
		return newErr(ClientNotRegistered, nil)
	}
	cs.window.OnWindowUpdate(increment)
	return nil
}

func (s *StreamingDataService) UpdateClientNetworkMetrics(sessionId uint32, bytesTransferred int64, durationMs int64) error {
	sess, err := s.session(sessionId)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.compressor.UpdateNetworkMetrics(bytesTransferred, durationMs)
	return nil
}

// AwaitSendCredit blocks the caller (the per-client writer loop) until n
// bytes of flow-control credit are available for clientId, or ctx is done.
func (s *StreamingDataService) AwaitSendCredit(ctx context.Context, sessionId uint32, clientId string, n int64) error {
	sess, err := s.session(sessionId)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	cs, ok := sess.clients[clientId]
	sess.mu.Unlock()
	if !ok {
		return newErr(ClientNotRegistered, nil)
	}
	if aerr := cs.window.AcquireContext(ctx, n); aerr != nil {
		s.stats.RecordFlowControlViolation()
		return newErr(FlowControlViolation, aerr)
	}
	return nil
}

func (s *StreamingDataService) GetReplayData(sessionId uint32, fromSequence uint64) ([]ringbuffer.Chunk, error) {
	sess, err := s.session(sessionId)
	if err != nil {
		return nil, err
	}
	return sess.ring.ReadFrom(fromSequence), nil
}

func (s *StreamingDataService) GetLatestOutput(sessionId uint32, maxBytes int) ([]byte, error) {
	sess, err := s.session(sessionId)
	if err != nil {
		return nil, err
	}
	return sess.ring.GetLatestBytes(maxBytes), nil
}

func (s *StreamingDataService) GetStatistics() stats.Snapshot {
	return s.stats.Snapshot()
}

func (s *StreamingDataService) GetBufferStatistics(sessionId uint32) (ringbuffer.Statistics, error) {
	sess, err := s.session(sessionId)
	if err != nil {
		return ringbuffer.Statistics{}, err
	}
	return sess.ring.Statistics(), nil
}

func (s *StreamingDataService) GetCompressionSettings(sessionId uint32) (compression.Settings, error) {
	sess, err := s.session(sessionId)
	if err != nil {
		return compression.Settings{}, err
	}
	return sess.compressor.GetSettings(), nil
}

func (s *StreamingDataService) GetClientCount(sessionId uint32) (int, error) {
	sess, err := s.session(sessionId)
	if err != nil {
		return 0, err
	}
	return sess.clientCount(), nil
}

func (s *StreamingDataService) GetConnectedClients(sessionId uint32) ([]ClientInfo, error) {
	sess, err := s.session(sessionId)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]ClientInfo, 0, len(sess.clients))
	for _, cs := range sess.clients {
		out = append(out, cs.info)
	}
	return out, nil
}

// Shutdown gives every client's pending output queue up to
// cfg.ShutdownGraceMs to drain, then forces each client's flow-control
// window closed and tears down every session. A client whose queue is
// still non-empty once the grace period elapses failed to flush; those
// failures are aggregated with hashicorp/go-multierror rather than
// aborting the rest of the teardown at the first slow client, the way
// docker-compose's teardown paths collect per-resource failures instead of
// stopping at the first one.
func (s *StreamingDataService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := time.Now().Add(time.Duration(s.cfg.ShutdownGraceMs) * time.Millisecond)

	var result *multierror.Error
	for id, sess := range s.sessions {
		sess.mu.Lock()
		for clientId, cs := range sess.clients {
			for len(cs.queue) > 0 && time.Now().Before(deadline) {
				sess.mu.Unlock()
				time.Sleep(time.Millisecond)
				sess.mu.Lock()
			}
			if n := len(cs.queue); n > 0 {
				result = multierror.Append(result, newErr(ShutdownFlushTimeout,
					fmt.Errorf("session %d client %q: %d chunks unflushed", id, clientId, n)))
			}
			// Not closed: a send racing this shutdown would panic. The
			// writer loop on the other end exits once AwaitSendCredit
			// starts failing and stops reading.
			cs.window.SetError(newErr(ServiceNotRunning, nil))
		}
		sess.mu.Unlock()
		delete(s.sessions, id)
	}
	s.state = Stopped
	return result.ErrorOrNil()
}
