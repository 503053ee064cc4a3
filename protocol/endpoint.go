// Package protocol drives one connection's state machine end to end:
// version negotiation, capability exchange, authentication, then steady
// state session/data/heartbeat traffic until close. It is the single place
// that turns internal errors into wire ProtocolError frames and the single
// place that turns wire frames into StreamingDataService calls.
//
// The heartbeat ticker/timeout pair and the interval-reset-on-activity
// pattern are grounded on internal/muxado/heartbeat.go's Heartbeat.check;
// the handshake's strictly-ordered phase gating plays the role the
// teacher's session.go gives to its own connection setup.
package protocol

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/inconshreveable/log15/v3"

	"github.com/tmuxagent/streamcore/frame"
	"github.com/tmuxagent/streamcore/service"
)

// State is the endpoint's position in its handshake/steady-state/teardown
// lifecycle. Transitions only ever move forward except for the
// SessionOps/DataFlow/Heartbeat traffic that all live inside Ready.
type State int

const (
	StateInitial State = iota
	StateVersionNegotiating
	StateCapabilityNegotiating
	StateAuthenticating
	StateReady
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateVersionNegotiating:
		return "VersionNegotiating"
	case StateCapabilityNegotiating:
		return "CapabilityNegotiating"
	case StateAuthenticating:
		return "Authenticating"
	case StateReady:
		return "Ready"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	}
	return "Unknown"
}

// Authenticator validates an AuthenticationRequestMsg. The wire protocol
// only carries opaque credential bytes; what they mean is up to whatever
// the embedding application wires in here.
type Authenticator interface {
	Authenticate(clientId string, credential []byte) (ok bool, reason string)
}

// AuthenticatorFunc adapts a function to an Authenticator.
type AuthenticatorFunc func(clientId string, credential []byte) (bool, string)

func (f AuthenticatorFunc) Authenticate(clientId string, credential []byte) (bool, string) {
	return f(clientId, credential)
}

// Config tunes one Endpoint. Zero-value Config works but with a
// permit-everyone Authenticator, which is only appropriate for local
// testing.
type Config struct {
	MinVersion, MaxVersion uint32
	Features               []string
	CompressionList        []uint32
	MaxMessageSize         uint32
	MaxConcurrentSessions  uint32
	HeartbeatInterval      time.Duration
	HeartbeatTolerance     time.Duration
	Authenticator          Authenticator
}

func (c *Config) initDefaults() {
	if c.MinVersion == 0 {
		c.MinVersion = 1
	}
	if c.MaxVersion == 0 {
		c.MaxVersion = 1
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = frame.DefaultMaxMessageSize
	}
	if c.MaxConcurrentSessions == 0 {
		c.MaxConcurrentSessions = 16
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 10 * time.Second
	}
	if c.HeartbeatTolerance == 0 {
		c.HeartbeatTolerance = 2 * c.HeartbeatInterval
	}
	if c.Authenticator == nil {
		c.Authenticator = AuthenticatorFunc(func(string, []byte) (bool, string) { return true, "" })
	}
}

type attachment struct {
	sessionId uint32
	ch        <-chan service.SessionOutput
	stop      chan struct{}
}

// Endpoint owns one transport connection's entire protocol lifecycle.
type Endpoint struct {
	conn  io.ReadWriteCloser
	codec frame.Codec
	svc   *service.StreamingDataService
	cfg   Config
	log   log15.Logger

	writeMu sync.Mutex

	mu                       sync.Mutex
	state                    State
	clientId                 string
	attachments              map[uint32]*attachment
	negotiatedMaxMessageSize uint32

	closeOnce sync.Once
	closeCh   chan struct{}

	heartbeatSeq      uint64
	lastHeartbeatRTT  time.Duration
	pendingHeartbeats map[uint64]time.Time
	ackSignal         chan struct{}
}

// NewEndpoint wraps conn. svc is the orchestrator that SessionOps and
// DataFlow frames are applied against.
func NewEndpoint(conn io.ReadWriteCloser, svc *service.StreamingDataService, cfg Config, log log15.Logger) *Endpoint {
	cfg.initDefaults()
	if log == nil {
		log = log15.Root()
	}
	return &Endpoint{
		conn:              conn,
		codec:             frame.Codec{MaxMessageSize: cfg.MaxMessageSize},
		svc:               svc,
		cfg:               cfg,
		log:               log,
		state:             StateInitial,
		attachments:       make(map[uint32]*attachment),
		closeCh:           make(chan struct{}),
		pendingHeartbeats: make(map[uint64]time.Time),
		ackSignal:         make(chan struct{}, 1),
	}
}

func (e *Endpoint) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Endpoint) writeFrame(f frame.Frame) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.codec.WriteFrame(e.conn, f)
}

// Run drives the handshake to completion and then services frames until
// the transport closes, ctx is cancelled, or a fatal protocol error
// occurs. It always returns a non-nil error; a clean shutdown returns
// ErrTransportClosed's wrapped io.EOF.
func (e *Endpoint) Run(ctx context.Context) error {
	defer e.Close()

	if err := e.negotiateVersion(); err != nil {
		return err
	}
	if err := e.exchangeCapabilities(); err != nil {
		return err
	}
	if err := e.authenticate(); err != nil {
		return err
	}

	e.setState(StateReady)

	hbCtx, cancelHB := context.WithCancel(ctx)
	defer cancelHB()
	go e.heartbeatLoop(hbCtx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.closeCh:
			return Error[TransportClosedContext]{Inner: io.EOF}
		default:
		}

		f, err := e.codec.ReadFrame(e.conn)
		if err != nil {
			if err == io.EOF {
				return Error[TransportClosedContext]{Inner: io.EOF}
			}
			return err
		}
		if err := e.dispatch(f); err != nil {
			e.sendProtocolError(f.SessionId, wireErrorCode(err), err.Error(), false)
		}
	}
}

func (e *Endpoint) negotiateVersion() error {
	e.setState(StateVersionNegotiating)
	f, err := e.codec.ReadFrame(e.conn)
	if err != nil {
		return err
	}
	req, err := frame.Parse(f, frame.VersionNegotiation, frame.UnmarshalVersionNegotiationMsg)
	if err != nil {
		return err
	}

	selected := req.MaxVersion
	if selected > e.cfg.MaxVersion {
		selected = e.cfg.MaxVersion
	}
	accepted := selected >= e.cfg.MinVersion && selected >= req.MinVersion && selected <= req.MaxVersion

	resp := frame.VersionResponseMsg{SelectedVersion: selected, Accepted: accepted}
	if !accepted {
		resp.RejectionReason = "no overlapping protocol version"
	}
	if err := e.writeFrame(frame.BuildVersionResponse(resp)); err != nil {
		return err
	}
	if !accepted {
		return Error[VersionMismatchContext]{Context: VersionMismatchContext{
			ClientMin: req.MinVersion, ClientMax: req.MaxVersion,
			ServerMin: e.cfg.MinVersion, ServerMax: e.cfg.MaxVersion,
		}}
	}
	return nil
}

func (e *Endpoint) exchangeCapabilities() error {
	e.setState(StateCapabilityNegotiating)
	f, err := e.codec.ReadFrame(e.conn)
	if err != nil {
		return err
	}
	req, err := frame.Parse(f, frame.CapabilityExchange, frame.UnmarshalCapabilityExchangeMsg)
	if err != nil {
		return err
	}

	negotiatedMax := e.cfg.MaxMessageSize
	if req.MaxMessageSize != 0 && req.MaxMessageSize < negotiatedMax {
		negotiatedMax = req.MaxMessageSize
	}
	e.mu.Lock()
	e.negotiatedMaxMessageSize = negotiatedMax
	e.mu.Unlock()
	e.codec.MaxMessageSize = negotiatedMax

	resp := frame.CapabilityResponseMsg{
		CompressionList:          intersectUint32(e.cfg.CompressionList, req.CompressionList),
		Features:                 intersectString(e.cfg.Features, req.Features),
		NegotiatedMaxMessageSize: negotiatedMax,
		HeartbeatIntervalMs:      uint32(e.cfg.HeartbeatInterval.Milliseconds()),
	}
	return e.writeFrame(frame.BuildCapabilityResponse(resp))
}

func (e *Endpoint) authenticate() error {
	e.setState(StateAuthenticating)
	f, err := e.codec.ReadFrame(e.conn)
	if err != nil {
		return err
	}
	req, err := frame.Parse(f, frame.Authentication, frame.UnmarshalAuthenticationRequestMsg)
	if err != nil {
		return err
	}

	ok, reason := e.cfg.Authenticator.Authenticate(req.ClientId, req.Credential)
	resp := frame.AuthenticationResponseMsg{Success: ok, Message: reason}
	if err := e.writeFrame(frame.BuildAuthenticationResponse(resp)); err != nil {
		return err
	}
	if !ok {
		return Error[AuthRejectedContext]{Context: AuthRejectedContext{ClientId: req.ClientId}}
	}
	e.mu.Lock()
	e.clientId = req.ClientId
	e.mu.Unlock()
	return nil
}

func intersectUint32(a, b []uint32) []uint32 {
	set := make(map[uint32]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	var out []uint32
	for _, v := range b {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

func intersectString(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	var out []string
	for _, v := range b {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

func (e *Endpoint) dispatch(f frame.Frame) error {
	if err := frame.RequireKnownType(f); err != nil {
		return err
	}
	switch f.FrameType {
	case frame.SessionCreate:
		return e.handleSessionCreate(f)
	case frame.SessionAttach:
		return e.handleSessionAttach(f)
	case frame.SessionDetach:
		return e.handleSessionDetach(f)
	case frame.SessionClose:
		return e.handleSessionClose(f)
	case frame.SessionList:
		return e.handleSessionList(f)
	case frame.ScrollbackRequest:
		return e.handleScrollbackRequest(f)
	case frame.TerminalInput:
		return e.handleTerminalInput(f)
	case frame.Resize:
		return e.handleResize(f)
	case frame.Signal:
		return e.handleSignal(f)
	case frame.FlowControl:
		return e.handleFlowControl(f)
	case frame.WindowUpdate:
		return e.handleWindowUpdate(f)
	case frame.HeartbeatAck:
		return e.handleHeartbeatAck(f)
	case frame.Close:
		return e.handleClose(f)
	default:
		return Error[UnexpectedFrameContext]{Context: UnexpectedFrameContext{State: e.State().String(), Type: f.FrameType.String()}}
	}
}

// wireErrorCode unwraps err looking for the package-local ErrorCode it
// carries (frame or service); anything else reports as an unknown code
// rather than guessing.
func wireErrorCode(err error) uint32 {
	var ferr *frame.Error
	if errors.As(err, &ferr) {
		return uint32(ferr.Code)
	}
	var serr *service.Error
	if errors.As(err, &serr) {
		return uint32(serr.Code) | 0x1000
	}
	return 0xFFFFFFFF
}

func (e *Endpoint) sendProtocolError(sessionId uint32, code uint32, message string, fatal bool) {
	_ = e.writeFrame(frame.BuildProtocolError(frame.ProtocolErrorMsg{
		SessionId: sessionId,
		ErrorCode: code,
		Message:   message,
		Fatal:     fatal,
	}))
	if fatal {
		e.Close()
	}
}

// Close tears the endpoint down exactly once: every attached session's
// writer goroutine is stopped before the transport itself closes.
func (e *Endpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.setState(StateClosing)
		e.mu.Lock()
		for id, a := range e.attachments {
			close(a.stop)
			if e.clientId != "" {
				_ = e.svc.UnregisterClient(id, e.clientId)
			}
		}
		e.attachments = make(map[uint32]*attachment)
		e.mu.Unlock()
		close(e.closeCh)
		err = e.conn.Close()
		e.setState(StateClosed)
	})
	return err
}
