package protocol

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmuxagent/streamcore/frame"
	"github.com/tmuxagent/streamcore/service"
	"github.com/tmuxagent/streamcore/termstate"
)

// clientSide performs the same three-step handshake a real client would,
// against an Endpoint running on the other end of a net.Pipe.
type clientSide struct {
	conn  net.Conn
	codec frame.Codec
}

func (c *clientSide) negotiate(t *testing.T, minV, maxV uint32) frame.VersionResponseMsg {
	t.Helper()
	require.NoError(t, c.codec.WriteFrame(c.conn, frame.BuildVersionNegotiation(frame.VersionNegotiationMsg{
		ClientVersion: maxV, MinVersion: minV, MaxVersion: maxV,
	})))
	f, err := c.codec.ReadFrame(c.conn)
	require.NoError(t, err)
	resp, err := frame.Parse(f, frame.VersionResponse, frame.UnmarshalVersionResponseMsg)
	require.NoError(t, err)
	return resp
}

func (c *clientSide) exchangeCapabilities(t *testing.T) frame.CapabilityResponseMsg {
	t.Helper()
	require.NoError(t, c.codec.WriteFrame(c.conn, frame.BuildCapabilityExchange(frame.CapabilityExchangeMsg{
		MaxMessageSize: 1 << 20,
	})))
	f, err := c.codec.ReadFrame(c.conn)
	require.NoError(t, err)
	resp, err := frame.Parse(f, frame.CapabilityResponse, frame.UnmarshalCapabilityResponseMsg)
	require.NoError(t, err)
	return resp
}

func (c *clientSide) authenticate(t *testing.T, clientId string, cred []byte) frame.AuthenticationResponseMsg {
	t.Helper()
	require.NoError(t, c.codec.WriteFrame(c.conn, frame.BuildAuthenticationRequest(frame.AuthenticationRequestMsg{
		ClientId: clientId, Credential: cred,
	})))
	f, err := c.codec.ReadFrame(c.conn)
	require.NoError(t, err)
	resp, err := frame.Parse(f, frame.AuthResponse, frame.UnmarshalAuthenticationResponseMsg)
	require.NoError(t, err)
	return resp
}

func newTestServiceAndEndpoint(t *testing.T, cfg Config) (*service.StreamingDataService, *Endpoint, *clientSide) {
	t.Helper()
	svc := service.New(service.ServiceConfig{}, nil)
	svc.Start()

	serverConn, clientConn := net.Pipe()
	ep := NewEndpoint(serverConn, svc, cfg, nil)
	cs := &clientSide{conn: clientConn}
	return svc, ep, cs
}

func TestHandshakeSucceeds(t *testing.T) {
	svc, ep, cs := newTestServiceAndEndpoint(t, Config{MinVersion: 1, MaxVersion: 1})
	defer svc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ep.Run(ctx) }()

	vresp := cs.negotiate(t, 1, 1)
	assert.True(t, vresp.Accepted)
	assert.Equal(t, uint32(1), vresp.SelectedVersion)

	cresp := cs.exchangeCapabilities(t)
	assert.Equal(t, uint32(1<<20), cresp.NegotiatedMaxMessageSize)

	aresp := cs.authenticate(t, "client-a", nil)
	assert.True(t, aresp.Success)

	assert.Eventually(t, func() bool { return ep.State() == StateReady }, time.Second, time.Millisecond)

	ep.Close()
	cs.conn.Close()
	<-done
}

func TestHandshakeRejectsVersionMismatch(t *testing.T) {
	svc, ep, cs := newTestServiceAndEndpoint(t, Config{MinVersion: 2, MaxVersion: 2})
	defer svc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ep.Run(ctx) }()

	vresp := cs.negotiate(t, 1, 1)
	assert.False(t, vresp.Accepted)

	err := <-done
	require.Error(t, err)
	cs.conn.Close()
}

func TestHandshakeRejectsFailedAuth(t *testing.T) {
	svc, ep, cs := newTestServiceAndEndpoint(t, Config{
		MinVersion: 1, MaxVersion: 1,
		Authenticator: AuthenticatorFunc(func(clientId string, cred []byte) (bool, string) {
			return false, "bad credential"
		}),
	})
	defer svc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ep.Run(ctx) }()

	cs.negotiate(t, 1, 1)
	cs.exchangeCapabilities(t)
	aresp := cs.authenticate(t, "client-a", []byte("nope"))
	assert.False(t, aresp.Success)

	err := <-done
	require.Error(t, err)
	cs.conn.Close()
}

func TestSessionCreateAttachAndOutputFlow(t *testing.T) {
	svc, ep, cs := newTestServiceAndEndpoint(t, Config{MinVersion: 1, MaxVersion: 1})
	defer svc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ep.Run(ctx) }()

	cs.negotiate(t, 1, 1)
	cs.exchangeCapabilities(t)
	cs.authenticate(t, "client-a", nil)

	require.NoError(t, cs.codec.WriteFrame(cs.conn, frame.BuildSessionCreate(frame.SessionCreateMsg{
		SessionId: 1, Columns: 80, Rows: 24,
	})))
	f, err := cs.codec.ReadFrame(cs.conn)
	require.NoError(t, err)
	created, err := frame.Parse(f, frame.SessionCreated, frame.UnmarshalSessionCreatedMsg)
	require.NoError(t, err)
	assert.True(t, created.Success)

	_, werr := svc.ProcessTerminalOutput(1, []byte("hello"))
	require.NoError(t, werr)

	require.NoError(t, cs.codec.WriteFrame(cs.conn, frame.BuildSessionAttachRequest(frame.SessionAttachRequestMsg{
		SessionId: 1, ClientId: "client-a",
	})))
	f, err = cs.codec.ReadFrame(cs.conn)
	require.NoError(t, err)
	attached, err := frame.Parse(f, frame.SessionAttached, frame.UnmarshalSessionAttachedMsg)
	require.NoError(t, err)
	assert.True(t, attached.Success)

	_, werr = svc.ProcessTerminalOutput(1, []byte("world"))
	require.NoError(t, werr)

	f, err = cs.codec.ReadFrame(cs.conn)
	require.NoError(t, err)
	out, err := frame.Parse(f, frame.TerminalOutput, frame.UnmarshalTerminalOutputData)
	require.NoError(t, err)
	assert.Equal(t, "world", string(out.Data))

	ep.Close()
	cs.conn.Close()
	<-done
}

func TestSessionAttachSendsRetainedStateDeltas(t *testing.T) {
	svc, ep, cs := newTestServiceAndEndpoint(t, Config{MinVersion: 1, MaxVersion: 1})
	defer svc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ep.Run(ctx) }()

	cs.negotiate(t, 1, 1)
	cs.exchangeCapabilities(t)
	cs.authenticate(t, "client-a", nil)

	require.NoError(t, cs.codec.WriteFrame(cs.conn, frame.BuildSessionCreate(frame.SessionCreateMsg{
		SessionId: 1, Columns: 80, Rows: 24,
	})))
	f, err := cs.codec.ReadFrame(cs.conn)
	require.NoError(t, err)
	_, err = frame.Parse(f, frame.SessionCreated, frame.UnmarshalSessionCreatedMsg)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateTerminalState(1, termstate.Snapshot{Columns: 80, Rows: 24, SequenceNumber: 1}, true))
	require.NoError(t, svc.ApplyStateDelta(1, termstate.StateDelta{
		BaseSequence: 1, NewSequence: 2,
		Updates: []termstate.StateUpdate{{Type: termstate.CursorMove, Row: 2, Col: 3}},
	}))

	require.NoError(t, cs.codec.WriteFrame(cs.conn, frame.BuildSessionAttachRequest(frame.SessionAttachRequestMsg{
		SessionId: 1, ClientId: "client-a",
		LastKnownStateSequence: 1, HasLastKnownStateSequence: true,
	})))
	f, err = cs.codec.ReadFrame(cs.conn)
	require.NoError(t, err)
	attached, err := frame.Parse(f, frame.SessionAttached, frame.UnmarshalSessionAttachedMsg)
	require.NoError(t, err)
	assert.True(t, attached.Success)

	f, err = cs.codec.ReadFrame(cs.conn)
	require.NoError(t, err)
	delta, err := frame.Parse(f, frame.StateDelta, frame.UnmarshalStateDeltaMsg)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), delta.BaseSequenceNumber)
	assert.Equal(t, uint64(2), delta.NewSequenceNumber)
	require.Len(t, delta.Updates, 1)
	assert.Equal(t, uint32(2), delta.Updates[0].Row)

	ep.Close()
	cs.conn.Close()
	<-done
}
