package service

import (
	"sync"
	"time"

	"github.com/inconshreveable/log15/v3"

	"github.com/tmuxagent/streamcore/compression"
	"github.com/tmuxagent/streamcore/flowcontrol"
	"github.com/tmuxagent/streamcore/ringbuffer"
	"github.com/tmuxagent/streamcore/termstate"
)

// ClientInfo is opaque, transport-supplied metadata about a connected
// client. The core never interprets it.
type ClientInfo struct {
	ClientId    string
	DeviceInfo  map[string]string
	ConnectedAt time.Time
}

// clientState is one session's bookkeeping for one attached client.
type clientState struct {
	info ClientInfo

	window *flowcontrol.Window
	queue  chan SessionOutput
}

// SessionOutput is the single fan-out shape emitted once per output chunk;
// every subscriber applies its own flow control before framing, matching
// the teacher's per-stream write-channel fan-out in internal/muxado/session.go.
type SessionOutput struct {
	SessionId       uint32
	Data            []byte
	SequenceNumber  uint64
	Compressed      bool
	CompressionType compression.Type
	IsReplay        bool
	TimestampMs     uint64
}

// Session is a logical terminal: its ring buffer, compressor, state store
// and client table are exclusively owned here and guarded by a per-session
// lock, so cross-session operations never contend on the same mutex.
type Session struct {
	mu sync.Mutex

	id         uint32
	columns    uint32
	rows       uint32
	createdAt  time.Time
	lastActive time.Time

	ring       *ringbuffer.OutputRingBuffer
	compressor *compression.AdaptiveCompressor
	state      *termstate.Store

	clients map[string]*clientState

	log log15.Logger
}

func newSession(id uint32, columns, rows uint32, cfg *ServiceConfig, log log15.Logger) *Session {
	return &Session{
		id:         id,
		columns:    columns,
		rows:       rows,
		createdAt:  time.Now(),
		lastActive: time.Now(),
		ring:       ringbuffer.New(cfg.ReplayBufferSizeBytes, cfg.ReplayBufferMaxChunks),
		compressor: compression.New(compression.Config{Enabled: true, MinSizeForCompression: 64}),
		state:      termstate.New(cfg.MaxScrollbackLines, cfg.MaxRetainedStateDeltas, log),
		clients:    make(map[string]*clientState),
		log:        log,
	}
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}

func (s *Session) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
