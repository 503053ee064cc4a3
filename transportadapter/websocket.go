// Package transportadapter is an example, non-core bridge between a
// gorilla/websocket connection and the io.ReadWriteCloser the protocol
// package's Endpoint expects. Nothing in frame/service/protocol imports
// this package; it exists to show one way to plug a real transport in,
// grounded on the websocket.Upgrader/Conn.ReadMessage/WriteMessage usage
// pattern in this pack's terminal-over-websocket servers.
package transportadapter

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConn adapts *websocket.Conn to io.ReadWriteCloser. Each Write
// call is sent as one binary WebSocket message; Read reassembles the byte
// stream the codec expects by pulling the next inbound message whenever
// its buffered remainder is exhausted, since the wire framing inside
// frame.Codec doesn't align with WebSocket message boundaries.
type WebSocketConn struct {
	conn *websocket.Conn

	readMu  sync.Mutex
	pending bytes.Buffer

	writeMu sync.Mutex

	// WriteTimeout bounds each outbound WriteMessage call, matching how a
	// production deployment would want a slow client to eventually error
	// out rather than block a writer goroutine forever. Zero disables it.
	WriteTimeout time.Duration
}

// New wraps an already-upgraded *websocket.Conn.
func New(conn *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{conn: conn}
}

func (w *WebSocketConn) Read(p []byte) (int, error) {
	w.readMu.Lock()
	defer w.readMu.Unlock()

	for w.pending.Len() == 0 {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if len(data) == 0 {
			continue
		}
		w.pending.Write(data)
	}
	return w.pending.Read(p)
}

func (w *WebSocketConn) Write(p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.WriteTimeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.WriteTimeout)); err != nil {
			return 0, err
		}
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConn) Close() error {
	_ = w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return w.conn.Close()
}

var _ io.ReadWriteCloser = (*WebSocketConn)(nil)
