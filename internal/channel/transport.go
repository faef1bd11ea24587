package channel

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a single live connection handle. Exactly one transport is
// live at a time; the Service discards the handle on close or error and
// creates a fresh one on the next attempt.
type Transport interface {
	// Send writes one serialized frame to the connection.
	Send(data []byte) error

	// Close gracefully closes the connection. Idempotent.
	Close() error
}

// Callbacks are invoked by the transport. OnClose fires exactly once, with a
// nil error for a clean close.
type Callbacks struct {
	OnMessage func(data []byte)
	OnClose   func(err error)
}

// Dialer establishes a transport. The production dialer speaks WebSocket;
// tests substitute their own.
type Dialer func(ctx context.Context, url string, cb Callbacks) (Transport, error)

// WebSocketDialer returns a Dialer backed by gorilla/websocket.
func WebSocketDialer(writeTimeout time.Duration, logger *slog.Logger) Dialer {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, url string, cb Callbacks) (Transport, error) {
		header := http.Header{}
		header.Set("Accept", "application/json")

		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}

		conn, _, err := dialer.DialContext(ctx, url, header)
		if err != nil {
			return nil, err
		}

		t := &wsTransport{
			conn:         conn,
			cb:           cb,
			writeTimeout: writeTimeout,
			logger:       logger,
			done:         make(chan struct{}),
		}
		go t.readLoop()

		logger.Debug("websocket connected", "url", url)
		return t, nil
	}
}

// wsTransport wraps a gorilla connection with serialized writes and a read
// loop that feeds the callbacks.
type wsTransport struct {
	conn         *websocket.Conn
	cb           Callbacks
	writeTimeout time.Duration
	logger       *slog.Logger

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	closeOnce sync.Once
}

func (t *wsTransport) Send(data []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	t.mu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	close(t.done)

	t.writeMu.Lock()
	t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	t.writeMu.Unlock()

	err := t.conn.Close()
	t.finish(nil)
	return err
}

func (t *wsTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			// Close() already reported a clean close.
			select {
			case <-t.done:
				return
			default:
			}

			t.mu.Lock()
			t.closed = true
			t.mu.Unlock()
			t.conn.Close()

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.finish(nil)
			} else {
				t.finish(err)
			}
			return
		}

		if t.cb.OnMessage != nil {
			t.cb.OnMessage(data)
		}
	}
}

func (t *wsTransport) finish(err error) {
	t.closeOnce.Do(func() {
		if t.cb.OnClose != nil {
			t.cb.OnClose(err)
		}
	})
}
