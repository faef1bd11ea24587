package channel

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebSocketDialer_SendAndReceive(t *testing.T) {
	received := make(chan []byte, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- data

		// Echo a frame back, then hold the connection open.
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong","timestamp":1}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	inbound := make(chan []byte, 1)
	dial := WebSocketDialer(5*time.Second, discardLogger())
	transport, err := dial(context.Background(), wsURL(server), Callbacks{
		OnMessage: func(data []byte) { inbound <- data },
		OnClose:   func(error) {},
	})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer transport.Close()

	if err := transport.Send([]byte(`{"type":"ping","timestamp":1}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case data := <-received:
		if string(data) != `{"type":"ping","timestamp":1}` {
			t.Errorf("server received %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive the frame")
	}

	select {
	case data := <-inbound:
		if string(data) != `{"type":"pong","timestamp":1}` {
			t.Errorf("OnMessage received %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnMessage was not invoked")
	}
}

func TestWebSocketDialer_DialFailure(t *testing.T) {
	dial := WebSocketDialer(time.Second, discardLogger())
	_, err := dial(context.Background(), "ws://127.0.0.1:1/unreachable", Callbacks{})
	if err == nil {
		t.Fatal("expected dial error for unreachable server")
	}
}

func TestWebSocketTransport_ServerCloseInvokesOnClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
	})
	defer server.Close()

	closed := make(chan error, 1)
	dial := WebSocketDialer(time.Second, discardLogger())
	transport, err := dial(context.Background(), wsURL(server), Callbacks{
		OnClose: func(err error) { closed <- err },
	})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer transport.Close()

	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("OnClose error = %v, want nil for normal closure", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose was not invoked")
	}
}

func TestWebSocketTransport_CloseIsIdempotent(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	var mu sync.Mutex
	var closeCalls int
	dial := WebSocketDialer(time.Second, discardLogger())
	transport, err := dial(context.Background(), wsURL(server), Callbacks{
		OnClose: func(error) {
			mu.Lock()
			closeCalls++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	transport.Close()
	transport.Close()

	if err := transport.Send([]byte("x")); err != ErrTransportClosed {
		t.Errorf("Send after Close = %v, want ErrTransportClosed", err)
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	got := closeCalls
	mu.Unlock()
	if got != 1 {
		t.Errorf("OnClose fired %d times, want exactly 1", got)
	}
}
