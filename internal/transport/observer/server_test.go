package observer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxxle.ai/internal/sim/game"
)

func subscribe(t *testing.T, url, session string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := conn.WriteJSON(SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: Version, Session: session}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

func waitSubscribers(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers: got %d want %d", s.Subscribers(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_FeedFiltersBySession(t *testing.T) {
	s := NewServer(nil)
	ts := httptest.NewServer(s.WSHandler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	all := subscribe(t, url, "")
	onlyB := subscribe(t, url, "b")
	waitSubscribers(t, s, 2)

	_ = s.WriteMove(game.MoveLogEntry{Seq: 1, Session: "a", Op: game.OpOpen, OK: true})
	_ = s.WriteMove(game.MoveLogEntry{Seq: 2, Session: "b", Op: game.OpOpen, OK: true})
	_ = s.RecordSolve(game.SolveRecord{Seq: 3, Session: "b", Level: 0, LevelName: "Cube"})

	var f Frame
	_ = all.SetReadDeadline(time.Now().Add(5 * time.Second))
	for _, want := range []uint64{1, 2} {
		if err := all.ReadJSON(&f); err != nil {
			t.Fatalf("read: %v", err)
		}
		if f.Type != "MOVE" || f.Move == nil || f.Move.Seq != want {
			t.Fatalf("all feed: %+v", f)
		}
	}

	_ = onlyB.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := onlyB.ReadJSON(&f); err != nil || f.Move == nil || f.Move.Session != "b" {
		t.Fatalf("filtered move: %+v %v", f, err)
	}
	f = Frame{}
	if err := onlyB.ReadJSON(&f); err != nil || f.Type != "SOLVE" || f.Solve.LevelName != "Cube" {
		t.Fatalf("filtered solve: %+v %v", f, err)
	}

	_ = onlyB.Close()
	waitSubscribers(t, s, 1)
}

func TestServer_RejectsBadSubscribe(t *testing.T) {
	s := NewServer(nil)
	ts := httptest.NewServer(s.WSHandler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.WriteJSON(map[string]string{"type": "HELLO"})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close: %v", err)
	}
}

func TestServer_NonLoopbackForbidden(t *testing.T) {
	s := NewServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/admin/v1/observer/ws", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rr := httptest.NewRecorder()
	s.WSHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("code: %d", rr.Code)
	}
	if !isLoopbackRemote("[::1]:80") || isLoopbackRemote("10.0.0.1:80") {
		t.Fatalf("isLoopbackRemote")
	}
}
