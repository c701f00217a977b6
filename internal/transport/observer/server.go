// Package observer streams the live move log to loopback websocket clients.
package observer

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxxle.ai/internal/sim/game"
)

const Version = "1.0"

// SubscribeMsg opens a feed. An empty Session follows every session.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Session         string `json:"session,omitempty"`
}

// Frame is one feed message: a MOVE carries Move, a SOLVE carries Solve.
type Frame struct {
	Type  string             `json:"type"`
	Move  *game.MoveLogEntry `json:"move,omitempty"`
	Solve *game.SolveRecord  `json:"solve,omitempty"`
}

type subscriber struct {
	session string
	out     chan []byte
}

// Server implements game.MoveSink and game.SolveSink. Slow subscribers lose frames.
type Server struct {
	log *zap.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu   sync.Mutex
	subs map[string]*subscriber
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		log:  logger,
		subs: map[string]*subscriber{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) WriteMove(e game.MoveLogEntry) error {
	return s.publish(e.Session, Frame{Type: "MOVE", Move: &e})
}

func (s *Server) RecordSolve(r game.SolveRecord) error {
	return s.publish(r.Session, Frame{Type: "SOLVE", Solve: &r})
}

func (s *Server) publish(session string, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	for _, sub := range s.subs {
		if sub.session != "" && sub.session != session {
			continue
		}
		select {
		case sub.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		id := fmt.Sprintf("O%d", s.nextID.Add(1))
		me := &subscriber{session: strings.TrimSpace(sub.Session), out: make(chan []byte, 1024)}
		s.mu.Lock()
		s.subs[id] = me
		s.mu.Unlock()
		s.log.Info("observer joined", zap.String("observer", id), zap.String("filter", me.session))
		defer func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			s.log.Info("observer left", zap.String("observer", id))
		}()

		// Reader goroutine: the feed is one-way, reads only detect close.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				_ = conn.SetReadDeadline(time.Time{})
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case b := <-me.out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
