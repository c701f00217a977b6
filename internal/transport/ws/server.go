package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"voxxle.ai/internal/protocol"
	"voxxle.ai/internal/sim/game"
	"voxxle.ai/internal/sim/geom"
)

type Options struct {
	// GestureHz limits TRANSLATE and ROTATE per connection; 0 disables the limit.
	GestureHz    float64
	GestureBurst int
	Rounding     string
	OutQueue     int
}

type Server struct {
	game      *game.Game
	validator *protocol.Validator
	log       *zap.Logger
	opts      Options

	upgrader websocket.Upgrader
}

func NewServer(g *game.Game, v *protocol.Validator, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OutQueue <= 0 {
		opts.OutQueue = 16
	}
	if opts.GestureBurst <= 0 {
		opts.GestureBurst = 1
	}
	if opts.Rounding == "" {
		opts.Rounding = geom.RoundHalfAwayFromZero.String()
	}
	return &Server{
		game:      g,
		validator: v,
		log:       logger,
		opts:      opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.opts.GestureHz <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(s.opts.GestureHz), s.opts.GestureBurst)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sessionID := s.handshake(ctx, conn)
		if sessionID == "" {
			return
		}
		log := s.log.With(zap.String("session", sessionID))
		log.Info("player connected", zap.String("remote", r.RemoteAddr))

		out := make(chan []byte, s.opts.OutQueue)
		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		limiter := s.newLimiter()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			res, ok := s.handleFrame(ctx, sessionID, limiter, msg)
			if !ok {
				continue
			}
			if res.Code == protocol.ErrInternal {
				log.Error("act failed", zap.Int64("seq", res.Seq), zap.String("message", res.Message))
			}
			b, _ := json.Marshal(res)
			select {
			case out <- b:
			case <-ctx.Done():
			}
		}
		<-done

		// Cleanup on a fresh context; the request context is gone by now.
		cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer ccancel()
		if _, err := s.game.Do(cctx, game.Request{Session: sessionID, Op: game.OpClose}); err != nil {
			log.Warn("close session", zap.Error(err))
		}
		log.Info("player disconnected")
	}
}

// handleFrame turns one inbound frame into a RESULT. Frames that are not ACTs are ignored.
func (s *Server) handleFrame(ctx context.Context, sessionID string, limiter *rate.Limiter, msg []byte) (protocol.ResultMsg, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeAct {
		return protocol.ResultMsg{}, false
	}
	var act protocol.ActMsg
	_ = json.Unmarshal(msg, &act)

	if act.ProtocolVersion != protocol.Version {
		return errorResult(act.Seq, protocol.ErrProtoBadRequest, "bad protocol_version"), true
	}
	if s.validator != nil {
		if err := s.validator.Validate(protocol.TypeAct, msg); err != nil {
			return errorResult(act.Seq, protocol.ErrProtoBadRequest, err.Error()), true
		}
	}
	if limiter != nil && (act.Op == protocol.OpTranslate || act.Op == protocol.OpRotate) && !limiter.Allow() {
		return errorResult(act.Seq, protocol.ErrRateLimit, "gesture rate exceeded"), true
	}

	req, err := toRequest(sessionID, act)
	if err != nil {
		return errorResult(act.Seq, protocol.ErrBadRequest, err.Error()), true
	}
	resp, err := s.game.Do(ctx, req)
	if err != nil {
		return errorResult(act.Seq, protocol.ErrInternal, err.Error()), true
	}
	return toResult(s.game.Catalog(), act.Seq, resp), true
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return ""
	}
	if s.validator != nil {
		if err := s.validator.Validate(protocol.TypeHello, msg); err != nil {
			closeWith(conn, websocket.ClosePolicyViolation, "invalid HELLO")
			return ""
		}
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return ""
	}
	if !supportsVersion(hello) {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return ""
	}

	resp, err := s.game.Do(ctx, game.Request{Op: game.OpOpen})
	if err != nil {
		closeWith(conn, websocket.CloseInternalServerErr, "server busy")
		return ""
	}
	if !resp.OK {
		closeWith(conn, websocket.CloseTryAgainLater, resp.Code)
		return ""
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       resp.Session,
		CatalogDigest:   s.game.Catalog().Digest,
		Rounding:        s.opts.Rounding,
		Levels:          levelInfos(s.game.Catalog(), resp.Status),
	}
	if err := writeJSON(conn, welcome); err != nil {
		cctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = s.game.Do(cctx, game.Request{Session: resp.Session, Op: game.OpClose})
		return ""
	}
	return resp.Session
}

func supportsVersion(h protocol.HelloMsg) bool {
	if h.ProtocolVersion == protocol.Version {
		return true
	}
	for _, v := range h.SupportedVersions {
		if v == protocol.Version {
			return true
		}
	}
	return false
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
