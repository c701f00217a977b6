package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxxle.ai/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "player name")
		level = flag.Int("level", 0, "level to play")
		steps = flag.Int("steps", 200, "gestures to send before giving up")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
		pace  = flag.Duration("pace", 50*time.Millisecond, "delay between gestures")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := dial(*url, *name)
	if err != nil {
		logger.Fatal("connect", zap.Error(err))
	}
	defer c.conn.Close()
	logger.Info("WELCOME", zap.String("session", c.welcome.SessionID), zap.Int("levels", len(c.welcome.Levels)))

	st, err := play(ctx, c, logger, rand.New(rand.NewSource(*seed)), *level, *steps, *pace)
	if err != nil {
		logger.Fatal("play", zap.Error(err))
	}
	logger.Info("done", zap.Int("sent", st.Sent), zap.Int("rejected", st.Rejected), zap.Bool("won", st.Won))
}

type client struct {
	conn    *websocket.Conn
	welcome protocol.WelcomeMsg
	seq     int64
}

func dial(url, name string) (*client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerName: name}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}
	c := &client{conn: conn}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.ReadJSON(&c.welcome); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read WELCOME: %w", err)
	}
	return c, nil
}

// act stamps a and waits for its RESULT.
func (c *client) act(a protocol.ActMsg) (protocol.ResultMsg, error) {
	c.seq++
	a.Type = protocol.TypeAct
	a.ProtocolVersion = protocol.Version
	a.Seq = c.seq
	if err := c.conn.WriteJSON(a); err != nil {
		return protocol.ResultMsg{}, err
	}
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return protocol.ResultMsg{}, err
		}
		var res protocol.ResultMsg
		if err := json.Unmarshal(msg, &res); err != nil || res.Type != protocol.TypeResult {
			continue
		}
		if res.Seq == a.Seq {
			return res, nil
		}
	}
}

type stats struct {
	Sent     int
	Rejected int
	Won      bool
}

var gestures = []string{"SWIPE_UP", "SWIPE_DOWN", "SWIPE_LEFT", "SWIPE_RIGHT", "DOUBLE_TAP"}

// play loads level and fiddles with random pieces until it wins or runs out of steps.
func play(ctx context.Context, c *client, logger *zap.Logger, rng *rand.Rand, level, steps int, pace time.Duration) (stats, error) {
	var st stats
	res, err := c.act(protocol.ActMsg{Op: protocol.OpLoadLevel, Level: &level})
	if err != nil {
		return st, err
	}
	if !res.OK || res.State == nil {
		return st, fmt.Errorf("LOAD_LEVEL %d: %s %s", level, res.Code, res.Message)
	}
	var ids []string
	for _, p := range res.State.Pieces {
		ids = append(ids, p.ID)
	}

	for i := 0; i < steps && !st.Won; i++ {
		select {
		case <-ctx.Done():
			return st, nil
		case <-time.After(pace):
		}
		piece := ids[rng.Intn(len(ids))]
		var batch []protocol.ActMsg
		if rng.Intn(3) == 0 {
			fwd := [3]float64{rng.Float64()*2 - 1, 0, rng.Float64()*2 - 1}
			batch = append(batch, protocol.ActMsg{Op: protocol.OpRotate, Piece: piece, Gesture: gestures[rng.Intn(len(gestures))], Forward: &fwd})
		} else {
			d := [3]float64{float64(rng.Intn(5) - 2), float64(rng.Intn(5) - 2), float64(rng.Intn(3) - 1)}
			batch = append(batch,
				protocol.ActMsg{Op: protocol.OpGrab, Piece: piece},
				protocol.ActMsg{Op: protocol.OpTranslate, Piece: piece, Delta: &d},
				protocol.ActMsg{Op: protocol.OpRelease},
			)
		}
		for _, a := range batch {
			res, err := c.act(a)
			if err != nil {
				return st, err
			}
			st.Sent++
			if !res.OK {
				st.Rejected++
				logger.Debug("rejected", zap.String("op", a.Op), zap.String("code", res.Code))
				if res.Code == protocol.ErrProtoBadRequest {
					return st, fmt.Errorf("server rejected %s: %s", a.Op, res.Message)
				}
				continue
			}
			if res.Won {
				st.Won = true
				logger.Info("solved", zap.Int("level", level), zap.Int("sent", st.Sent))
				break
			}
		}
	}
	return st, nil
}
