// Package game hosts puzzle sessions behind a single-writer request loop.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voxxle.ai/internal/protocol"
	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/session"
	"voxxle.ai/internal/sim/transform"
)

type Config struct {
	Session     session.Options
	MaxSessions int
	// AutosaveProgress hands catalog status to the ProgressStore after every solve.
	AutosaveProgress bool
	InboxSize        int
}

type envelope struct {
	req  Request
	resp chan Response
}

// Game owns every session. Only Run (or a caller of Apply while Run is not
// running) may touch them.
type Game struct {
	cfg Config
	cat *catalogs.Catalog
	log *zap.Logger
	now func() time.Time

	inbox     chan envelope
	sessions  map[string]*session.Session
	openCount atomic.Int64

	sinks    []MoveSink
	progress ProgressStore

	// saves is non-nil while Run owns a progress saver.
	saves chan []catalogs.LevelStatus
	seq   uint64
}

func New(log *zap.Logger, cat *catalogs.Catalog, cfg Config) *Game {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}
	return &Game{
		cfg:      cfg,
		cat:      cat,
		log:      log,
		now:      time.Now,
		inbox:    make(chan envelope, cfg.InboxSize),
		sessions: map[string]*session.Session{},
	}
}

func (g *Game) AddSink(s MoveSink)               { g.sinks = append(g.sinks, s) }
func (g *Game) SetProgressStore(p ProgressStore) { g.progress = p }
func (g *Game) Catalog() *catalogs.Catalog       { return g.cat }
func (g *Game) SetClock(now func() time.Time)    { g.now = now }

// SessionCount is safe to call while Run is active.
func (g *Game) SessionCount() int { return int(g.openCount.Load()) }

// ResumeSeq continues numbering after last, so entries from earlier runs keep
// their order. Call before Boot and Run.
func (g *Game) ResumeSeq(last uint64) { g.seq = last }

// Boot records the catalog progress this run starts from. Replay restores it
// when it reaches the entry.
func (g *Game) Boot() {
	g.record(Request{Op: OpBoot}, &Response{OK: true})
}

// Run drains the inbox until ctx is done. Progress saves happen off the loop.
func (g *Game) Run(ctx context.Context) error {
	if g.progress != nil && g.cfg.AutosaveProgress {
		var wg sync.WaitGroup
		q := make(chan []catalogs.LevelStatus, 1)
		g.saves = q
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.saveLoop(ctx, q)
		}()
		defer func() {
			wg.Wait()
			g.saves = nil
		}()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-g.inbox:
			resp := g.Apply(env.req)
			select {
			case env.resp <- resp:
			default:
				// Caller gave up; don't block the loop.
			}
		}
	}
}

// Do submits req to the loop and waits for its response.
func (g *Game) Do(ctx context.Context, req Request) (Response, error) {
	env := envelope{req: req, resp: make(chan Response, 1)}
	select {
	case g.inbox <- env:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case r := <-env.resp:
		return r, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Apply executes req synchronously and fans out the log entry.
func (g *Game) Apply(req Request) Response {
	resp := g.apply(req)
	if resp.Err != nil {
		resp.Code = codeFor(resp.Err)
	} else {
		resp.OK = true
	}
	g.record(req, &resp)
	return resp
}

func (g *Game) apply(req Request) Response {
	switch req.Op {
	case OpOpen:
		return g.open(req.Session)
	case OpClose:
		if _, ok := g.sessions[req.Session]; !ok {
			return Response{Session: req.Session, Err: fmt.Errorf("%w: %q", ErrNoSession, req.Session)}
		}
		delete(g.sessions, req.Session)
		g.openCount.Add(-1)
		g.log.Info("session closed", zap.String("session", req.Session))
		return Response{Session: req.Session}
	}

	s, ok := g.sessions[req.Session]
	if !ok {
		return Response{Session: req.Session, Err: fmt.Errorf("%w: %q", ErrNoSession, req.Session)}
	}
	resp := Response{Session: req.Session}
	var ev session.Evaluation
	var err error
	switch req.Op {
	case OpLoadLevel:
		_, err = s.LoadLevel(req.Level)
	case OpGrab:
		err = s.Grab(req.Piece)
	case OpTranslate:
		err = s.Translate(req.Piece, req.Delta)
	case OpRelease:
		ev, err = s.Release()
		resp.Eval = &ev
	case OpCancel:
		err = s.Cancel()
	case OpRotate:
		if req.Hint == nil {
			err = fmt.Errorf("%w: rotate without hint", ErrBadRequest)
			break
		}
		ev, err = s.Rotate(req.Piece, *req.Hint)
		resp.Eval = &ev
	case OpExit:
		s.Exit()
	case OpStatus:
	default:
		err = fmt.Errorf("%w: unknown op %q", ErrBadRequest, req.Op)
	}
	if err != nil {
		resp.Eval = nil
		resp.Err = err
		return resp
	}
	snap := s.Snapshot()
	resp.Snapshot = &snap
	resp.Won = resp.Eval != nil && resp.Eval.Won
	if req.Op == OpStatus || resp.Won {
		resp.Status = g.cat.Status()
	}
	return resp
}

func (g *Game) open(id string) Response {
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := g.sessions[id]; ok {
		return Response{Session: id, Err: fmt.Errorf("%w: session %q already open", ErrBadRequest, id)}
	}
	if g.cfg.MaxSessions > 0 && len(g.sessions) >= g.cfg.MaxSessions {
		return Response{Session: id, Err: ErrSessionLimit}
	}
	s := session.New(g.cat, g.cfg.Session)
	g.sessions[id] = s
	g.openCount.Add(1)
	g.log.Info("session opened", zap.String("session", id), zap.Int("sessions", len(g.sessions)))
	snap := s.Snapshot()
	return Response{Session: id, Snapshot: &snap, Status: g.cat.Status()}
}

func (g *Game) record(req Request, resp *Response) {
	g.seq++
	now := g.now().UTC()
	req.Session = resp.Session
	e := MoveLogEntry{
		Seq:     g.seq,
		Time:    now,
		Session: resp.Session,
		Op:      req.Op,
		Args:    req,
		OK:      resp.OK,
		Code:    resp.Code,
		Won:     resp.Won,
		Level:   -1,
	}
	if req.Op == OpBoot {
		e.Progress = g.cat.Status()
	}
	if resp.Snapshot != nil {
		e.State = resp.Snapshot.State.String()
		e.Level = resp.Snapshot.Level
	}
	for _, sink := range g.sinks {
		if err := sink.WriteMove(e); err != nil {
			g.log.Warn("move sink failed", zap.Uint64("seq", e.Seq), zap.Error(err))
		}
	}
	if !resp.Won || resp.Snapshot == nil {
		return
	}

	r := SolveRecord{
		Seq:       e.Seq,
		Time:      now,
		Session:   resp.Session,
		Level:     resp.Snapshot.Level,
		LevelName: resp.Snapshot.LevelName,
		Digest:    g.cat.Digest,
	}
	g.log.Info("level solved",
		zap.String("session", r.Session),
		zap.Int("level", r.Level),
		zap.String("name", r.LevelName),
	)
	for _, sink := range g.sinks {
		ss, ok := sink.(SolveSink)
		if !ok {
			continue
		}
		if err := ss.RecordSolve(r); err != nil {
			g.log.Warn("solve sink failed", zap.Uint64("seq", r.Seq), zap.Error(err))
		}
	}
	if g.progress != nil && g.cfg.AutosaveProgress {
		g.queueSave(g.cat.Status())
	}
}

// queueSave keeps only the newest pending status. Without Run it saves inline.
func (g *Game) queueSave(st []catalogs.LevelStatus) {
	if g.saves == nil {
		g.saveProgress(st)
		return
	}
	select {
	case <-g.saves:
	default:
	}
	g.saves <- st
}

func (g *Game) saveLoop(ctx context.Context, q <-chan []catalogs.LevelStatus) {
	for {
		select {
		case st := <-q:
			g.saveProgress(st)
		case <-ctx.Done():
			select {
			case st := <-q:
				g.saveProgress(st)
			default:
			}
			return
		}
	}
}

func (g *Game) saveProgress(st []catalogs.LevelStatus) {
	if err := g.progress.SaveProgress(g.cat.Digest, st); err != nil {
		g.log.Error("save progress", zap.Error(err))
	}
}

func codeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, catalogs.ErrIndexOutOfRange):
		return protocol.ErrIndex
	case errors.Is(err, session.ErrInvalidTransition):
		return protocol.ErrInvalidTransition
	case errors.Is(err, session.ErrLevelLocked):
		return protocol.ErrLevelLocked
	case errors.Is(err, ErrNoSession):
		return protocol.ErrNoSession
	case errors.Is(err, ErrSessionLimit):
		return protocol.ErrSessionLimit
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, session.ErrOutOfBounds),
		errors.Is(err, transform.ErrUnknownGesture),
		errors.Is(err, transform.ErrBadTurn):
		return protocol.ErrBadRequest
	default:
		return protocol.ErrInternal
	}
}
