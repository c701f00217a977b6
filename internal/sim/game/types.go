package game

import (
	"errors"
	"time"

	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/geom"
	"voxxle.ai/internal/sim/session"
	"voxxle.ai/internal/sim/transform"
)

type Op string

const (
	OpOpen      Op = "OPEN"
	OpClose     Op = "CLOSE"
	OpLoadLevel Op = "LOAD_LEVEL"
	OpGrab      Op = "GRAB"
	OpTranslate Op = "TRANSLATE"
	OpRelease   Op = "RELEASE"
	OpCancel    Op = "CANCEL"
	OpRotate    Op = "ROTATE"
	OpExit      Op = "EXIT"
	OpStatus    Op = "STATUS"

	// OpBoot marks the start of a run; it is logged, never requested.
	OpBoot Op = "BOOT"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrNoSession    = errors.New("unknown session")
	ErrSessionLimit = errors.New("session limit reached")
)

// Request is one operation on one session. Only the fields the op needs are read.
type Request struct {
	Session string          `json:"session,omitempty"`
	Op      Op              `json:"op"`
	Level   int             `json:"level,omitempty"`
	Piece   string          `json:"piece,omitempty"`
	Delta   geom.Vec3       `json:"delta"`
	Hint    *transform.Hint `json:"hint,omitempty"`
}

type Response struct {
	Session string `json:"session"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Err     error  `json:"-"`

	Eval     *session.Evaluation    `json:"eval,omitempty"`
	Snapshot *session.Snapshot      `json:"snapshot,omitempty"`
	Status   []catalogs.LevelStatus `json:"status,omitempty"`
	Won      bool                   `json:"won"`
}

// MoveLogEntry records one applied request. Entries replay in Seq order.
// Seq keeps growing across runs; each run opens with an OpBoot entry.
type MoveLogEntry struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"ts"`
	Session string    `json:"session"`
	Op      Op        `json:"op"`
	Args    Request   `json:"args"`
	OK      bool      `json:"ok"`
	Code    string    `json:"code,omitempty"`
	Won     bool      `json:"won"`
	State   string    `json:"state"`
	Level   int       `json:"level"`

	// Progress is the catalog status a run booted with. Set on OpBoot only.
	Progress []catalogs.LevelStatus `json:"progress,omitempty"`
}

type SolveRecord struct {
	Seq       uint64    `json:"seq"`
	Time      time.Time `json:"ts"`
	Session   string    `json:"session"`
	Level     int       `json:"level"`
	LevelName string    `json:"level_name"`
	Digest    string    `json:"catalog_digest"`
}

type MoveSink interface {
	WriteMove(e MoveLogEntry) error
}

// SolveSink is optionally implemented by a MoveSink that also records solves.
type SolveSink interface {
	RecordSolve(r SolveRecord) error
}

type ProgressStore interface {
	SaveProgress(digest string, status []catalogs.LevelStatus) error
}
