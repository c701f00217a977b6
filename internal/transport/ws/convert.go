package ws

import (
	"fmt"

	"voxxle.ai/internal/protocol"
	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/game"
	"voxxle.ai/internal/sim/geom"
	"voxxle.ai/internal/sim/session"
	"voxxle.ai/internal/sim/transform"
)

func vec(a *[3]float64) geom.Vec3 {
	if a == nil {
		return geom.Vec3{}
	}
	return geom.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

func toRequest(sessionID string, act protocol.ActMsg) (game.Request, error) {
	req := game.Request{Session: sessionID, Op: game.Op(act.Op), Piece: act.Piece}
	switch act.Op {
	case protocol.OpLoadLevel:
		if act.Level == nil {
			return req, fmt.Errorf("LOAD_LEVEL requires level")
		}
		req.Level = *act.Level
	case protocol.OpTranslate:
		if act.Delta == nil {
			return req, fmt.Errorf("TRANSLATE requires delta")
		}
		req.Delta = vec(act.Delta)
	case protocol.OpRotate:
		g, err := transform.ParseGesture(act.Gesture)
		if err != nil {
			return req, err
		}
		h := transform.Hint{Gesture: g, Forward: vec(act.Forward)}
		if g == transform.Explicit {
			axis, err := geom.ParseAxis(act.Axis)
			if err != nil {
				return req, err
			}
			h.Axis = axis
			h.Quarters = act.Quarters
		}
		req.Hint = &h
	}
	return req, nil
}

func errorResult(seq int64, code, msg string) protocol.ResultMsg {
	return protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Seq:             seq,
		Code:            code,
		Message:         msg,
	}
}

func toResult(cat *catalogs.Catalog, seq int64, resp game.Response) protocol.ResultMsg {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Seq:             seq,
		OK:              resp.OK,
		Code:            resp.Code,
		Won:             resp.Won,
	}
	if resp.Err != nil {
		res.Message = resp.Err.Error()
	}
	if resp.Snapshot != nil {
		res.State = boardState(*resp.Snapshot)
	}
	if resp.Status != nil {
		res.Levels = levelInfos(cat, resp.Status)
	}
	return res
}

func boardState(snap session.Snapshot) *protocol.BoardState {
	bs := &protocol.BoardState{
		Phase:   snap.State.String(),
		Level:   snap.Level,
		Grabbed: snap.Grabbed,
	}
	for _, p := range snap.Pieces {
		ps := protocol.PieceState{
			ID:      p.ID,
			Shape:   p.Shape,
			Texture: p.Texture,
			Pos:     [3]float64{p.Pose.Pos.X, p.Pose.Pos.Y, p.Pose.Pos.Z},
			Rot:     [3][3]int(p.Pose.Rot),
			Valid:   p.Valid,
			Live:    p.Live,
		}
		ps.Voxels = make([][3]int, len(p.Voxels))
		for i, v := range p.Voxels {
			ps.Voxels[i] = [3]int{v.X, v.Y, v.Z}
		}
		bs.Pieces = append(bs.Pieces, ps)
	}
	return bs
}

// levelInfos describes every level; status overrides the catalog's current flags when given.
func levelInfos(cat *catalogs.Catalog, status []catalogs.LevelStatus) []protocol.LevelInfo {
	if status == nil {
		status = cat.Status()
	}
	out := make([]protocol.LevelInfo, 0, cat.LevelCount())
	for _, st := range status {
		name, _ := cat.Name(st.Level)
		board, _ := cat.Board(st.Level)
		pieces, _ := cat.Pieces(st.Level)
		out = append(out, protocol.LevelInfo{
			Index:     st.Level,
			Name:      name,
			BoardSize: len(board),
			Pieces:    len(pieces),
			Unlocked:  st.Unlocked,
			Solved:    st.Solved,
		})
	}
	return out
}
