package catalogs

import (
	"voxxle.ai/internal/sim/geom"
	"voxxle.ai/internal/sim/shapes"
)

// Default returns the built-in levels. Only the first one starts unlocked.
func Default() *Catalog {
	c, err := New(DefaultLevels())
	if err != nil {
		panic("catalogs: built-in levels invalid: " + err.Error())
	}
	return c
}

func piece(shape, texture string) PieceDef {
	return PieceDef{Shape: shape, Texture: texture, Points: shapes.MustLookup(shape)}
}

func DefaultLevels() []LevelDef {
	// 3x3x3 cube.
	var cube []geom.Vec3i
	for i := -1; i <= 1; i++ {
		for j := -1; j <= 1; j++ {
			for k := -1; k <= 1; k++ {
				cube = append(cube, geom.Vec3i{X: i, Y: j, Z: k})
			}
		}
	}

	// Two parallel 3x5 walls.
	var walls []geom.Vec3i
	for _, i := range []int{-1, 1} {
		for j := -1; j <= 1; j++ {
			for k := -2; k <= 2; k++ {
				walls = append(walls, geom.Vec3i{X: i, Y: j, Z: k})
			}
		}
	}

	// Flat 4x3 block with a hook on the right.
	var hook []geom.Vec3i
	for i := -2; i <= 1; i++ {
		for j := -1; j <= 1; j++ {
			hook = append(hook, geom.Vec3i{X: i, Y: j})
		}
	}
	hook = append(hook, geom.Vec3i{X: 2, Y: -1}, geom.Vec3i{X: 3, Y: -1}, geom.Vec3i{X: 3, Y: 0})

	return []LevelDef{
		{
			Name:  "Cube",
			Board: cube,
			Pieces: []PieceDef{
				piece(shapes.I, Red),
				piece(shapes.U, Blue),
				piece(shapes.Cross, Purple),
				piece(shapes.O, Orange),
				piece(shapes.FourCorners, Green),
			},
			Unlocked: true,
		},
		{
			Name:  "Walls",
			Board: walls,
			Pieces: []PieceDef{
				piece(shapes.I, Red),
				piece(shapes.U, Blue),
				piece(shapes.L, Yellow),
				piece(shapes.S, Cyan),
				piece(shapes.TwoLine, Pink),
				piece(shapes.F, Orange),
				piece(shapes.P, Green),
			},
		},
		{
			Name:  "Hook",
			Board: hook,
			Pieces: []PieceDef{
				piece(shapes.U, Blue),
				piece(shapes.P, Blue),
				piece(shapes.S, White),
			},
		},
	}
}
