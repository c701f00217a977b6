package geom

import "fmt"

// Axis names one of the three principal axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis accepts "x", "y" or "z" in any case.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x", "X":
		return AxisX, nil
	case "y", "Y":
		return AxisY, nil
	case "z", "Z":
		return AxisZ, nil
	default:
		return AxisX, fmt.Errorf("unknown axis %q", s)
	}
}

// NormalizeQuarters converts a rotation amount into a quarter-turn count in [0,3].
//
// Either quarter turns (-3..3) or degrees (multiples of 90) are accepted.
func NormalizeQuarters(r int) int {
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return r
}

// Rot is a proper rotation of the cube lattice stored as an integer matrix.
// Only products of quarter turns are ever constructed, so entries stay in {-1,0,1}.
type Rot [3][3]int

// Identity is the zero rotation.
var Identity = Rot{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// quarter turns of +90 degrees about each axis (right handed)
var quarter = [3]Rot{
	AxisX: {{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	AxisY: {{0, 0, 1}, {0, 1, 0}, {-1, 0, 0}},
	AxisZ: {{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
}

// QuarterTurn returns the rotation of quarters*90 degrees about axis.
func QuarterTurn(axis Axis, quarters int) Rot {
	if axis < AxisX || axis > AxisZ {
		return Identity
	}
	r := Identity
	for i := NormalizeQuarters(quarters); i > 0; i-- {
		r = quarter[axis].Mul(r)
	}
	return r
}

// Mul returns r*o, i.e. o applied first.
func (r Rot) Mul(o Rot) Rot {
	var out Rot
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[i][0]*o[0][j] + r[i][1]*o[1][j] + r[i][2]*o[2][j]
		}
	}
	return out
}

func (r Rot) Apply(v Vec3i) Vec3i {
	return Vec3i{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

func (r Rot) ApplyF(v Vec3) Vec3 {
	return Vec3{
		X: float64(r[0][0])*v.X + float64(r[0][1])*v.Y + float64(r[0][2])*v.Z,
		Y: float64(r[1][0])*v.X + float64(r[1][1])*v.Y + float64(r[1][2])*v.Z,
		Z: float64(r[2][0])*v.X + float64(r[2][1])*v.Y + float64(r[2][2])*v.Z,
	}
}

// Inverse of a rotation matrix is its transpose.
func (r Rot) Inverse() Rot {
	var out Rot
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[j][i]
		}
	}
	return out
}

func (r Rot) Equal(o Rot) bool { return r == o }

func (r Rot) IsIdentity() bool { return r == Identity }
