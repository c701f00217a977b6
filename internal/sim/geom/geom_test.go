package geom

import "testing"

func TestNormalizeQuarters(t *testing.T) {
	cases := map[int]int{
		0: 0, 1: 1, 2: 2, 3: 3, -1: 3, -2: 2, -3: 1,
		90: 1, 180: 2, 270: 3, 360: 0, -90: 3, 450: 1,
	}
	for in, want := range cases {
		if got := NormalizeQuarters(in); got != want {
			t.Fatalf("NormalizeQuarters(%d): got %d want %d", in, got, want)
		}
	}
}

func TestQuarterTurn_RightHanded(t *testing.T) {
	x := Vec3i{X: 1}
	y := Vec3i{Y: 1}
	z := Vec3i{Z: 1}
	if got := QuarterTurn(AxisZ, 1).Apply(x); got != y {
		t.Fatalf("Z+90 of x: got %v want %v", got, y)
	}
	if got := QuarterTurn(AxisX, 1).Apply(y); got != z {
		t.Fatalf("X+90 of y: got %v want %v", got, z)
	}
	if got := QuarterTurn(AxisY, 1).Apply(z); got != x {
		t.Fatalf("Y+90 of z: got %v want %v", got, x)
	}
	if got := QuarterTurn(AxisZ, -1).Apply(y); got != x {
		t.Fatalf("Z-90 of y: got %v want %v", got, x)
	}
}

func TestQuarterTurn_FourTurnsIsIdentity(t *testing.T) {
	for _, a := range []Axis{AxisX, AxisY, AxisZ} {
		r := Identity
		for i := 0; i < 4; i++ {
			r = QuarterTurn(a, 1).Mul(r)
		}
		if !r.IsIdentity() {
			t.Fatalf("axis %v: four quarter turns = %v", a, r)
		}
	}
}

func TestQuarterTurn_24Orientations(t *testing.T) {
	seen := map[Rot]bool{Identity: true}
	queue := []Rot{Identity}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		for _, a := range []Axis{AxisX, AxisY, AxisZ} {
			n := QuarterTurn(a, 1).Mul(r)
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	if len(seen) != 24 {
		t.Fatalf("orientations: got %d want 24", len(seen))
	}
	for r := range seen {
		if !r.Mul(r.Inverse()).IsIdentity() {
			t.Fatalf("inverse mismatch for %v", r)
		}
	}
}

func TestRound_Modes(t *testing.T) {
	v := Vec3{X: 1.5, Y: 0.49, Z: -0.5}
	if got, want := Round(v, RoundHalfAwayFromZero), (Vec3i{X: 2, Y: 0, Z: -1}); got != want {
		t.Fatalf("half away: got %v want %v", got, want)
	}
	if got, want := Round(v, RoundHalfEven), (Vec3i{X: 2, Y: 0, Z: 0}); got != want {
		t.Fatalf("half even: got %v want %v", got, want)
	}
	if got, want := Round(Vec3{X: 2.5, Y: -2.5, Z: 0.999999}, RoundHalfEven), (Vec3i{X: 2, Y: -2, Z: 1}); got != want {
		t.Fatalf("half even 2.5: got %v want %v", got, want)
	}
}

func TestParseRoundingMode(t *testing.T) {
	for _, m := range []RoundingMode{RoundHalfAwayFromZero, RoundHalfEven} {
		got, err := ParseRoundingMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseRoundingMode(%q): got %v err %v", m.String(), got, err)
		}
	}
	if _, err := ParseRoundingMode("ceil"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
