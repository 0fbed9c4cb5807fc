package dither

import (
	"math"
	"testing"

	"github.com/nasa-jpl/autoflat/mathx"
)

const eps = 1e-9

func mustNew(t *testing.T, steps int, step, max float64) *Generator {
	t.Helper()
	g, err := NewWithSteps(Point{Alt: 45, Az: 180}, step, max, steps)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestFirstCallIsCenter(t *testing.T) {
	g := mustNew(t, 8, 0.001, 0.01)
	p, move := g.Next()
	if move {
		t.Error("first call asked for a move")
	}
	if p != g.Center() {
		t.Errorf("expected center %v got %v", g.Center(), p)
	}
}

func TestResetReturnsToCenter(t *testing.T) {
	g := mustNew(t, 8, 0.001, 0.01)
	for i := 0; i < 5; i++ {
		g.Next()
	}
	g.Reset()
	if g.Radius() != 0 {
		t.Errorf("expected zero radius after reset, got %g", g.Radius())
	}
	if _, move := g.Next(); move {
		t.Error("first call after Reset asked for a move")
	}
}

func TestFourStepRingThenDoubling(t *testing.T) {
	r := 0.001
	g := mustNew(t, 4, r, 1)
	g.Next() // center
	wantAngles := []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}
	for i, a := range wantAngles {
		p, move := g.Next()
		if !move {
			t.Fatalf("call %d did not move", i+2)
		}
		dAlt := mathx.Rad(p.Alt - 45)
		dAz := mathx.Rad(p.Az - 180)
		if math.Abs(dAlt-math.Cos(a)*r) > eps || math.Abs(dAz-math.Sin(a)*r) > eps {
			t.Errorf("call %d: expected offset at angle %g radius %g, got (%g, %g)", i+2, a, r, dAlt, dAz)
		}
		if math.Abs(math.Hypot(dAlt, dAz)-r) > eps {
			t.Errorf("call %d: point is not on the first ring", i+2)
		}
	}
	if g.Steps() != 8 {
		t.Errorf("expected 8 steps after the first ring, got %d", g.Steps())
	}
	if math.Abs(g.Radius()-2*r) > eps {
		t.Errorf("expected radius %g after the first ring, got %g", 2*r, g.Radius())
	}
}

func TestRadiusBoundedAndRestartsInnermost(t *testing.T) {
	r := 0.001
	max := 0.0035
	g := mustNew(t, DefaultSteps, r, max)
	g.Next()
	sawRestart := false
	prev := 0.
	for i := 0; i < 500; i++ {
		p, move := g.Next()
		if !move {
			t.Fatalf("call %d did not move", i+2)
		}
		rad := math.Hypot(mathx.Rad(p.Alt-45), mathx.Rad(p.Az-180))
		if rad > max+r+eps {
			t.Fatalf("radius %g exceeded max %g by more than one step", rad, max)
		}
		if rad < prev-eps {
			sawRestart = true
			if math.Abs(rad-r) > eps {
				t.Errorf("expected restart on innermost ring radius %g, got %g", r, rad)
			}
		}
		prev = rad
	}
	if !sawRestart {
		t.Error("generator never restarted at the innermost ring")
	}
}

func TestInnermostRingRestoresSteps(t *testing.T) {
	r := 0.001
	g := mustNew(t, 2, r, 1.5*r)
	g.Next()
	// ring 1: 2 points, then radius 2r > max so back to r with 2 steps
	g.Next()
	g.Next()
	if g.Steps() != 2 || math.Abs(g.Radius()-r) > eps {
		t.Errorf("expected 2 steps at radius %g, got %d at %g", r, g.Steps(), g.Radius())
	}
}

func TestNewRejectsBadArgs(t *testing.T) {
	if _, err := New(Point{}, 0, 1); err != ErrBadRadius {
		t.Errorf("expected ErrBadRadius, got %v", err)
	}
	if _, err := NewWithSteps(Point{}, 1, 1, 0); err != ErrBadSteps {
		t.Errorf("expected ErrBadSteps, got %v", err)
	}
}
