/*Package dither generates the pointing offsets used to move the telescope a
little between flat frames, so that irregularities in the light source
average out.

Points lie on concentric rings around a fixed center.  The first frame of a
set is always taken at the center.  Each following frame advances around the
current ring by 2π/steps; when a ring is complete the radius grows by one
step and the number of steps doubles, which keeps the spacing between points
roughly constant.  Once the radius would pass the maximum the generator
starts over on the innermost ring, so the excursion is bounded no matter how
many frames are taken.
*/
package dither

import (
	"errors"
	"math"

	"github.com/nasa-jpl/autoflat/mathx"
)

// DefaultSteps is the number of points on the innermost ring
const DefaultSteps = 8

var (
	// ErrBadRadius is generated when a step or maximum radius is not positive
	ErrBadRadius = errors.New("dither radii must be positive")

	// ErrBadSteps is generated when the innermost ring has fewer than one point
	ErrBadSteps = errors.New("dither ring must have at least one step")
)

// Point is an absolute pointing in degrees
type Point struct {
	Alt float64
	Az  float64
}

// Generator produces successive dither points.  It is not concurrent safe;
// one session owns it.
type Generator struct {
	center  Point
	stepRad float64
	maxRad  float64
	steps0  int

	radius float64
	angle  float64
	steps  int
	count  int
}

// New returns a Generator centered on c, growing by stepRad radians per ring
// up to maxRad, with DefaultSteps points on the innermost ring
func New(c Point, stepRad, maxRad float64) (*Generator, error) {
	return NewWithSteps(c, stepRad, maxRad, DefaultSteps)
}

// NewWithSteps is New with an explicit number of points on the innermost ring
func NewWithSteps(c Point, stepRad, maxRad float64, steps int) (*Generator, error) {
	if stepRad <= 0 || maxRad <= 0 {
		return nil, ErrBadRadius
	}
	if steps < 1 {
		return nil, ErrBadSteps
	}
	g := &Generator{center: c, stepRad: stepRad, maxRad: maxRad, steps0: steps}
	g.Reset()
	return g, nil
}

// Center returns the fixed center of the pattern
func (g *Generator) Center() Point {
	return g.center
}

// Radius returns the radius, in radians, the next off-center point will use.
// It is zero only before the first call to Next after construction or Reset.
func (g *Generator) Radius() float64 {
	return g.radius
}

// Steps returns the number of points on the current ring
func (g *Generator) Steps() int {
	return g.steps
}

// Reset re-arms the generator so that the next call to Next returns the
// center without a move
func (g *Generator) Reset() {
	g.radius = 0
	g.angle = 0
	g.steps = g.steps0
	g.count = 0
}

// Next returns the point for the next frame and whether the telescope must
// move to reach it.  The first call after New or Reset returns the center
// and false.
func (g *Generator) Next() (Point, bool) {
	g.count++
	if g.count == 1 {
		g.radius = g.stepRad
		return g.center, false
	}

	dAlt := math.Cos(g.angle) * g.radius
	dAz := math.Sin(g.angle) * g.radius
	p := Point{
		Alt: g.center.Alt + mathx.Deg(dAlt),
		Az:  g.center.Az + mathx.Deg(dAz),
	}

	g.angle += 2 * math.Pi / float64(g.steps)
	// tolerance so accumulated rounding does not add a duplicate point at 2π
	if g.angle >= 2*math.Pi-1e-9 {
		g.angle = 0
		g.steps *= 2
		g.radius += g.stepRad
		if g.radius > g.maxRad {
			g.radius = g.stepRad
			g.steps = g.steps0
		}
	}
	return p, true
}
