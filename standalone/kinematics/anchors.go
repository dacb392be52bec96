package kinematics

import (
	"fmt"

	"github.com/golang/geo/r2"
	"go.uber.org/atomic"
)

// NumAnchors is the number of fixed anchor points
const NumAnchors = 3

// Axis selects one coordinate of an anchor point
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisY {
		return "y"
	}
	return "x"
}

type anchor struct {
	x atomic.Float64
	y atomic.Float64
}

// AnchorConfig holds the anchor coordinates as independently tunable scalars.
// Each coordinate is read and written atomically; there is no multi-field
// consistency between coordinates. The zero value has every anchor at (0,0).
type AnchorConfig struct {
	anchors [NumAnchors]anchor
}

// NewAnchorConfig creates a configuration with the given anchor positions
func NewAnchorConfig(m1, m2, m3 r2.Point) *AnchorConfig {
	c := &AnchorConfig{}
	c.SetAnchor(0, m1)
	c.SetAnchor(1, m2)
	c.SetAnchor(2, m3)
	return c
}

// Anchor returns the current position of anchor i (0-based)
func (c *AnchorConfig) Anchor(i int) r2.Point {
	a := &c.anchors[i]
	return r2.Point{X: a.x.Load(), Y: a.y.Load()}
}

// SetAnchor stores both coordinates of anchor i (0-based)
func (c *AnchorConfig) SetAnchor(i int, p r2.Point) {
	a := &c.anchors[i]
	a.x.Store(p.X)
	a.y.Store(p.Y)
}

// Coord returns the live storage for one coordinate of anchor i (0-based)
func (c *AnchorConfig) Coord(i int, axis Axis) *atomic.Float64 {
	if axis == AxisY {
		return &c.anchors[i].y
	}
	return &c.anchors[i].x
}

// Param names one tunable coordinate
type Param struct {
	Name  string
	Value *atomic.Float64
}

// ParamName returns the stable name of a coordinate, e.g. "anchor2.y"
func ParamName(i int, axis Axis) string {
	return fmt.Sprintf("anchor%d.%s", i+1, axis)
}

// Params lists all six coordinates in registration order
func (c *AnchorConfig) Params() []Param {
	params := make([]Param, 0, NumAnchors*2)
	for i := 0; i < NumAnchors; i++ {
		for _, axis := range []Axis{AxisX, AxisY} {
			params = append(params, Param{Name: ParamName(i, axis), Value: c.Coord(i, axis)})
		}
	}
	return params
}

// Collinear reports whether the current anchors lie on one line, which makes
// the forward transform singular. Transforms do not consult it.
func (c *AnchorConfig) Collinear() bool {
	m1, m2, m3 := c.Anchor(0), c.Anchor(1), c.Anchor(2)
	return m2.Sub(m1).Cross(m3.Sub(m1)) == 0
}
