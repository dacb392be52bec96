package kinematics

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
)

func TestAnchorParams(t *testing.T) {
	anchors := &AnchorConfig{}
	params := anchors.Params()

	expected := []string{"anchor1.x", "anchor1.y", "anchor2.x", "anchor2.y", "anchor3.x", "anchor3.y"}
	if len(params) != len(expected) {
		t.Fatalf("Expected %d params, got %d", len(expected), len(params))
	}

	for i, p := range params {
		if p.Name != expected[i] {
			t.Errorf("param %d: expected name %s, got %s", i, expected[i], p.Name)
		}
		if p.Value.Load() != 0 {
			t.Errorf("param %s: expected default 0, got %f", p.Name, p.Value.Load())
		}
		p.Value.Store(float64(i + 1))
	}

	want := []r2.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}}
	for i, w := range want {
		if got := anchors.Anchor(i); got != w {
			t.Errorf("anchor %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestSetAnchor(t *testing.T) {
	anchors := &AnchorConfig{}
	anchors.SetAnchor(1, r2.Point{X: 300, Y: -4})

	if x := anchors.Coord(1, AxisX).Load(); x != 300 {
		t.Errorf("Expected x=300, got %f", x)
	}
	if y := anchors.Coord(1, AxisY).Load(); y != -4 {
		t.Errorf("Expected y=-4, got %f", y)
	}
	if got := anchors.Anchor(0); got != (r2.Point{}) {
		t.Errorf("Expected anchor 1 untouched, got %v", got)
	}
}

func TestCollinear(t *testing.T) {
	if triangleAnchors().Collinear() {
		t.Error("Expected triangle anchors not to be collinear")
	}
}

func TestPoseFinite(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)

	tests := []struct {
		pose   Pose
		finite bool
	}{
		{Pose{X: 1, Y: 2}, true},
		{Pose{X: nan, Y: 2}, false},
		{Pose{X: 1, Y: inf}, false},
		{Pose{X: 1, Y: -inf}, false},
		{Pose{X: 1, Y: 2, Z: nan}, true},
	}

	for _, test := range tests {
		if got := test.pose.Finite(); got != test.finite {
			t.Errorf("Finite(%+v): expected %v, got %v", test.pose, test.finite, got)
		}
	}
}

func TestTypeString(t *testing.T) {
	if TypeBoth.String() != "both" {
		t.Errorf("Expected both, got %s", TypeBoth)
	}
	if Type(0).String() != "unknown" {
		t.Errorf("Expected unknown, got %s", Type(0))
	}
}
