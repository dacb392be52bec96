package kinematics

import "github.com/golang/geo/r2"

// Trilateration implements kinematics for a planar head held by three
// actuators of measured length, each attached to a fixed anchor. Joints 0-2
// are the distances from the head to anchors 1-3, joints 3-8 map to A..W.
//
// Anchors are read from the configuration on every call, so tuning changes
// apply to the next transform.
type Trilateration struct {
	anchors *AnchorConfig
}

var _ Kinematics = (*Trilateration)(nil)

// NewTrilateration creates a transformer reading the given anchor configuration
func NewTrilateration(anchors *AnchorConfig) *Trilateration {
	return &Trilateration{anchors: anchors}
}

// Anchors returns the live anchor configuration
func (k *Trilateration) Anchors() *AnchorConfig {
	return k.anchors
}

// Forward solves the head position from the three actuator lengths.
// Subtracting the circle equation of anchor 1 from those of anchors 2 and 3
// leaves two lines whose intersection is the head. Only X and Y are written.
// Collinear anchors make the system singular and yield NaN or Inf.
func (k *Trilateration) Forward(joints *Joints, pose *Pose, _ ForwardFlags, _ *InverseFlags) Status {
	m1, m2, m3 := k.anchors.Anchor(0), k.anchors.Anchor(1), k.anchors.Anchor(2)
	l1, l2, l3 := joints[0], joints[1], joints[2]

	a := 2 * (m2.X - m1.X)
	b := 2 * (m2.Y - m1.Y)
	c := l1*l1 - l2*l2 - m1.X*m1.X + m2.X*m2.X - m1.Y*m1.Y + m2.Y*m2.Y

	d := 2 * (m3.X - m1.X)
	e := 2 * (m3.Y - m1.Y)
	f := l1*l1 - l3*l3 - m1.X*m1.X + m3.X*m3.X - m1.Y*m1.Y + m3.Y*m3.Y

	pose.X = (c*e - b*f) / (a*e - b*d)
	pose.Y = (c*d - a*f) / (b*d - a*e)
	return StatusOK
}

// Inverse computes each actuator length as the distance from the head to its
// anchor and copies the auxiliary axes.
func (k *Trilateration) Inverse(pose *Pose, joints *Joints, _ InverseFlags, _ *ForwardFlags) Status {
	head := r2.Point{X: pose.X, Y: pose.Y}
	for i := 0; i < NumAnchors; i++ {
		joints[i] = head.Sub(k.anchors.Anchor(i)).Norm()
	}

	joints[3] = pose.A
	joints[4] = pose.B
	joints[5] = pose.C
	joints[6] = pose.U
	joints[7] = pose.V
	joints[8] = pose.W
	return StatusOK
}

// Home clears both flag records and returns the forward transform of the
// home joint positions
func (k *Trilateration) Home(pose *Pose, joints *Joints, fflags *ForwardFlags, iflags *InverseFlags) Status {
	*fflags = 0
	*iflags = 0
	return k.Forward(joints, pose, *fflags, iflags)
}

// Type returns TypeBoth
func (k *Trilateration) Type() Type {
	return TypeBoth
}

// Switchable returns false
func (k *Trilateration) Switchable() bool {
	return false
}
