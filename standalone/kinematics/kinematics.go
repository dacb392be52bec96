package kinematics

import "math"

// NumJoints is the number of joint slots exchanged with the motion controller
const NumJoints = 9

// Joints holds joint positions. Slots 0-2 are actuator lengths for kinematic
// joints, slots 3-8 carry the A, B, C, U, V, W axes.
type Joints [NumJoints]float64

// Pose is a position in world coordinates
type Pose struct {
	X float64
	Y float64
	Z float64

	A float64
	B float64
	C float64
	U float64
	V float64
	W float64
}

// Finite reports whether the planar part of the pose is a usable position.
// Transforms never signal numeric failure, so callers check this instead.
func (p Pose) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// ForwardFlags and InverseFlags are opaque flag records passed through the
// transform calling convention
type ForwardFlags uint64
type InverseFlags uint64

// Type describes which transform directions a kinematics implements
type Type uint8

const (
	TypeIdentity Type = iota + 1
	TypeForwardOnly
	TypeInverseOnly
	TypeBoth
)

func (t Type) String() string {
	switch t {
	case TypeIdentity:
		return "identity"
	case TypeForwardOnly:
		return "forward-only"
	case TypeInverseOnly:
		return "inverse-only"
	case TypeBoth:
		return "both"
	}
	return "unknown"
}

// Status is the return code of a transform call
type Status int

// StatusOK is the only status returned by the transforms in this package
const StatusOK Status = 0

// Kinematics defines the interface for coordinate transformations
type Kinematics interface {
	// Forward converts joint positions to a world pose
	Forward(joints *Joints, pose *Pose, fflags ForwardFlags, iflags *InverseFlags) Status

	// Inverse converts a world pose to joint positions
	Inverse(pose *Pose, joints *Joints, iflags InverseFlags, fflags *ForwardFlags) Status

	// Home computes the world pose for the machine's home joint positions
	Home(pose *Pose, joints *Joints, fflags *ForwardFlags, iflags *InverseFlags) Status

	// Type returns the supported transform directions
	Type() Type

	// Switchable reports whether alternate kinematics can be selected at runtime
	Switchable() bool
}
