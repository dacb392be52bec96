package gcode

import (
	"errors"
	"fmt"

	"trikins/standalone/kinematics"
)

// ErrNonFinitePose is returned when a transform produced an unusable
// position, which happens when the anchors are collinear
var ErrNonFinitePose = errors.New("non-finite pose")

// axisLetters are the world axes accepted by moves, in Pose field order
var axisLetters = []byte{'X', 'Y', 'Z', 'A', 'B', 'C', 'U', 'V', 'W'}

// Sink receives joint targets for each move
type Sink interface {
	Emit(joints *kinematics.Joints, pose *kinematics.Pose) error
}

// Reporter receives position reports (M114)
type Reporter func(pose kinematics.Pose, joints kinematics.Joints)

// State is the interpreter's machine state
type State struct {
	Pose         kinematics.Pose
	Joints       kinematics.Joints
	Homed        bool
	AbsoluteMode bool    // Absolute (G90) vs relative (G91) positioning
	FeedRate     float64 // mm/s
}

// Interpreter executes G-code commands through a kinematics transform
type Interpreter struct {
	state  State
	kin    kinematics.Kinematics
	home   kinematics.Joints
	sink   Sink
	report Reporter
}

// NewInterpreter creates a new interpreter. home is the joint vector the
// machine sits at after G28.
func NewInterpreter(kin kinematics.Kinematics, home kinematics.Joints, sink Sink) *Interpreter {
	return &Interpreter{
		state: State{
			AbsoluteMode: true,
		},
		kin:  kin,
		home: home,
		sink: sink,
	}
}

// SetReporter installs the M114 callback
func (interp *Interpreter) SetReporter(r Reporter) {
	interp.report = r
}

// Execute executes a parsed G-code command
func (interp *Interpreter) Execute(cmd *Command) error {
	if cmd == nil {
		return nil
	}

	switch cmd.Type {
	case 'G':
		return interp.executeG(cmd)
	case 'M':
		return interp.executeM(cmd)
	}

	return nil
}

// executeG handles G-codes
func (interp *Interpreter) executeG(cmd *Command) error {
	switch cmd.Number {
	case 0, 1: // G0/G1 - Linear move
		return interp.doMove(cmd)
	case 28: // G28 - Home
		return interp.doHome()
	case 90: // G90 - Absolute positioning
		interp.state.AbsoluteMode = true
	case 91: // G91 - Relative positioning
		interp.state.AbsoluteMode = false
	case 92: // G92 - Set position
		return interp.doSetPosition(cmd)
	}

	return nil
}

// executeM handles M-codes
func (interp *Interpreter) executeM(cmd *Command) error {
	switch cmd.Number {
	case 114: // M114 - Get current position
		if interp.report != nil {
			interp.report(interp.state.Pose, interp.state.Joints)
		}
	}

	return nil
}

// doMove converts the target pose of G0/G1 to joints and emits them
func (interp *Interpreter) doMove(cmd *Command) error {
	if cmd.HasParameter('F') {
		interp.state.FeedRate = cmd.GetParameter('F', 0) / 60.0 // mm/min to mm/s
	}

	target := interp.state.Pose
	for _, letter := range axisLetters {
		if !cmd.HasParameter(letter) {
			continue
		}
		v := cmd.GetParameter(letter, 0)
		field := axisField(&target, letter)
		if interp.state.AbsoluteMode {
			*field = v
		} else {
			*field += v
		}
	}

	var joints kinematics.Joints
	var fflags kinematics.ForwardFlags
	interp.kin.Inverse(&target, &joints, 0, &fflags)

	if err := interp.sink.Emit(&joints, &target); err != nil {
		return err
	}

	interp.state.Pose = target
	interp.state.Joints = joints
	return nil
}

// doHome takes the home joint vector as the current machine position and
// derives the world pose from it. Z and the auxiliary axes keep their values.
func (interp *Interpreter) doHome() error {
	pose := interp.state.Pose
	joints := interp.home
	var fflags kinematics.ForwardFlags
	var iflags kinematics.InverseFlags
	interp.kin.Home(&pose, &joints, &fflags, &iflags)

	if !pose.Finite() {
		return fmt.Errorf("home joints %v: %w", joints[:kinematics.NumAnchors], ErrNonFinitePose)
	}

	interp.state.Pose = pose
	interp.state.Joints = joints
	interp.state.Homed = true
	return nil
}

// doSetPosition sets the current position (G92) without motion
func (interp *Interpreter) doSetPosition(cmd *Command) error {
	pose := interp.state.Pose
	for _, letter := range axisLetters {
		if cmd.HasParameter(letter) {
			*axisField(&pose, letter) = cmd.GetParameter(letter, 0)
		}
	}

	var fflags kinematics.ForwardFlags
	interp.kin.Inverse(&pose, &interp.state.Joints, 0, &fflags)
	interp.state.Pose = pose
	return nil
}

// GetState returns the current machine state
func (interp *Interpreter) GetState() State {
	return interp.state
}

func axisField(p *kinematics.Pose, letter byte) *float64 {
	switch letter {
	case 'X':
		return &p.X
	case 'Y':
		return &p.Y
	case 'Z':
		return &p.Z
	case 'A':
		return &p.A
	case 'B':
		return &p.B
	case 'C':
		return &p.C
	case 'U':
		return &p.U
	case 'V':
		return &p.V
	case 'W':
		return &p.W
	}
	return nil
}
