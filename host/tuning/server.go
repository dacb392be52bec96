// Package tuning implements the line protocol external tools use to read and
// write kinematics parameters and to try transforms against the live anchors.
//
//	show                        list parameters
//	getp NAME                   print one parameter
//	setp NAME VALUE             write a read-write parameter
//	forward R1 R2 R3            joints -> pose
//	inverse X Y [Z A B C U V W] pose -> joints
//	home                        pose of the configured home joints
//	help, quit
package tuning

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"trikins/hal"
	"trikins/standalone/kinematics"
)

var errQuit = errors.New("quit")

// Server answers tuning requests
type Server struct {
	hal    *hal.HAL
	kin    kinematics.Kinematics
	home   kinematics.Joints
	logger *zap.Logger
}

// NewServer creates a server over the registry and transform
func NewServer(h *hal.HAL, kin kinematics.Kinematics, home kinematics.Joints, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{hal: h, kin: kin, home: home, logger: logger}
}

// Serve handles requests from rw until EOF, "quit", or ctx is done.
// Cancellation is observed between requests.
func (s *Server) Serve(ctx context.Context, rw io.ReadWriter) error {
	scanner := bufio.NewScanner(rw)
	w := bufio.NewWriter(rw)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		reply, err := s.Handle(scanner.Text())
		if errors.Is(err, errQuit) {
			_, _ = w.WriteString("bye\n")
			return w.Flush()
		}
		if err != nil {
			s.logger.Debug("tuning request failed", zap.String("request", scanner.Text()), zap.Error(err))
			reply = "error: " + err.Error()
		}
		if reply == "" {
			continue
		}
		if _, err := w.WriteString(reply + "\n"); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Handle executes one request line and returns the reply text
func (s *Server) Handle(line string) (string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", nil
	}

	cmd, args := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "show":
		return s.show(), nil
	case "getp":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: getp NAME")
		}
		v, err := s.hal.GetParam(args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", args[0], formatFloat(v)), nil
	case "setp":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: setp NAME VALUE")
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return "", fmt.Errorf("invalid value %q", args[1])
		}
		if err := s.hal.SetParam(args[0], v); err != nil {
			return "", err
		}
		s.logger.Info("parameter set", zap.String("param", args[0]), zap.Float64("value", v))
		return "ok", nil
	case "forward":
		return s.forward(args)
	case "inverse":
		return s.inverse(args)
	case "home":
		pose := kinematics.Pose{}
		joints := s.home
		var fflags kinematics.ForwardFlags
		var iflags kinematics.InverseFlags
		s.kin.Home(&pose, &joints, &fflags, &iflags)
		return FormatPose(pose), nil
	case "help", "?":
		return "commands: show, getp NAME, setp NAME VALUE, forward R1 R2 R3, inverse X Y [Z A B C U V W], home, quit", nil
	case "quit", "exit":
		return "", errQuit
	}
	return "", fmt.Errorf("unknown command %q", cmd)
}

func (s *Server) show() string {
	var b strings.Builder
	for i, p := range s.hal.Params() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-24s %s %s", p.Name, p.Dir, formatFloat(p.Value))
	}
	return b.String()
}

func (s *Server) forward(args []string) (string, error) {
	if len(args) != kinematics.NumAnchors {
		return "", fmt.Errorf("usage: forward R1 R2 R3")
	}
	vals, err := parseFloats(args)
	if err != nil {
		return "", err
	}

	var joints kinematics.Joints
	copy(joints[:], vals)
	var pose kinematics.Pose
	s.kin.Forward(&joints, &pose, 0, new(kinematics.InverseFlags))
	return FormatPose(pose), nil
}

func (s *Server) inverse(args []string) (string, error) {
	if len(args) < 2 || len(args) > kinematics.NumJoints {
		return "", fmt.Errorf("usage: inverse X Y [Z A B C U V W]")
	}
	vals, err := parseFloats(args)
	if err != nil {
		return "", err
	}

	pose := PoseFromValues(vals)
	var joints kinematics.Joints
	s.kin.Inverse(&pose, &joints, 0, new(kinematics.ForwardFlags))
	return FormatJoints(joints), nil
}

// PoseFromValues fills X, Y, Z, A, B, C, U, V, W in order
func PoseFromValues(vals []float64) kinematics.Pose {
	var v [kinematics.NumJoints]float64
	copy(v[:], vals)
	return kinematics.Pose{X: v[0], Y: v[1], Z: v[2], A: v[3], B: v[4], C: v[5], U: v[6], V: v[7], W: v[8]}
}

// FormatPose renders a pose, marking positions the forward transform could not solve
func FormatPose(p kinematics.Pose) string {
	s := fmt.Sprintf("X:%s Y:%s Z:%s", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	if !p.Finite() {
		s += " (invalid: anchors collinear?)"
	}
	return s
}

// FormatJoints renders all joint slots
func FormatJoints(j kinematics.Joints) string {
	parts := make([]string, len(j))
	for i, v := range j {
		parts[i] = fmt.Sprintf("J%d:%s", i, formatFloat(v))
	}
	return strings.Join(parts, " ")
}

func parseFloats(args []string) ([]float64, error) {
	vals := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		vals[i] = v
	}
	return vals, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
