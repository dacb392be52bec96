package standalone

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"trikins/hal"
	"trikins/standalone/config"
	"trikins/standalone/gcode"
	"trikins/standalone/kinematics"
	"trikins/standalone/kinsmod"
)

// Manager coordinates the kinematics component and the G-code front end
type Manager struct {
	config      config.Config
	hal         *hal.HAL
	module      *kinsmod.Module
	kinematics  kinematics.Kinematics
	parser      *gcode.Parser
	interpreter *gcode.Interpreter
	sink        gcode.Sink
	wrap        func(kinematics.Kinematics) kinematics.Kinematics
	logger      *zap.Logger

	// Serial interface
	inputBuffer  []byte
	outputBuffer []byte

	initialized bool
}

// NewManager creates a manager. Joint targets of every move go to sink.
func NewManager(cfg config.Config, h *hal.HAL, sink gcode.Sink, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		config:       cfg,
		hal:          h,
		parser:       gcode.NewParser(),
		sink:         sink,
		logger:       logger,
		inputBuffer:  make([]byte, 0, 256),
		outputBuffer: make([]byte, 0, 256),
	}
}

// WithInstrument wraps the kinematics used by the interpreter, e.g. to count
// transforms. Must be called before Initialize.
func (m *Manager) WithInstrument(wrap func(kinematics.Kinematics) kinematics.Kinematics) *Manager {
	m.wrap = wrap
	return m
}

// Initialize loads the kinematics component and applies the configured anchors
func (m *Manager) Initialize() error {
	if m.initialized {
		return errors.New("already initialized")
	}

	mod, err := kinsmod.Load(m.hal, m.config.Name, m.logger)
	if err != nil {
		return err
	}
	m.config.Apply(mod.Anchors())
	if mod.Anchors().Collinear() {
		m.logger.Warn("anchors are collinear, forward transform will not produce usable positions",
			zap.String("component", mod.Name()))
	}

	m.module = mod
	m.kinematics = mod.Kinematics()
	if m.wrap != nil {
		m.kinematics = m.wrap(m.kinematics)
	}

	m.interpreter = gcode.NewInterpreter(m.kinematics, m.config.HomeJoints(), m.sink)
	m.interpreter.SetReporter(m.reportPosition)

	m.initialized = true
	return nil
}

// Close unloads the kinematics component
func (m *Manager) Close() error {
	if !m.initialized {
		return nil
	}
	m.initialized = false
	return m.module.Unload()
}

// HAL returns the parameter registry the component is loaded into
func (m *Manager) HAL() *hal.HAL {
	return m.hal
}

// Module returns the loaded kinematics component
func (m *Manager) Module() *kinsmod.Module {
	return m.module
}

// Kinematics returns the (possibly instrumented) transform in use
func (m *Manager) Kinematics() kinematics.Kinematics {
	return m.kinematics
}

// ProcessLine processes a line of G-code
func (m *Manager) ProcessLine(line string) error {
	if !m.initialized {
		return errors.New("manager not initialized")
	}

	cmd, err := m.parser.ParseLine(line)
	if err != nil {
		return err
	}

	return m.interpreter.Execute(cmd)
}

// ProcessByte processes a single byte of input (for serial streaming)
func (m *Manager) ProcessByte(b byte) error {
	if b != '\n' && b != '\r' {
		m.inputBuffer = append(m.inputBuffer, b)
		return nil
	}

	line := strings.TrimSpace(string(m.inputBuffer))
	m.inputBuffer = m.inputBuffer[:0]
	if line == "" {
		return nil
	}

	if err := m.ProcessLine(line); err != nil {
		m.SendResponse("error: " + err.Error() + "\n")
		return err
	}
	m.SendResponse("ok\n")
	return nil
}

// SendResponse queues a response to be sent to the host
func (m *Manager) SendResponse(response string) {
	m.outputBuffer = append(m.outputBuffer, response...)
}

// GetOutput returns any pending output and clears the buffer
func (m *Manager) GetOutput() []byte {
	if len(m.outputBuffer) == 0 {
		return nil
	}

	output := make([]byte, len(m.outputBuffer))
	copy(output, m.outputBuffer)
	m.outputBuffer = m.outputBuffer[:0]
	return output
}

// Run feeds a G-code stream through the interpreter, writing responses to w.
// It stops at the first failing line.
func (m *Manager) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++

		for _, b := range scanner.Bytes() {
			_ = m.ProcessByte(b)
		}
		err := m.ProcessByte('\n')
		if _, werr := w.Write(m.GetOutput()); werr != nil {
			return werr
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

// GetState returns the current machine state
func (m *Manager) GetState() gcode.State {
	if m.interpreter != nil {
		return m.interpreter.GetState()
	}
	return gcode.State{}
}

func (m *Manager) reportPosition(pose kinematics.Pose, joints kinematics.Joints) {
	m.SendResponse(fmt.Sprintf("X:%.3f Y:%.3f Z:%.3f J0:%.3f J1:%.3f J2:%.3f\n",
		pose.X, pose.Y, pose.Z, joints[0], joints[1], joints[2]))
}
