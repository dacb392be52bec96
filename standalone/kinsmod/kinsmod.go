// Package kinsmod loads the trilateration kinematics as a HAL component and
// exposes its anchor coordinates as tunable parameters.
package kinsmod

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"trikins/hal"
	"trikins/standalone/kinematics"
)

// DefaultName is the component name and parameter prefix
const DefaultName = "trikins"

// Module is a loaded kinematics component
type Module struct {
	hal     *hal.HAL
	compID  int
	name    string
	anchors *kinematics.AnchorConfig
	kin     *kinematics.Trilateration
	logger  *zap.Logger
}

// Load registers the component, allocates its anchor configuration with every
// coordinate at 0 and registers one read-write parameter per coordinate
// (e.g. "trikins.anchor1.x"). If any registration fails the component is
// removed again and the error returned.
func Load(h *hal.HAL, name string, logger *zap.Logger) (*Module, error) {
	if name == "" {
		name = DefaultName
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	compID, err := h.Init(name)
	if err != nil {
		return nil, errors.Wrap(err, "init component")
	}

	anchors := &kinematics.AnchorConfig{}
	for _, p := range anchors.Params() {
		if err := h.ParamFloatNew(name+"."+p.Name, hal.RW, p.Value, compID); err != nil {
			return nil, multierr.Append(errors.Wrap(err, "register parameter"), h.Exit(compID))
		}
	}

	if err := h.Ready(compID); err != nil {
		return nil, multierr.Append(err, h.Exit(compID))
	}

	logger.Info("kinematics loaded", zap.String("component", name), zap.Stringer("type", kinematics.TypeBoth))
	return &Module{
		hal:     h,
		compID:  compID,
		name:    name,
		anchors: anchors,
		kin:     kinematics.NewTrilateration(anchors),
		logger:  logger,
	}, nil
}

// Name returns the component name
func (m *Module) Name() string {
	return m.name
}

// Anchors returns the live anchor configuration
func (m *Module) Anchors() *kinematics.AnchorConfig {
	return m.anchors
}

// Kinematics returns the transformer bound to the module's anchors
func (m *Module) Kinematics() *kinematics.Trilateration {
	return m.kin
}

// Unload removes the component and its parameters
func (m *Module) Unload() error {
	if err := m.hal.Exit(m.compID); err != nil {
		return err
	}
	m.logger.Info("kinematics unloaded", zap.String("component", m.name))
	return nil
}
