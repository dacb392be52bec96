// Package hal is an in-process hardware abstraction layer registry: components
// register named scalar parameters that tuning tools read and write while the
// owning component keeps using the same storage.
package hal

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already registered")
	ErrReadOnly = errors.New("parameter is read-only")
)

// Dir is the access direction of a parameter
type Dir uint8

const (
	RO Dir = iota + 1
	RW
)

func (d Dir) String() string {
	switch d {
	case RO:
		return "RO"
	case RW:
		return "RW"
	}
	return "??"
}

// Component is a registered module
type Component struct {
	ID    int
	Name  string
	Ready bool

	params []string
}

// Param is a registered float parameter backed by caller-owned storage
type Param struct {
	Name  string
	Dir   Dir
	Owner int
	value *atomic.Float64
}

// Get returns the current value
func (p *Param) Get() float64 {
	return p.value.Load()
}

// ParamInfo is a snapshot of a parameter for listings
type ParamInfo struct {
	Name  string
	Dir   Dir
	Owner string
	Value float64
}

// HAL holds registered components and parameters
type HAL struct {
	mu         sync.RWMutex
	components map[int]*Component
	byName     map[string]*Component
	params     map[string]*Param
	nextID     int
	logger     *zap.Logger
}

// New creates an empty registry
func New(logger *zap.Logger) *HAL {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HAL{
		components: make(map[int]*Component),
		byName:     make(map[string]*Component),
		params:     make(map[string]*Param),
		nextID:     1,
		logger:     logger,
	}
}

// Init registers a component and returns its ID
func (h *HAL) Init(name string) (int, error) {
	if name == "" {
		return 0, errors.New("component name is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.byName[name]; exists {
		return 0, errors.Wrapf(ErrExists, "component %q", name)
	}

	comp := &Component{ID: h.nextID, Name: name}
	h.nextID++
	h.components[comp.ID] = comp
	h.byName[name] = comp

	h.logger.Debug("component registered", zap.String("component", name), zap.Int("id", comp.ID))
	return comp.ID, nil
}

// ParamFloatNew registers a float parameter backed by value. Parameters can
// only be added before the component is marked ready.
func (h *HAL) ParamFloatNew(name string, dir Dir, value *atomic.Float64, compID int) error {
	if name == "" {
		return errors.New("parameter name is required")
	}
	if value == nil {
		return errors.Errorf("parameter %q has no storage", name)
	}
	if dir != RO && dir != RW {
		return errors.Errorf("parameter %q has invalid direction %d", name, dir)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	comp, ok := h.components[compID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "component %d", compID)
	}
	if comp.Ready {
		return errors.Errorf("component %q is ready, cannot add parameter %q", comp.Name, name)
	}
	if _, exists := h.params[name]; exists {
		return errors.Wrapf(ErrExists, "parameter %q", name)
	}

	h.params[name] = &Param{Name: name, Dir: dir, Owner: compID, value: value}
	comp.params = append(comp.params, name)
	return nil
}

// Ready marks a component as fully initialized
func (h *HAL) Ready(compID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	comp, ok := h.components[compID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "component %d", compID)
	}
	comp.Ready = true

	h.logger.Info("component ready", zap.String("component", comp.Name), zap.Int("params", len(comp.params)))
	return nil
}

// Exit removes a component together with its parameters
func (h *HAL) Exit(compID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	comp, ok := h.components[compID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "component %d", compID)
	}
	for _, name := range comp.params {
		delete(h.params, name)
	}
	delete(h.components, compID)
	delete(h.byName, comp.Name)

	h.logger.Debug("component removed", zap.String("component", comp.Name))
	return nil
}

// Component looks up a component by name
func (h *HAL) Component(name string) (Component, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	comp, ok := h.byName[name]
	if !ok {
		return Component{}, false
	}
	return *comp, true
}

// Param looks up a parameter by name
func (h *HAL) Param(name string) (*Param, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	p, ok := h.params[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "parameter %q", name)
	}
	return p, nil
}

// GetParam returns the current value of a parameter
func (h *HAL) GetParam(name string) (float64, error) {
	p, err := h.Param(name)
	if err != nil {
		return 0, err
	}
	return p.Get(), nil
}

// SetParam writes a read-write parameter
func (h *HAL) SetParam(name string, value float64) error {
	p, err := h.Param(name)
	if err != nil {
		return err
	}
	if p.Dir != RW {
		return errors.Wrapf(ErrReadOnly, "parameter %q", name)
	}
	p.value.Store(value)

	h.logger.Debug("parameter set", zap.String("param", name), zap.Float64("value", value))
	return nil
}

// Params returns a snapshot of all parameters sorted by name
func (h *HAL) Params() []ParamInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]ParamInfo, 0, len(h.params))
	for _, p := range h.params {
		owner := ""
		if comp, ok := h.components[p.Owner]; ok {
			owner = comp.Name
		}
		infos = append(infos, ParamInfo{Name: p.Name, Dir: p.Dir, Owner: owner, Value: p.Get()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
