package kinsmod

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"trikins/hal"
	"trikins/standalone/kinematics"
)

func TestLoadRegistersParams(t *testing.T) {
	h := hal.New(nil)
	mod, err := Load(h, "", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	infos := h.Params()
	expected := []string{
		"trikins.anchor1.x", "trikins.anchor1.y",
		"trikins.anchor2.x", "trikins.anchor2.y",
		"trikins.anchor3.x", "trikins.anchor3.y",
	}
	if len(infos) != len(expected) {
		t.Fatalf("Expected %d params, got %d", len(expected), len(infos))
	}
	for i, info := range infos {
		if info.Name != expected[i] || info.Dir != hal.RW || info.Value != 0 {
			t.Errorf("param %d: expected %s RW 0, got %+v", i, expected[i], info)
		}
	}

	comp, ok := h.Component(DefaultName)
	if !ok || !comp.Ready {
		t.Errorf("Expected ready component %s", DefaultName)
	}
	if mod.Name() != DefaultName {
		t.Errorf("Expected name %s, got %s", DefaultName, mod.Name())
	}
}

func TestParamsDriveTransform(t *testing.T) {
	h := hal.New(nil)
	mod, err := Load(h, "kins", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	values := map[string]float64{
		"kins.anchor2.x": 300,
		"kins.anchor3.x": 150,
		"kins.anchor3.y": 260,
	}
	for name, v := range values {
		if err := h.SetParam(name, v); err != nil {
			t.Fatalf("SetParam(%s) failed: %v", name, err)
		}
	}

	joints := kinematics.Joints{math.Hypot(150, 100), math.Hypot(150, 100), 160}
	pose := kinematics.Pose{Z: 5}
	mod.Kinematics().Forward(&joints, &pose, 0, new(kinematics.InverseFlags))
	if math.Abs(pose.X-150) > 1e-9 || math.Abs(pose.Y-100) > 1e-9 || pose.Z != 5 {
		t.Errorf("Expected (150, 100, 5), got %+v", pose)
	}

	if err := h.SetParam("kins.anchor3.y", 300); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	if y := mod.Anchors().Anchor(2).Y; y != 300 {
		t.Errorf("Expected anchor 3 y=300, got %f", y)
	}
}

func TestLoadFailureTearsDown(t *testing.T) {
	h := hal.New(nil)

	otherID, _ := h.Init("other")
	var taken atomic.Float64
	if err := h.ParamFloatNew("trikins.anchor2.y", hal.RW, &taken, otherID); err != nil {
		t.Fatalf("ParamFloatNew failed: %v", err)
	}

	if _, err := Load(h, DefaultName, nil); !errors.Is(err, hal.ErrExists) {
		t.Fatalf("Expected ErrExists from Load, got %v", err)
	}

	if _, ok := h.Component(DefaultName); ok {
		t.Error("Expected component removed after failed load")
	}
	if _, err := h.Param("trikins.anchor1.x"); !errors.Is(err, hal.ErrNotFound) {
		t.Errorf("Expected partially registered params removed, got %v", err)
	}
	if _, err := h.Param("trikins.anchor2.y"); err != nil {
		t.Errorf("Expected other component's param to survive, got %v", err)
	}

	// A later load succeeds once the conflict is gone
	_ = h.Exit(otherID)
	if _, err := Load(h, DefaultName, nil); err != nil {
		t.Errorf("Expected load to succeed, got %v", err)
	}
}

func TestUnload(t *testing.T) {
	h := hal.New(nil)
	mod, err := Load(h, "", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := mod.Unload(); err != nil {
		t.Fatalf("Unload failed: %v", err)
	}
	if len(h.Params()) != 0 {
		t.Errorf("Expected no params after unload, got %d", len(h.Params()))
	}
	if err := mod.Unload(); err == nil {
		t.Error("Expected error unloading twice")
	}
}
