package hal

import (
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestComponentLifecycle(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := New(zap.New(core))

	id, err := h.Init("comp")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	var a, b atomic.Float64
	if err := h.ParamFloatNew("comp.a", RW, &a, id); err != nil {
		t.Fatalf("ParamFloatNew(comp.a) failed: %v", err)
	}
	if err := h.ParamFloatNew("comp.b", RO, &b, id); err != nil {
		t.Fatalf("ParamFloatNew(comp.b) failed: %v", err)
	}
	if err := h.Ready(id); err != nil {
		t.Fatalf("Ready failed: %v", err)
	}

	comp, ok := h.Component("comp")
	if !ok || !comp.Ready {
		t.Fatalf("Expected ready component, got %+v (found=%v)", comp, ok)
	}
	if logs.FilterMessage("component ready").Len() != 1 {
		t.Errorf("Expected one ready log entry, got %d", logs.FilterMessage("component ready").Len())
	}

	var c atomic.Float64
	if err := h.ParamFloatNew("comp.c", RW, &c, id); err == nil {
		t.Error("Expected error adding parameter after Ready")
	}

	if err := h.Exit(id); err != nil {
		t.Fatalf("Exit failed: %v", err)
	}
	if _, err := h.Param("comp.a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after Exit, got %v", err)
	}
	if _, ok := h.Component("comp"); ok {
		t.Error("Expected component to be removed")
	}
	if err := h.Exit(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second Exit, got %v", err)
	}
}

func TestInitErrors(t *testing.T) {
	h := New(nil)

	if _, err := h.Init(""); err == nil {
		t.Error("Expected error for empty component name")
	}
	if _, err := h.Init("comp"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := h.Init("comp"); !errors.Is(err, ErrExists) {
		t.Errorf("Expected ErrExists, got %v", err)
	}
}

func TestParamFloatNewErrors(t *testing.T) {
	h := New(nil)
	id, _ := h.Init("comp")
	var v atomic.Float64

	tests := []struct {
		name   string
		param  string
		dir    Dir
		value  *atomic.Float64
		compID int
	}{
		{"empty name", "", RW, &v, id},
		{"nil storage", "comp.v", RW, nil, id},
		{"bad dir", "comp.v", Dir(9), &v, id},
		{"unknown component", "comp.v", RW, &v, id + 1},
	}

	for _, test := range tests {
		if err := h.ParamFloatNew(test.param, test.dir, test.value, test.compID); err == nil {
			t.Errorf("%s: expected error", test.name)
		}
	}

	if err := h.ParamFloatNew("comp.v", RW, &v, id); err != nil {
		t.Fatalf("ParamFloatNew failed: %v", err)
	}
	if err := h.ParamFloatNew("comp.v", RW, &v, id); !errors.Is(err, ErrExists) {
		t.Errorf("Expected ErrExists, got %v", err)
	}
}

func TestSetParam(t *testing.T) {
	h := New(nil)
	id, _ := h.Init("comp")

	var rw, ro atomic.Float64
	ro.Store(7)
	_ = h.ParamFloatNew("comp.rw", RW, &rw, id)
	_ = h.ParamFloatNew("comp.ro", RO, &ro, id)

	if err := h.SetParam("comp.rw", 12.5); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	if rw.Load() != 12.5 {
		t.Errorf("Expected storage 12.5, got %f", rw.Load())
	}
	if v, err := h.GetParam("comp.rw"); err != nil || v != 12.5 {
		t.Errorf("Expected 12.5, got %f (%v)", v, err)
	}

	if err := h.SetParam("comp.ro", 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
	if ro.Load() != 7 {
		t.Errorf("Expected read-only storage untouched, got %f", ro.Load())
	}

	if err := h.SetParam("comp.missing", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	// Storage written by the owner is visible through the registry
	rw.Store(-3)
	if v, _ := h.GetParam("comp.rw"); v != -3 {
		t.Errorf("Expected -3, got %f", v)
	}
}

func TestParamsSorted(t *testing.T) {
	h := New(nil)
	id, _ := h.Init("comp")

	var x, y, z atomic.Float64
	_ = h.ParamFloatNew("comp.z", RW, &z, id)
	_ = h.ParamFloatNew("comp.x", RO, &x, id)
	_ = h.ParamFloatNew("comp.y", RW, &y, id)
	y.Store(2)

	infos := h.Params()
	expected := []ParamInfo{
		{Name: "comp.x", Dir: RO, Owner: "comp", Value: 0},
		{Name: "comp.y", Dir: RW, Owner: "comp", Value: 2},
		{Name: "comp.z", Dir: RW, Owner: "comp", Value: 0},
	}
	if len(infos) != len(expected) {
		t.Fatalf("Expected %d params, got %d", len(expected), len(infos))
	}
	for i := range expected {
		if infos[i] != expected[i] {
			t.Errorf("param %d: expected %+v, got %+v", i, expected[i], infos[i])
		}
	}
}
