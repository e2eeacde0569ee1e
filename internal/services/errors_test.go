package services_test

import (
	"errors"
	"strings"
	"testing"

	"squeeze/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	inner := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "pipeline", "pass 1", "encoder exited nonzero", inner)

	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected marker to survive wrapping")
	}
	if !errors.Is(err, inner) {
		t.Fatal("expected inner error to survive wrapping")
	}
	for _, fragment := range []string{"pipeline", "pass 1", "encoder exited nonzero"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in message %q", fragment, err.Error())
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "coordinator", "submit", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("nil marker should default to transient")
	}
}

func TestIsCapacity(t *testing.T) {
	err := services.Wrap(services.ErrCapacity, "coordinator", "submit", "queue full", nil)
	if !services.IsCapacity(err) {
		t.Fatal("expected capacity classification")
	}
	if services.IsCapacity(errors.New("other")) {
		t.Fatal("unrelated error must not classify as capacity")
	}
}
