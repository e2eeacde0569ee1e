package pipeline

import (
	"testing"

	"squeeze/internal/plan"
)

func TestParamsStringOrder(t *testing.T) {
	p := NewParams()
	p.Set("subme", "9")
	p.Set("rd", "6")
	p.Set("aq-mode", "3")
	if got := p.String(); got != "subme=9:rd=6:aq-mode=3" {
		t.Errorf("String = %q", got)
	}
}

func TestParamsSetReplacesInPlace(t *testing.T) {
	p := NewParams()
	p.Set("subme", "9")
	p.Set("rd", "6")
	p.Set("subme", "4")
	if got := p.String(); got != "subme=4:rd=6" {
		t.Errorf("String = %q", got)
	}
}

func TestCapUnsafe(t *testing.T) {
	p := NewParams()
	p.Set("subme", "11")
	p.Set("rd", "8")
	p.Set("aq-mode", "3")

	if !p.CapUnsafe() {
		t.Fatal("CapUnsafe reported no change")
	}
	if got, _ := p.Get("subme"); got != "7" {
		t.Errorf("subme = %s, want 7", got)
	}
	if got, _ := p.Get("rd"); got != "6" {
		t.Errorf("rd = %s, want 6", got)
	}
	if got, _ := p.Get("aq-mode"); got != "3" {
		t.Errorf("aq-mode = %s, want untouched 3", got)
	}
}

func TestCapUnsafeNoChangeWhenWithinCeiling(t *testing.T) {
	p := NewParams()
	p.Set("subme", "7")
	p.Set("rd", "3")
	if p.CapUnsafe() {
		t.Error("CapUnsafe reported a change for in-range values")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := NewParams()
	p.Set("subme", "9")
	clone := p.Clone()
	clone.CapUnsafe()

	if got, _ := p.Get("subme"); got != "9" {
		t.Errorf("original mutated by clone capping: subme = %s", got)
	}
}

func TestParamsFor(t *testing.T) {
	p := ParamsFor("libx264", plan.ModeUltra)
	if p == nil {
		t.Fatal("libx264 ultra should carry a tunable set")
	}
	if got, _ := p.Get("subme"); got != "9" {
		t.Errorf("subme = %s, want 9", got)
	}
	// The initial set sits above the safe ceiling so capping has room to act.
	if !p.Clone().CapUnsafe() {
		t.Error("libx264 ultra set should be cappable")
	}

	p = ParamsFor("libx265", plan.ModeQuality)
	if p == nil {
		t.Fatal("libx265 quality should carry a tunable set")
	}
	if got, _ := p.Get("rd"); got != "6" {
		t.Errorf("rd = %s, want 6", got)
	}

	if ParamsFor("libx264", plan.ModeFast) != nil {
		t.Error("fast mode should not carry extra tunables")
	}
	if ParamsFor("h264_nvenc", plan.ModeUltra) != nil {
		t.Error("hardware encoders take no x264-style params")
	}
}

func TestEmptyParamsString(t *testing.T) {
	var p *Params
	if got := p.String(); got != "" {
		t.Errorf("nil params String = %q, want empty", got)
	}
	if got := NewParams().String(); got != "" {
		t.Errorf("empty params String = %q, want empty", got)
	}
}
