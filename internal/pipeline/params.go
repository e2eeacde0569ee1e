package pipeline

import (
	"strconv"
	"strings"
)

// Params is an ordered key→value set of encoder tunables, rendered as the
// colon-delimited blob x264/x265 expect. Keeping it structured lets the
// degradation protocol cap individual keys instead of doing string surgery.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams builds an empty set.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// Set inserts or replaces a key, preserving first-insertion order.
func (p *Params) Set(key, value string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get looks a key up.
func (p *Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Len returns the number of keys.
func (p *Params) Len() int {
	return len(p.keys)
}

// Clone copies the set so one attempt's capping never leaks into the next.
func (p *Params) Clone() *Params {
	out := NewParams()
	for _, key := range p.keys {
		out.Set(key, p.values[key])
	}
	return out
}

// String renders the set in insertion order as "k=v:k=v".
func (p *Params) String() string {
	if p == nil || len(p.keys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p.keys))
	for _, key := range p.keys {
		parts = append(parts, key+"="+p.values[key])
	}
	return strings.Join(parts, ":")
}

// Tunables some encoder builds reject above these ceilings.
var unsafeCeilings = map[string]int{
	"subme": 7,
	"rd":    6,
}

// CapUnsafe clamps known-unsafe tunables to their ceilings and reports
// whether anything changed. Non-numeric values for a capped key are left
// alone.
func (p *Params) CapUnsafe() bool {
	changed := false
	for key, ceiling := range unsafeCeilings {
		raw, ok := p.values[key]
		if !ok {
			continue
		}
		value, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || value <= ceiling {
			continue
		}
		p.values[key] = strconv.Itoa(ceiling)
		changed = true
	}
	return changed
}
