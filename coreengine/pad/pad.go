// Package pad implements the parent-chained lexical scope that backs every
// variable reference an op-tree evaluates against.
package pad

import "github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"

// Pad is one lexical scope, optionally chained to a parent. Get and Set
// walk the chain on miss; Initialize never does.
type Pad struct {
	vars   map[string]value.Value
	parent *Pad
}

// New creates a root pad with no parent.
func New() *Pad {
	return &Pad{vars: make(map[string]value.Value)}
}

// NewChild creates a pad whose lookups fall through to parent on miss.
func NewChild(parent *Pad) *Pad {
	return &Pad{vars: make(map[string]value.Value), parent: parent}
}

// Get resolves name in this pad, falling through to the parent chain. A
// name absent from every pad in the chain yields NameError.
func (p *Pad) Get(name string) value.Value {
	if v, ok := p.vars[name]; ok {
		return v
	}
	if p.parent != nil {
		return p.parent.Get(name)
	}
	return value.ErrorValue(value.NameError)
}

// Set assigns to the nearest pad in the chain that already declares name,
// returning the value it replaced. A name absent from every pad yields
// NameError; Set never creates a new binding (use Initialize for that).
func (p *Pad) Set(name string, v value.Value) value.Value {
	if old, ok := p.vars[name]; ok {
		p.vars[name] = v
		return old
	}
	if p.parent != nil {
		return p.parent.Set(name, v)
	}
	return value.ErrorValue(value.NameError)
}

// Initialize declares or overwrites name in this pad only, never walking
// the parent chain.
func (p *Pad) Initialize(name string, v value.Value) {
	p.vars[name] = v
}

// InitializeGlobal declares name in the outermost pad of the chain,
// walking to the root before binding.
func (p *Pad) InitializeGlobal(name string, v value.Value) {
	if p.parent != nil {
		p.parent.InitializeGlobal(name, v)
		return
	}
	p.vars[name] = v
}

// AsDict snapshots this pad's own bindings as a Dictionary value. The
// snapshot is scoped to the current pad only, matching Initialize's
// current-pad-only behavior rather than Get/Set's chain walk.
func (p *Pad) AsDict() value.Dictionary {
	snapshot := make(map[string]value.Value, len(p.vars))
	for k, v := range p.vars {
		snapshot[k] = v
	}
	return value.NewDictionary(snapshot)
}
