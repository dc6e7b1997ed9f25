// Package ast is the analyzed protocol description the core consumes:
// the core only ever walks this already-validated tree, never raw source
// text. A DSL lexer/parser/semantic-lowering stage that would ordinarily
// produce this tree from source text is a separate front end; this
// package is the boundary such a front end targets.
package ast

import "fmt"

// Agent identifies which side of a connection sends a Message.
type Agent string

const (
	AgentClient Agent = "client"
	AgentServer Agent = "server"
)

// FieldType names a typed wire field plus its parameters, mirroring the
// DSL's `int<encoding=AsciiInt, unsigned=True, bits=8>`,
// `str<encoding=Ascii7Bit, sizing=Dynamic, max_length=...>`,
// `array<element_type=T, sizing=...>`, `tuple<field=T, ...>`, `stream`.
type FieldType struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Field is one named, typed entry in a Message's Data.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// PartKind distinguishes the three shapes a serialization Part can take.
type PartKind string

const (
	PartTokenGroup PartKind = "tokens"
	PartTerminator PartKind = "terminator"
	PartForLoop    PartKind = "for"
)

// Part is a tagged union over the three `parts { ... }` shapes: an ordered
// group of field references, a literal terminator, or a loop over an array
// field.
type Part struct {
	Kind PartKind `json:"kind"`

	// TokenGroup / ForLoop body: ordered field-name references serialized
	// in sequence.
	Fields []string `json:"fields,omitempty"`

	// Terminator: the literal bytes closing a token group or a message.
	Terminator []byte `json:"terminator,omitempty"`

	// ForLoop: iterate Body once per element of the named array Field,
	// binding Var in scope for the duration.
	Var        string `json:"var,omitempty"`
	Collection string `json:"collection,omitempty"`
	Body       []Part `json:"body,omitempty"`
}

// Message is one protocol message: its state transition, sender, typed
// data fields, and the parts script serializing it on the wire.
type Message struct {
	Name  string  `json:"name"`
	When  string  `json:"when"`
	Then  string  `json:"then"`
	Agent Agent   `json:"agent"`
	Data  []Field `json:"data"`
	Parts []Part  `json:"parts"`
}

// Validate checks a single Message's own well-formedness (name, agent,
// field references within Parts). Cross-message checks (state reachability,
// name uniqueness) belong to Protocol.Validate.
func (m *Message) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("ast.Message: Name is required")
	}
	if m.When == "" || m.Then == "" {
		return fmt.Errorf("message '%s': When and Then states are required", m.Name)
	}
	if m.Agent != AgentClient && m.Agent != AgentServer {
		return fmt.Errorf("message '%s': Agent must be client or server, got %q", m.Name, m.Agent)
	}

	fields := make(map[string]bool, len(m.Data))
	for _, f := range m.Data {
		if f.Name == "" {
			return fmt.Errorf("message '%s': field with empty Name", m.Name)
		}
		if fields[f.Name] {
			return fmt.Errorf("message '%s': duplicate field name '%s'", m.Name, f.Name)
		}
		fields[f.Name] = true
	}

	return validateParts(m.Name, m.Parts, fields)
}

func validateParts(msgName string, parts []Part, fields map[string]bool) error {
	for _, p := range parts {
		switch p.Kind {
		case PartTokenGroup:
			for _, name := range p.Fields {
				if !fields[name] {
					return fmt.Errorf("message '%s': parts references unknown field '%s'", msgName, name)
				}
			}
		case PartTerminator:
			if len(p.Terminator) == 0 {
				return fmt.Errorf("message '%s': terminator part has empty literal", msgName)
			}
		case PartForLoop:
			if p.Var == "" || p.Collection == "" {
				return fmt.Errorf("message '%s': for-loop part requires Var and Collection", msgName)
			}
			if !fields[p.Collection] {
				return fmt.Errorf("message '%s': for-loop over unknown field '%s'", msgName, p.Collection)
			}
			// The loop variable is a field reference the body may use.
			bodyFields := make(map[string]bool, len(fields)+1)
			for name := range fields {
				bodyFields[name] = true
			}
			bodyFields[p.Var] = true
			if err := validateParts(msgName, p.Body, bodyFields); err != nil {
				return err
			}
		default:
			return fmt.Errorf("message '%s': unknown part kind %q", msgName, p.Kind)
		}
	}
	return nil
}

// Protocol is a named set of Messages, the unit the op-tree generator
// (protocol/gen) consumes.
type Protocol struct {
	Name     string     `json:"name"`
	Messages []*Message `json:"messages"`
}

// NewProtocol returns an empty Protocol with the given name.
func NewProtocol(name string) *Protocol {
	return &Protocol{Name: name, Messages: make([]*Message, 0)}
}

// AddMessage validates m and appends it.
func (p *Protocol) AddMessage(m *Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	p.Messages = append(p.Messages, m)
	return nil
}

// Validate checks the whole protocol: unique message names and a
// reachable state graph (every When but the first message's is some
// message's Then; nothing declares a message leaving a state the protocol
// never enters).
func (p *Protocol) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("ast.Protocol: Name is required")
	}
	if len(p.Messages) == 0 {
		return fmt.Errorf("protocol '%s' declares no messages", p.Name)
	}

	names := make(map[string]bool, len(p.Messages))
	for _, m := range p.Messages {
		if err := m.Validate(); err != nil {
			return err
		}
		if names[m.Name] {
			return fmt.Errorf("duplicate message name: %s", m.Name)
		}
		names[m.Name] = true
	}

	// Every When but the initial state must be some message's Then;
	// otherwise it names a state nothing ever transitions into, a dead
	// message no run of the protocol can ever reach.
	enteredBy := make(map[string]bool, len(p.Messages))
	for _, m := range p.Messages {
		enteredBy[m.Then] = true
	}
	initial := p.Messages[0].When
	for _, m := range p.Messages {
		if m.When != initial && !enteredBy[m.When] {
			return fmt.Errorf("message '%s': state %q is never entered by any message's Then", m.Name, m.When)
		}
	}

	return nil
}

// StatesOf returns the distinct When states from which agent sends a
// message, mirroring PipelineConfig's GetStageOrder-style query helpers.
func (p *Protocol) StatesOf(agent Agent) []string {
	seen := make(map[string]bool)
	var states []string
	for _, m := range p.Messages {
		if m.Agent != agent || seen[m.When] {
			continue
		}
		seen[m.When] = true
		states = append(states, m.When)
	}
	return states
}

// MessagesFrom returns every message whose When equals state, in
// declaration order.
func (p *Protocol) MessagesFrom(state string) []*Message {
	var out []*Message
	for _, m := range p.Messages {
		if m.When == state {
			out = append(out, m)
		}
	}
	return out
}
