// Package gen is the op-tree generator: it walks a validated protocol.ast
// description and its per-message parts scripts and emits the
// StateMachineOperation-rooted op-tree the core executes, once per agent
// perspective (Client, Server). The full structure is built once from a
// validated description, failing fast on malformed input. This is a thin,
// mechanical AST-to-op-tree walk with three generator-level conventions
// documented below, not an independently engineered component.
//
// Conventions this generator relies on (beyond what protocol/ast enforces):
//
//   - Exactly one outgoing message per declared state. A state with two or
//     more messages sharing the same When requires a disambiguation
//     strategy (peer choice, discriminator byte) this mechanical walk does
//     not implement; Client/Server return an error for such a protocol.
//   - A dynamically-sized string field (FieldType "octets" or "str" with
//     Params["sizing"] == "Dynamic") being read must be immediately
//     followed, in the same Parts list, by a Terminator part: that
//     terminator's literal becomes the field's delimiter
//     (ReadOctetsUntilTerminator), and the Terminator part is consumed by
//     that read rather than emitted again as a separate ReadStaticOctets.
//   - A read-direction ForLoop part must likewise be immediately followed
//     by a Terminator part, whose literal is the array's closing marker
//     (TerminateListIfReadAhead); its body serializes exactly one field
//     reference per element.
package gen

import (
	"fmt"

	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/operation"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/optree"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/protocol/ast"
)

const payloadSlot = "__payload"

// Client builds the op-tree a client connection's interpreter executes.
func Client(proto *ast.Protocol) (*optree.Tree, error) {
	return build(proto, ast.AgentClient)
}

// Server builds the op-tree a server connection's interpreter executes.
func Server(proto *ast.Protocol) (*optree.Tree, error) {
	return build(proto, ast.AgentServer)
}

func build(proto *ast.Protocol, perspective ast.Agent) (*optree.Tree, error) {
	if err := proto.Validate(); err != nil {
		return nil, fmt.Errorf("gen: invalid protocol: %w", err)
	}
	if len(proto.Messages) == 0 {
		return nil, fmt.Errorf("gen: protocol %q declares no messages", proto.Name)
	}

	byState := make(map[string][]*ast.Message)
	for _, m := range proto.Messages {
		byState[m.When] = append(byState[m.When], m)
	}

	states := make(operation.StateMap)
	for state, msgs := range byState {
		if len(msgs) > 1 {
			return nil, fmt.Errorf("gen: state %q has %d outgoing messages; this generator supports exactly one", state, len(msgs))
		}
		msg := msgs[0]
		entry, err := buildEntry(msg, msg.Agent == perspective)
		if err != nil {
			return nil, fmt.Errorf("gen: message %q: %w", msg.Name, err)
		}
		states[state] = operation.StateInfo{
			Entry: entry,
			Transitions: map[string]operation.TransitionInfo{
				msg.Name: buildTransition(msg),
			},
		}
	}
	// A state that is some message's Then but never anyone's When (a
	// terminal) was never visited by the loop above; add it explicitly,
	// with an entry that immediately signals the sentinel empty-label
	// transition so the state machine actually terminates rather than
	// failing with NameError on a state missing from the map.
	for _, m := range proto.Messages {
		if _, ok := states[m.Then]; !ok {
			states[m.Then] = operation.StateInfo{Entry: buildTerminalEntry()}
		}
	}

	root := optree.NewNode(operation.StateMachineOperation{
		States:  states,
		Initial: proto.Messages[0].When,
	})
	return optree.NewTree(root), nil
}

// buildTerminalEntry emits the entry Callable for a state that is some
// message's Then but never anyone's When: it returns the two-element
// DynamicList the state machine's handshake requires, with the empty
// string as the transition label, signalling termination with an empty
// Dictionary as the result.
func buildTerminalEntry() *optree.Node {
	return optree.NewNode(operation.DynamicListCtor{},
		optree.NewNode(operation.OctetsLiteral{V: ""}),
		optree.NewNode(operation.DictionaryInitialize{}),
	)
}

func buildTransition(msg *ast.Message) operation.TransitionInfo {
	notify := optree.NewNode(operation.UnaryCallback{CallbackKey: "transitioned_" + msg.Name},
		optree.NewNode(operation.Int32Literal{V: 0}),
	)
	body := optree.NewNode(operation.OpSequence{}, notify, optree.NewNode(operation.DictionaryInitialize{}))
	return operation.TransitionInfo{Body: body, Target: msg.Then}
}

// buildEntry emits the Callable body executed on entering msg.When: for a
// message this perspective sends, fetch field values from the host and
// write them on the wire; for one it receives, parse the wire bytes and
// hand the record to the host. Either way it finishes by returning the
// two-element DynamicList the state machine's handshake requires: the
// message name as the transition label, and the full record as captured
// values.
func buildEntry(msg *ast.Message, sending bool) (*optree.Node, error) {
	fields := make(map[string]ast.Field, len(msg.Data))
	for _, f := range msg.Data {
		fields[f.Name] = f
	}

	var body []*optree.Node
	if sending {
		body = append(body, optree.NewNode(operation.PadInitialize{Name: payloadSlot},
			optree.NewNode(operation.UnaryCallback{CallbackKey: "provide_" + msg.Name},
				optree.NewNode(operation.PadAsDict{}),
			),
		))
		for _, f := range msg.Data {
			body = append(body, optree.NewNode(operation.PadInitialize{Name: f.Name},
				optree.NewNode(operation.DictionaryGet{Key: f.Name},
					optree.NewNode(operation.PadGet{Name: payloadSlot}),
				),
			))
		}
	}

	parts, err := buildParts(msg.Parts, fields, sending)
	if err != nil {
		return nil, err
	}
	body = append(body, parts...)

	if !sending {
		body = append(body, optree.NewNode(operation.UnaryCallback{CallbackKey: "deliver_" + msg.Name},
			optree.NewNode(operation.PadAsDict{}),
		))
	}

	body = append(body, optree.NewNode(operation.DynamicListCtor{},
		optree.NewNode(operation.OctetsLiteral{V: value.Octets(msg.Name)}),
		optree.NewNode(operation.PadAsDict{}),
	))

	return optree.NewNode(operation.OpSequence{}, body...), nil
}

// buildParts walks one parts script (a message's top level, or a ForLoop's
// body) into op-tree nodes, applying the adjacency conventions documented
// on the package for dynamic-length reads.
func buildParts(parts []ast.Part, fields map[string]ast.Field, writing bool) ([]*optree.Node, error) {
	var out []*optree.Node
	for i := 0; i < len(parts); i++ {
		p := parts[i]
		switch p.Kind {
		case ast.PartTokenGroup:
			for j, name := range p.Fields {
				f, ok := fields[name]
				if !ok {
					return nil, fmt.Errorf("part references undeclared field %q", name)
				}
				isLastInGroup := j == len(p.Fields)-1
				var delim []byte
				consumesNext := false
				if !writing && isLastInGroup && isDynamicString(f.Type) && i+1 < len(parts) && parts[i+1].Kind == ast.PartTerminator {
					delim = parts[i+1].Terminator
					consumesNext = true
				}
				node, err := buildField(f, writing, delim)
				if err != nil {
					return nil, err
				}
				out = append(out, node)
				if consumesNext {
					i++
				}
			}
		case ast.PartTerminator:
			if writing {
				out = append(out, optree.NewNode(operation.WriteStaticOctets{Contents: p.Terminator}))
			} else {
				out = append(out, optree.NewNode(operation.ReadStaticOctets{Contents: p.Terminator}))
			}
		case ast.PartForLoop:
			node, consumed, err := buildForLoop(p, parts[i+1:], fields, writing)
			if err != nil {
				return nil, err
			}
			out = append(out, node)
			i += consumed
		default:
			return nil, fmt.Errorf("unknown part kind %q", p.Kind)
		}
	}
	return out, nil
}

// elementType resolves an array field's element type from its
// element_type parameter, accepting either a full FieldType or a bare
// type name.
func elementType(col ast.Field) (ast.FieldType, error) {
	switch et := col.Type.Params["element_type"].(type) {
	case ast.FieldType:
		return et, nil
	case string:
		return ast.FieldType{Name: et}, nil
	}
	return ast.FieldType{}, fmt.Errorf("field %q: array type declares no element_type", col.Name)
}

func isDynamicString(t ast.FieldType) bool {
	if t.Name != "str" && t.Name != "octets" {
		return false
	}
	sizing, _ := t.Params["sizing"].(string)
	return sizing == "Dynamic"
}

func buildField(f ast.Field, writing bool, readDelimiter []byte) (*optree.Node, error) {
	get := func() *optree.Node { return optree.NewNode(operation.PadGet{Name: f.Name}) }
	capture := func(read *optree.Node) *optree.Node {
		return optree.NewNode(operation.PadInitialize{Name: f.Name}, read)
	}

	switch f.Type.Name {
	case "int32":
		if writing {
			return optree.NewNode(operation.WriteInt32Native{}, get()), nil
		}
		return capture(optree.NewNode(operation.ReadInt32Native{})), nil
	case "ascii_int":
		if writing {
			return optree.NewNode(operation.WriteOctets{}, optree.NewNode(operation.IntToAscii{}, get())), nil
		}
		return capture(optree.NewNode(operation.ReadIntFromAscii{})), nil
	case "octets", "str":
		escChar, hasEsc := f.Type.Params["escape_char"].(string)
		escSeq, _ := f.Type.Params["escape_seq"].(string)
		if writing {
			if hasEsc && escChar != "" {
				return optree.NewNode(operation.WriteOctetsWithEscape{
					EscapeChar:     []byte(escChar),
					EscapeSequence: []byte(escSeq),
				}, get()), nil
			}
			return optree.NewNode(operation.WriteOctets{}, get()), nil
		}
		if readDelimiter == nil {
			return nil, fmt.Errorf("field %q: reading a dynamic string requires a following terminator part", f.Name)
		}
		read := operation.ReadOctetsUntilTerminator{Terminator: readDelimiter}
		if hasEsc && escChar != "" {
			read.EscapeChar = []byte(escChar)
			read.EscapeSeq = []byte(escSeq)
		}
		return capture(optree.NewNode(read)), nil
	default:
		return nil, fmt.Errorf("field %q: unsupported type %q", f.Name, f.Type.Name)
	}
}

// buildForLoop emits a ForLoop part as either a write-side
// FunctionCallForEach over the collection field already bound in the pad,
// or a read-side GenerateList gated by a TerminateListIfReadAhead lookahead
// against the following Terminator part's literal. It returns how many of
// the remaining parts (beyond the ForLoop itself) it consumed, so the
// caller's loop can skip the terminator it folded in. The loop variable is
// registered in the body's field map, typed by the collection's declared
// element_type, so the body can reference the element like any other field.
func buildForLoop(p ast.Part, rest []ast.Part, fields map[string]ast.Field, writing bool) (*optree.Node, int, error) {
	col, ok := fields[p.Collection]
	if !ok {
		return nil, 0, fmt.Errorf("for-loop over undeclared field %q", p.Collection)
	}
	elemType, err := elementType(col)
	if err != nil {
		return nil, 0, err
	}
	bodyFields := make(map[string]ast.Field, len(fields)+1)
	for name, f := range fields {
		bodyFields[name] = f
	}
	bodyFields[p.Var] = ast.Field{Name: p.Var, Type: elemType}

	if writing {
		bodyNodes, err := buildParts(p.Body, bodyFields, true)
		if err != nil {
			return nil, 0, err
		}
		callable := optree.NewNode(operation.StaticCallable{
			Body:   optree.NewNode(operation.OpSequence{}, bodyNodes...),
			Params: []string{p.Var},
		})
		node := optree.NewNode(operation.FunctionCallForEach{ElementIsSingleArgument: true},
			callable,
			optree.NewNode(operation.PadGet{Name: p.Collection}),
		)
		return node, 0, nil
	}

	if len(rest) == 0 || rest[0].Kind != ast.PartTerminator {
		return nil, 0, fmt.Errorf("for-loop over %q: reading requires a following terminator", p.Collection)
	}
	closing := rest[0].Terminator

	bodyNodes, err := buildParts(p.Body, bodyFields, false)
	if err != nil {
		return nil, 0, err
	}
	generatorBody := optree.NewNode(operation.OpSequence{},
		append([]*optree.Node{optree.NewNode(operation.TerminateListIfReadAhead{Terminator: closing})}, bodyNodes...)...,
	)
	callable := optree.NewNode(operation.StaticCallable{Body: generatorBody})
	readLoop := optree.NewNode(operation.GenerateList{}, callable)

	bind := optree.NewNode(operation.PadInitialize{Name: p.Collection}, readLoop)
	return bind, 1, nil
}
