//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package message defines the opaque message envelope agents exchange
// and the narrow Schema interface ports validate against. Concrete
// schema/validation implementations are an external collaborator and
// are not part of this package; Func and Nop below exist only to make
// that interface easy to satisfy in tests and simple agents.
package message

import "fmt"

// Message is an opaque structured value flowing through a pipeline.
// Payload is whatever an agent's Run/Process function produces; it is
// nullable by convention for agents that take no input (e.g. sources).
type Message struct {
	Payload any
}

// Schema validates a Message's payload against a declared message
// type. Concrete implementations (JSON-Schema, struct-tag based, …)
// live outside this module.
type Schema interface {
	// Validate returns a non-nil error if payload does not conform.
	Validate(payload any) error
}

// Func adapts a plain validation function to the Schema interface.
type Func func(payload any) error

// Validate implements Schema.
func (f Func) Validate(payload any) error {
	if f == nil {
		return nil
	}
	return f(payload)
}

// Nop is a Schema that accepts any payload, useful for agents that
// intentionally skip validation (e.g. passthrough/sink agents in
// tests).
var Nop Schema = Func(nil)

// TypeOf is a Schema that accepts only payloads whose concrete Go type
// matches the type of example. Useful scaffolding for tests and small
// agents that don't need a full schema library.
func TypeOf(example any) Schema {
	wantType := fmt.Sprintf("%T", example)
	return Func(func(payload any) error {
		gotType := fmt.Sprintf("%T", payload)
		if gotType != wantType {
			return fmt.Errorf("message: expected payload of type %s, got %s", wantType, gotType)
		}
		return nil
	})
}
