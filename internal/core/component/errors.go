package component

import "errors"

// Storage and registry errors
var (
	// ErrTypeNotRegistered signals a lookup for a type id the registry never issued.
	ErrTypeNotRegistered = errors.New("component: type not registered")
	// ErrNilComponent is returned when an attach receives a nil instance.
	ErrNilComponent = errors.New("component: nil component")
	// ErrInvalidComponent is returned when an attach receives an instance failing its own invariants.
	ErrInvalidComponent = errors.New("component: invalid component")
)
