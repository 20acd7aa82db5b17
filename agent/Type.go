package agent

import (
	"errors"
	"fmt"
	"strings"
)

// Type represents a specific type of agent that New can create
type Type string

const (
	Tabular        Type = "tabular"
	ValueNetwork   Type = "value-network"
	DuelingNetwork Type = "dueling-network"
	FixedTime      Type = "fixed-time"
)

// Types lists every Type in the order they are presented to users
var Types = []Type{Tabular, ValueNetwork, DuelingNetwork, FixedTime}

// ParseType returns the Type named s. Names are case insensitive.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &InvalidTypeError{Name: s}
	}
	return t, nil
}

// Valid returns whether t is a known Type
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Learns returns whether agents of type t learn from experience
func (t Type) Learns() bool {
	return t != FixedTime
}

// InvalidTypeError is returned when an agent type is unknown
type InvalidTypeError struct {
	Name string
}

func (e *InvalidTypeError) Error() string {
	names := make([]string, len(Types))
	for i, t := range Types {
		names[i] = string(t)
	}
	return fmt.Sprintf("unknown agent type %q (want one of %v)", e.Name,
		strings.Join(names, ", "))
}

// IsInvalidType returns whether err was caused by an unknown agent type
func IsInvalidType(err error) bool {
	var target *InvalidTypeError
	return errors.As(err, &target)
}
