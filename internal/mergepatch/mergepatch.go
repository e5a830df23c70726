// Package mergepatch applies application/merge-patch+json documents to an
// entity according to a per-field policy table. The semantics deliberately
// diverge from RFC 7386 in two ways the services depend on: a null value on
// a mandatory field keeps the stored value instead of clearing it, and
// map-valued fields merge additively instead of being replaced wholesale.
package mergepatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrImmutableID is returned when the patch document carries an "id"
	// member. Identity is never patchable.
	ErrImmutableID = errors.New("mergepatch: id cannot be changed")

	// ErrBadPatch is returned for documents that are not valid JSON objects
	// or that carry a value of the wrong type for a recognized field.
	ErrBadPatch = errors.New("mergepatch: malformed patch")
)

// NullPolicy controls what an explicit JSON null does to a field.
type NullPolicy int

const (
	// ClearOnNull clears the stored value.
	ClearOnNull NullPolicy = iota
	// KeepOnNull keeps the stored value; the null is a no-op.
	KeepOnNull
	// RejectNull rejects the whole patch.
	RejectNull
)

// Kind is the JSON type expected for a field's value.
type Kind int

const (
	String Kind = iota
	Int
	IntMap
)

// Field declares the patch policy for one entity field.
type Field struct {
	Name   string
	Kind   Kind
	OnNull NullPolicy
}

// Change is the validated outcome for one field present in the patch.
// Clear is set when an explicit null hit a ClearOnNull field; otherwise
// exactly the member matching the field's Kind is populated.
type Change struct {
	Clear bool
	Str   string
	Num   int
	Map   map[string]int
}

// Changes maps field name to its validated change. Fields absent from the
// patch never appear.
type Changes map[string]Change

var nullLiteral = []byte("null")

// Apply parses doc and validates it against the field table. It returns the
// full change set or an error; it never returns a partial result, so a
// caller only mutates state after a nil error.
func Apply(doc []byte, fields []Field) (Changes, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPatch, err)
	}

	if _, ok := raw["id"]; ok {
		return nil, ErrImmutableID
	}

	changes := make(Changes)
	for _, f := range fields {
		value, ok := raw[f.Name]
		if !ok {
			continue
		}

		if isNull(value) {
			switch f.OnNull {
			case KeepOnNull:
				// no-op, stored value survives
			case ClearOnNull:
				changes[f.Name] = Change{Clear: true}
			case RejectNull:
				return nil, fmt.Errorf("%w: field %q cannot be null", ErrBadPatch, f.Name)
			}
			continue
		}

		change, err := decode(f, value)
		if err != nil {
			return nil, err
		}
		changes[f.Name] = change
	}

	return changes, nil
}

func decode(f Field, value json.RawMessage) (Change, error) {
	switch f.Kind {
	case String:
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return Change{}, fmt.Errorf("%w: field %q must be a string", ErrBadPatch, f.Name)
		}
		return Change{Str: s}, nil

	case Int:
		// Any JSON number is accepted; fractions truncate toward zero.
		var n float64
		if err := json.Unmarshal(value, &n); err != nil {
			return Change{}, fmt.Errorf("%w: field %q must be a number", ErrBadPatch, f.Name)
		}
		return Change{Num: int(n)}, nil

	case IntMap:
		var m map[string]int
		if err := json.Unmarshal(value, &m); err != nil {
			return Change{}, fmt.Errorf("%w: field %q must be an object of integers", ErrBadPatch, f.Name)
		}
		return Change{Map: m}, nil
	}

	return Change{}, fmt.Errorf("%w: field %q has an unknown kind", ErrBadPatch, f.Name)
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), nullLiteral)
}
