// internal/schema/schema.go
//
// Schema registry: declarative wire-shape validators.
//
// Context
// -------
// Every payload crossing the CMS/API boundary is validated before the rest
// of the app sees it.  A Schema[T] pairs a strict JSON decode (unknown
// fields rejected) with go-playground struct validation (required fields,
// closed enums via `oneof`, bounded lengths).  The result is either a
// narrowed T or a list of Violations carrying the field path and an
// expected-vs-actual summary.
//
// Schemas are pure descriptors: no I/O, no mutation, safe for concurrent
// use.  Optionality is always explicit—pointer or `omitempty` fields carry
// no `required` tag; everything else does.
//
// Notes
// -----
//   • A decode failure (wrong JSON type, unknown field) is reported as a
//     Violation, not an error; `error` is reserved for malformed JSON that
//     the fetch layer classifies as a parse failure instead.
//   • Oxford commas, two spaces after periods.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New(validator.WithRequiredStructEnabled())

//
// Violation
//

// Violation is one field-level schema failure.
type Violation struct {
	Path     string `json:"path"`     // e.g. "[2].category"
	Expected string `json:"expected"` // rule that failed, human-readable
	Actual   string `json:"actual"`   // offending value, best-effort
}

func (vi Violation) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", vi.Path, vi.Expected, vi.Actual)
}

// Summarize joins violations into one diagnostic line for logs and error
// bodies.
func Summarize(vs []Violation) string {
	parts := make([]string, len(vs))
	for i, vi := range vs {
		parts[i] = vi.String()
	}
	return strings.Join(parts, "; ")
}

//
// Checker (type-erased view used by the fetch client)
//

// Checker is the non-generic face of a Schema.  The fetch client only
// needs a yes/no answer plus violations; typed narrowing happens in
// fetch.RequestValidated.
type Checker interface {
	Name() string
	Check(raw []byte) []Violation
}

//
// Schema
//

// Schema validates raw JSON against T's tagged shape.
type Schema[T any] struct {
	name string
}

// New declares a schema for T under a stable registry name.
func New[T any](name string) Schema[T] {
	return Schema[T]{name: name}
}

// Name returns the registry name the schema was declared under.
func (s Schema[T]) Name() string { return s.name }

// Parse decodes raw strictly and validates the result.  On success the
// violations slice is nil; on mismatch it lists every failing field.  The
// error return is reserved for JSON that cannot be decoded at all.
func (s Schema[T]) Parse(raw []byte) (T, []Violation, error) {
	var out T

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		if vi, ok := decodeViolation(err); ok {
			return out, []Violation{vi}, nil
		}
		return out, nil, err
	}

	return out, s.validate(out), nil
}

// Check implements Checker.
func (s Schema[T]) Check(raw []byte) []Violation {
	_, vs, err := s.Parse(raw)
	if err != nil {
		return []Violation{{Path: "$", Expected: "decodable JSON", Actual: err.Error()}}
	}
	return vs
}

//
// internals
//

// validate runs struct validation, iterating element-wise when T is a
// slice so violation paths carry the offending index.
func (s Schema[T]) validate(val T) []Violation {
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice {
		var out []Violation
		for i := 0; i < rv.Len(); i++ {
			for _, vi := range structViolations(rv.Index(i).Interface()) {
				vi.Path = fmt.Sprintf("[%d]%s", i, vi.Path)
				out = append(out, vi)
			}
		}
		return out
	}
	return structViolations(val)
}

// structViolations converts validator.ValidationErrors into Violations.
func structViolations(val any) []Violation {
	err := v.Struct(val)
	if err == nil {
		return nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return []Violation{{Path: "$", Expected: "validatable struct", Actual: err.Error()}}
	}

	out := make([]Violation, 0, len(ves))
	for _, fe := range ves {
		expected := fe.Tag()
		if p := fe.Param(); p != "" {
			expected += "=" + p
		}
		out = append(out, Violation{
			Path:     trimNamespace(fe.Namespace()),
			Expected: expected,
			Actual:   fmt.Sprintf("%v", fe.Value()),
		})
	}
	return out
}

// trimNamespace drops the root struct name from "Project.Category" so
// paths read relative to the payload, and prefixes a separator dot.
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i != -1 {
		return "." + ns[i+1:]
	}
	return "." + ns
}

// decodeViolation classifies strict-decode errors that are shape problems
// rather than syntax problems.
func decodeViolation(err error) (Violation, bool) {
	if te, ok := err.(*json.UnmarshalTypeError); ok {
		path := te.Field
		if path == "" {
			path = "$"
		}
		return Violation{Path: path, Expected: te.Type.String(), Actual: te.Value}, true
	}
	// encoding/json has no typed error for unknown fields.
	if msg := err.Error(); strings.Contains(msg, "unknown field") {
		return Violation{Path: "$", Expected: "declared fields only", Actual: msg}, true
	}
	return Violation{}, false
}
