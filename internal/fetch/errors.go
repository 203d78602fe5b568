// internal/fetch/errors.go
//
// Typed error taxonomy for the fetch client.
//
// Context
// -------
// Callers need to branch on *why* a request failed, not just that it did:
//
//   • Transport  – connection refused, aborted, or timed out.
//   • Status     – the backend answered outside [200,300); carries the
//     status code and a best-effort parsed error body.
//   • Parse      – 2xx response whose body is not JSON; carries a raw
//     text excerpt for diagnostics.
//   • Validation – parsed fine but failed the schema; carries the
//     field-level violations and the offending payload.  Never retried.
//
// All four share one struct so `errors.As(err, *fetch.Error)` works
// uniformly; Kind discriminates.
package fetch

import (
	"errors"
	"fmt"

	"github.com/yanizio/folio/internal/schema"
)

// Kind discriminates failure categories.
type Kind string

const (
	KindTransport  Kind = "transport"
	KindStatus     Kind = "status"
	KindParse      Kind = "parse"
	KindValidation Kind = "validation"
)

// Error is the single failure type surfaced by the fetch client.
type Error struct {
	Kind   Kind
	Method string
	URL    string

	Status     int                // status failures
	Body       any                // best-effort parsed error body (status)
	Excerpt    string             // raw-text excerpt (parse failures)
	Violations []schema.Violation // validation failures
	Payload    []byte             // offending payload (validation failures)

	Err error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("fetch %s %s: status %d", e.Method, e.URL, e.Status)
	case KindParse:
		return fmt.Sprintf("fetch %s %s: response is not JSON: %s", e.Method, e.URL, e.Excerpt)
	case KindValidation:
		return fmt.Sprintf("fetch %s %s: schema violation: %s", e.Method, e.URL, schema.Summarize(e.Violations))
	default:
		return fmt.Sprintf("fetch %s %s: %v", e.Method, e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient.  Schema mismatches
// are deterministic; re-fetching identical data that fails the same check
// wastes the retry budget.
func (e *Error) Retryable() bool { return e.Kind != KindValidation }

// KindOf extracts the Kind from any error chain, or "" if the chain holds
// no *fetch.Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
