// internal/fetch/client.go
//
// Typed HTTP fetch client: one logical exchange with retry, timeout, and
// schema validation.
//
/*
Context
--------
Every upstream the service consumes (CMS, sponsor feed, guestbook backend)
goes through Request().  One call performs:

  build query string → build request → execute with per-attempt timeout →
  status check → JSON parse → optional schema validation

Transport, status, and parse failures are retried with exponential backoff
seeded at RetryDelay; validation failures are terminal on first sight (see
errors.go).  The terminal failure is handed to OnError exactly once before
it is returned, so call sites can hook reporting without double-counting.

Construction
------------
Clients are built once in main and injected; base headers (Authorization,
User-Agent) ride along on every request.  There is no package-level
default client.

Notes
-----
  • The sleep function is a struct field so tests can record the backoff
    schedule without waiting on wall-clock time.
  • Oxford commas, two spaces after periods.
*/
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/metrics"
	"github.com/yanizio/folio/internal/schema"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 10 * time.Second
)

// excerptLen bounds the raw-text sample carried by parse failures.
const excerptLen = 200

// Options tunes one logical request.
type Options struct {
	Retries    int               // extra attempts after the first (default 0)
	RetryDelay time.Duration     // backoff seed (default 1s)
	Timeout    time.Duration     // per-attempt deadline (default 10s)
	Headers    map[string]string // merged over the client's base headers
	Schema     schema.Checker    // optional response validator
	OnError    func(*Error)      // invoked once per terminal failure
}

// Query holds query parameters.  Nil values are dropped; slice values
// expand to repeated keys; everything else is stringified.
type Query map[string]any

// Client performs typed HTTP exchanges.  Safe for concurrent use.
type Client struct {
	http        *http.Client
	baseHeaders map[string]string

	// sleep is ctx-aware; swapped out by tests to observe the schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Client that attaches baseHeaders to every request.
func New(baseHeaders map[string]string) *Client {
	return &Client{
		http:        &http.Client{},
		baseHeaders: baseHeaders,
		sleep:       ctxSleep,
	}
}

//
// Request — the single public operation
//

// Request performs one logical exchange and returns the raw JSON body.
// On failure the returned error is always a *Error; nil data with nil
// error never happens.
func (c *Client) Request(ctx context.Context, rawURL, method string, opts Options, q Query, body any) (json.RawMessage, error) {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	full := rawURL
	if qs := EncodeQuery(q); qs != "" {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		full = rawURL + sep + qs
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, c.terminal(&Error{Kind: KindTransport, Method: method, URL: full,
				Err: fmt.Errorf("encode body: %w", err)}, opts)
		}
	}

	delay := opts.RetryDelay
	var last *Error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			metrics.FetchRetriesTotal.Inc()
			if err := c.sleep(ctx, delay); err != nil {
				last = &Error{Kind: KindTransport, Method: method, URL: full, Err: err}
				break
			}
			delay *= 2 // exponential schedule
		}

		metrics.FetchAttemptsTotal.WithLabelValues(method).Inc()
		raw, ferr := c.attempt(ctx, full, method, opts, payload)
		if ferr == nil {
			if opts.Schema != nil {
				if vs := opts.Schema.Check(raw); len(vs) > 0 {
					metrics.FetchValidationFailuresTotal.Inc()
					// Deterministic mismatch: terminal, no retry consumed.
					return nil, c.terminal(&Error{Kind: KindValidation, Method: method, URL: full,
						Violations: vs, Payload: raw}, opts)
				}
			}
			return raw, nil
		}
		last = ferr
		zap.S().Debugw("fetch attempt failed",
			"method", method, "url", full, "attempt", attempt+1, "kind", ferr.Kind, "err", ferr)
	}

	return nil, c.terminal(last, opts)
}

// RequestRaw is Request without validation, regardless of Options.Schema.
// It exists so call sites state intent by name rather than by omission.
func (c *Client) RequestRaw(ctx context.Context, rawURL, method string, opts Options, q Query, body any) (json.RawMessage, error) {
	opts.Schema = nil
	return c.Request(ctx, rawURL, method, opts, q, body)
}

// RequestValidated performs Request with s enforced, then narrows the body
// to T.  The second decode cannot fail validation; it only re-reads bytes
// the Check pass already accepted.
func RequestValidated[T any](ctx context.Context, c *Client, rawURL, method string, s schema.Schema[T], opts Options, q Query, body any) (T, error) {
	var out T
	opts.Schema = s
	raw, err := c.Request(ctx, rawURL, method, opts, q, body)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &Error{Kind: KindParse, Method: method, URL: rawURL,
			Excerpt: excerpt(raw), Err: err}
	}
	return out, nil
}

//
// single attempt
//

// attempt runs one build-execute-status-parse sequence.
func (c *Client) attempt(ctx context.Context, full, method string, opts Options, payload []byte) (json.RawMessage, *Error) {
	actx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, full, rdr)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, URL: full, Err: err}
	}
	for k, val := range c.baseHeaders {
		req.Header.Set(k, val)
	}
	for k, val := range opts.Headers {
		req.Header.Set(k, val)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeout and abort surface here; same kind as a network failure.
		return nil, &Error{Kind: KindTransport, Method: method, URL: full, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, URL: full, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody any
		if json.Unmarshal(raw, &errBody) != nil {
			errBody = string(raw) // best effort
		}
		return nil, &Error{Kind: KindStatus, Method: method, URL: full,
			Status: resp.StatusCode, Body: errBody}
	}

	if len(raw) == 0 {
		raw = []byte("null") // HEAD and 204 responses
	}
	if !json.Valid(raw) {
		return nil, &Error{Kind: KindParse, Method: method, URL: full, Excerpt: excerpt(raw)}
	}
	return raw, nil
}

// terminal records metrics, fires OnError exactly once, and returns e.
func (c *Client) terminal(e *Error, opts Options) *Error {
	metrics.FetchFailuresTotal.WithLabelValues(string(e.Kind)).Inc()
	zap.S().Warnw("fetch terminal failure",
		"method", e.Method, "url", e.URL, "kind", e.Kind, "err", e.Err)
	if opts.OnError != nil {
		opts.OnError(e)
	}
	return e
}

//
// query serialization
//

// EncodeQuery serializes q per the contract: nil entries (and nil-valued
// interfaces) are omitted, slices expand to repeated keys, scalars are
// stringified.  Keys are emitted in sorted order so URLs are stable.
func EncodeQuery(q Query) string {
	if len(q) == 0 {
		return ""
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vals := url.Values{}
	for _, k := range keys {
		val := q[k]
		if isNil(val) {
			continue
		}
		rv := reflect.ValueOf(val)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				ev := rv.Index(i).Interface()
				if isNil(ev) {
					continue
				}
				vals.Add(k, stringify(ev))
			}
			continue
		}
		vals.Add(k, stringify(val))
	}
	return vals.Encode()
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	}
	return false
}

//
// helpers
//

func excerpt(raw []byte) string {
	if len(raw) > excerptLen {
		raw = raw[:excerptLen]
	}
	return string(raw)
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
