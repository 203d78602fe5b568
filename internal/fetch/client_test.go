// internal/fetch/client_test.go
//
// Exercises the retry schedule, query serialization, and the four failure
// kinds against an httptest server.  Backoff is observed through the
// injected sleep hook, so nothing here waits on wall-clock time.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yanizio/folio/internal/schema"
)

// widget is a minimal validated payload shape for these tests.
type widget struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count"`
}

var widgetListSchema = schema.New[[]widget]("widgetList")

// newTestClient returns a client whose sleep records each delay instead of
// sleeping.
func newTestClient(delays *[]time.Duration) *Client {
	c := New(nil)
	c.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return c
}

func TestEncodeQuery(t *testing.T) {
	cases := []struct {
		name string
		q    Query
		want string
	}{
		{"empty", Query{}, ""},
		{"nil values dropped", Query{"a": nil, "b": []int{1, 2}, "c": nil}, "b=1&b=2"},
		{"sorted keys", Query{"z": "last", "a": "first"}, "a=first&z=last"},
		{"bool and int", Query{"featured": true, "limit": 5}, "featured=true&limit=5"},
		{"nil slice dropped", Query{"tags": []string(nil), "q": "x"}, "q=x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EncodeQuery(tc.q); got != tc.want {
				t.Fatalf("EncodeQuery(%v) = %q, want %q", tc.q, got, tc.want)
			}
		})
	}
}

func TestRequestSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "featured=true" {
			t.Errorf("query = %q, want featured=true", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"name":"alpha","count":3}]`))
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(&delays)

	raw, err := c.Request(context.Background(), srv.URL, http.MethodGet,
		Options{Schema: widgetListSchema}, Query{"featured": true}, nil)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if string(raw) != `[{"name":"alpha","count":3}]` {
		t.Fatalf("raw = %s", raw)
	}
	if len(delays) != 0 {
		t.Fatalf("slept %d times on a clean request", len(delays))
	}
}

func TestRequestBaseAndPerCallHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer base" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-Trace"); got != "abc" {
			t.Errorf("X-Trace = %q", got)
		}
		w.Write([]byte(`null`))
	}))
	defer srv.Close()

	c := New(map[string]string{"Authorization": "Bearer base"})
	_, err := c.Request(context.Background(), srv.URL, http.MethodGet,
		Options{Headers: map[string]string{"X-Trace": "abc"}}, nil, nil)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
}

func TestStatusFailureRetriesThenTerminal(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"message":"boom"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(&delays)

	var reported []*Error
	_, err := c.Request(context.Background(), srv.URL, http.MethodGet, Options{
		Retries:    2,
		RetryDelay: 100 * time.Millisecond,
		OnError:    func(e *Error) { reported = append(reported, e) },
	}, nil, nil)

	if err == nil {
		t.Fatal("want error on persistent 502")
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3 (1 + 2 retries)", got)
	}
	if KindOf(err) != KindStatus {
		t.Fatalf("kind = %v, want status", KindOf(err))
	}
	var fe *Error
	if !errors.As(err, &fe) || fe.Status != http.StatusBadGateway {
		t.Fatalf("status = %+v", err)
	}
	if len(reported) != 1 {
		t.Fatalf("OnError fired %d times, want exactly 1", len(reported))
	}

	// Backoff doubles from the seed: 100ms before retry 1, 200ms before
	// retry 2.
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestTransportFailureRetries(t *testing.T) {
	// A server that is immediately closed yields connection-refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	var delays []time.Duration
	c := newTestClient(&delays)

	_, err := c.Request(context.Background(), srv.URL, http.MethodGet,
		Options{Retries: 1, RetryDelay: 50 * time.Millisecond}, nil, nil)
	if KindOf(err) != KindTransport {
		t.Fatalf("kind = %v, want transport", KindOf(err))
	}
	if len(delays) != 1 {
		t.Fatalf("slept %d times, want 1", len(delays))
	}
}

func TestValidationFailureIsTerminal(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[{"count":1}]`)) // name missing
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(&delays)

	var reported int
	_, err := c.Request(context.Background(), srv.URL, http.MethodGet, Options{
		Retries: 3,
		Schema:  widgetListSchema,
		OnError: func(*Error) { reported++ },
	}, nil, nil)

	if KindOf(err) != KindValidation {
		t.Fatalf("kind = %v, want validation", KindOf(err))
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("attempts = %d; a schema mismatch must not be retried", got)
	}
	if len(delays) != 0 {
		t.Fatalf("slept %v before a validation failure", delays)
	}
	if reported != 1 {
		t.Fatalf("OnError fired %d times, want 1", reported)
	}

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("error type %T", err)
	}
	if len(fe.Violations) == 0 {
		t.Fatal("want violations on a validation failure")
	}
	if fe.Violations[0].Path != "[0].name" {
		t.Fatalf("violation path = %q, want [0].name", fe.Violations[0].Path)
	}
	if len(fe.Payload) == 0 {
		t.Fatal("validation failure must carry the offending payload")
	}
}

func TestParseFailureCarriesExcerpt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<!doctype html><html>nope</html>`))
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(&delays)

	_, err := c.Request(context.Background(), srv.URL, http.MethodGet, Options{}, nil, nil)
	if KindOf(err) != KindParse {
		t.Fatalf("kind = %v, want parse", KindOf(err))
	}
	var fe *Error
	if !errors.As(err, &fe) || fe.Excerpt == "" {
		t.Fatalf("parse failure lacks excerpt: %+v", err)
	}
}

func TestEmptyBodyDecodesAsNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(&delays)

	raw, err := c.Request(context.Background(), srv.URL, http.MethodGet, Options{}, nil, nil)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if string(raw) != "null" {
		t.Fatalf("raw = %q, want null", raw)
	}
}

func TestContextCancellationStopsRetryLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(nil)
	c.sleep = func(ctx context.Context, _ time.Duration) error { return context.Canceled }

	_, err := c.Request(context.Background(), srv.URL, http.MethodGet,
		Options{Retries: 5, RetryDelay: time.Millisecond}, nil, nil)
	if KindOf(err) != KindTransport {
		t.Fatalf("kind = %v, want transport", KindOf(err))
	}
	var fe *Error
	if !errors.As(err, &fe) || !errors.Is(fe.Err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRequestValidatedNarrows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"alpha","count":1},{"name":"beta","count":2}]`))
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(&delays)

	ws, err := RequestValidated(context.Background(), c, srv.URL, http.MethodGet,
		widgetListSchema, Options{}, nil, nil)
	if err != nil {
		t.Fatalf("RequestValidated: %v", err)
	}
	if len(ws) != 2 || ws[0].Name != "alpha" || ws[1].Count != 2 {
		t.Fatalf("decoded = %+v", ws)
	}
}

func TestRequestRawSkipsSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"count":9}]`)) // would fail widgetListSchema
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(&delays)

	raw, err := c.RequestRaw(context.Background(), srv.URL, http.MethodGet,
		Options{Schema: widgetListSchema}, nil, nil)
	if err != nil {
		t.Fatalf("RequestRaw: %v", err)
	}
	if string(raw) != `[{"count":9}]` {
		t.Fatalf("raw = %s", raw)
	}
}
