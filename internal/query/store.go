// internal/query/store.go
//
// Cached query layer: binds endpoint + schema + cache policy per content
// type and exposes the result in two consumption modes.
//
/*
Context
--------
The Store keeps one result envelope per content type in a sync.Map,
loading lazily through singleflight so concurrent first hits share a
single upstream request.  An envelope records the raw validated payload,
when it settled, and its validation state.

Two access modes mirror the two hook flavors:

  • Snapshot(t) never blocks.  It returns {Data, Loading, Err} and, when
    the envelope is missing or stale, kicks off a detached background
    load.  Callers poll on their own cadence.
  • Get(ctx, t) blocks until an envelope settles, returning data or the
    typed error.  A stale-but-valid envelope is served immediately while
    a background refresh runs.

Staleness is access-driven only; there is no polling loop (see
content.DefaultPolicy).  Idle envelopes are dropped by the evictor after
GCTime.

Concurrency
-----------
Envelopes are replaced whole via atomic.Pointer; lastSeen rides an int64
touched on every access.  Background loads use context.Background since
they outlive the triggering request.
*/
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/folio/internal/content"
	"github.com/yanizio/folio/internal/fetch"
	"github.com/yanizio/folio/internal/metrics"
)

// EvictInterval is how often the evictor scans for idle envelopes.
const EvictInterval = time.Minute

// ErrNotFound is returned by client-side by-ID lookups that miss.  It is
// distinct from a backend 404, which surfaces as a fetch status error.
var ErrNotFound = errors.New("item not found")

// ErrUnknownType is returned for content types with no registered endpoint.
var ErrUnknownType = errors.New("unknown content type")

//
// Envelope
//

// State classifies how an envelope settled.
type State string

const (
	StateValid           State = "valid"
	StateValidationError State = "validationError"
	StateNetworkError    State = "networkError"
)

// Envelope is one settled query result.
type Envelope struct {
	Data      json.RawMessage
	State     State
	Err       error
	FetchedAt time.Time
}

// Snapshot is the non-blocking view handed to eager callers.
type Snapshot struct {
	Data    json.RawMessage
	Loading bool
	Err     error
}

type entry struct {
	env      atomic.Pointer[Envelope]
	loading  atomic.Bool
	lastSeen int64 // UnixNano
}

//
// Store
//

// Store caches one envelope per content type.
type Store struct {
	client  *fetch.Client
	baseURL string
	policy  content.CachePolicy
	retries int

	sfg         singleflight.Group
	m           sync.Map // content.Type → *entry
	evictTicker *time.Ticker
	done        chan struct{}
}

// New constructs a Store and starts the background evictor.
func New(client *fetch.Client, baseURL string, policy content.CachePolicy, retries int) *Store {
	s := &Store{
		client:  client,
		baseURL: baseURL,
		policy:  policy,
		retries: retries,
		done:    make(chan struct{}),
	}
	s.evictTicker = time.NewTicker(EvictInterval)
	go s.evictLoop()
	return s
}

// Close stops the evictor.  Cached envelopes are left for GC.
func (s *Store) Close() {
	s.evictTicker.Stop()
	close(s.done)
}

// Get blocks until an envelope for t settles.  Valid envelopes are served
// from cache; stale ones trigger a detached refresh after returning.
func (s *Store) Get(ctx context.Context, t content.Type) (json.RawMessage, error) {
	ent := s.entryFor(t)
	atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())

	if env := ent.env.Load(); env != nil && env.State == StateValid {
		if s.stale(env) {
			s.refreshAsync(t)
		}
		return env.Data, nil
	}

	env, err := s.load(ctx, t)
	if err != nil {
		return nil, err
	}
	if env.Err != nil {
		return nil, env.Err
	}
	return env.Data, nil
}

// Snapshot returns the eager view and triggers a background load when the
// envelope is missing or stale.  It never blocks.
func (s *Store) Snapshot(t content.Type) Snapshot {
	ent := s.entryFor(t)
	atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())

	env := ent.env.Load()
	switch {
	case env == nil:
		s.refreshAsync(t)
		return Snapshot{Loading: true}
	case env.State == StateValid:
		if s.stale(env) {
			s.refreshAsync(t)
		}
		return Snapshot{Data: env.Data}
	default:
		if s.stale(env) {
			s.refreshAsync(t)
		}
		return Snapshot{Err: env.Err}
	}
}

// Invalidate drops the envelope for t so the next access reloads.
func (s *Store) Invalidate(t content.Type) {
	if _, ok := s.m.LoadAndDelete(t); ok {
		metrics.ActiveEnvelopes.Dec()
	}
}

//
// internals
//

func (s *Store) entryFor(t content.Type) *entry {
	if v, ok := s.m.Load(t); ok {
		return v.(*entry)
	}
	v, loaded := s.m.LoadOrStore(t, &entry{lastSeen: time.Now().UnixNano()})
	if !loaded {
		metrics.ActiveEnvelopes.Inc()
	}
	return v.(*entry)
}

func (s *Store) stale(env *Envelope) bool {
	return time.Since(env.FetchedAt) > s.policy.StaleTime
}

// refreshAsync starts a detached load unless one is already in flight.
func (s *Store) refreshAsync(t content.Type) {
	ent := s.entryFor(t)
	if !ent.loading.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer ent.loading.Store(false)
		if _, err := s.load(context.Background(), t); err != nil {
			zap.S().Debugw("background refresh failed", "type", t, "err", err)
		}
	}()
}

// load settles one envelope through singleflight.  The returned error is
// non-nil only for unknown types or a canceled context; fetch failures
// are recorded inside the envelope.
func (s *Store) load(ctx context.Context, t content.Type) (*Envelope, error) {
	v, err, _ := s.sfg.Do(string(t), func() (interface{}, error) {
		def, ok := content.Endpoint(t)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
		}

		raw, ferr := s.client.Request(ctx, s.baseURL+def.Path, http.MethodGet, fetch.Options{
			Retries: s.retries,
			Schema:  content.SchemaFor(t),
		}, def.Query, nil)

		env := &Envelope{FetchedAt: time.Now()}
		if ferr != nil {
			env.Err = ferr
			if fetch.KindOf(ferr) == fetch.KindValidation {
				env.State = StateValidationError
			} else {
				env.State = StateNetworkError
			}
		} else {
			env.Data = raw
			env.State = StateValid
		}

		ent := s.entryFor(t)
		ent.env.Store(env)
		atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
		metrics.QueryLoadTotal.Inc()
		return env, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Envelope), nil
}
