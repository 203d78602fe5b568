// internal/guestbook/service.go
//
// Guestbook service: cached list reads plus optimistic posting.
//
/*
Context
--------
List() serves the message list from a stale-window cache, flattening the
backend's double envelope on ingest.

Post() is an explicit state machine rather than ad hoc snapshot
variables:

	Pending ──(backend accepts)──▶ Committed
	   │
	   └────(backend rejects)────▶ RolledBack

The provisional message is appended to the shared cached list *before*
the network call, so readers see it immediately.  On failure the list is
restored to its pre-submission contents, a compare-and-restore rather
than a lock held across I/O.
*/
package guestbook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/content"
	"github.com/yanizio/folio/internal/fetch"
)

// ErrTextBounds is returned for empty or over-long message text.
var ErrTextBounds = fmt.Errorf("message text must be 1–%d characters", MaxMessageRunes)

//
// Post state machine
//

// Phase is one state of an optimistic post.
type Phase int32

const (
	PhasePending Phase = iota
	PhaseCommitted
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseCommitted:
		return "committed"
	default:
		return "rolledBack"
	}
}

// PostState tracks one mutation from provisional insert to settlement.
type PostState struct {
	mu    sync.Mutex
	phase Phase
	msg   Message
	err   error
}

func (ps *PostState) Phase() Phase {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.phase
}

// Message returns the provisional message while Pending and the backend's
// echo once Committed.
func (ps *PostState) Message() Message {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.msg
}

func (ps *PostState) Err() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.err
}

func (ps *PostState) settle(phase Phase, msg Message, err error) {
	ps.mu.Lock()
	ps.phase = phase
	ps.msg = msg
	ps.err = err
	ps.mu.Unlock()
}

//
// Service
//

// Service reads and writes the remote guestbook backend.
type Service struct {
	client  *fetch.Client
	url     string
	retries int
	policy  content.CachePolicy

	mu        sync.Mutex
	cached    []Message
	haveCache bool
	fetchedAt time.Time
}

// New returns a Service bound to the guestbook endpoint.
func New(client *fetch.Client, url string, policy content.CachePolicy, retries int) *Service {
	return &Service{client: client, url: url, policy: policy, retries: retries}
}

// List returns messages newest-last, as the backend orders them.
func (s *Service) List(ctx context.Context) ([]Message, error) {
	s.mu.Lock()
	if s.haveCache && time.Since(s.fetchedAt) <= s.policy.StaleTime {
		out := append([]Message(nil), s.cached...)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	env, err := fetch.RequestValidated(ctx, s.client, s.url, http.MethodGet, listSchema,
		fetch.Options{Retries: s.retries}, nil, nil)
	if err != nil {
		return nil, err
	}
	msgs := env.JSON.JSON
	if msgs == nil {
		msgs = []Message{}
	}

	s.mu.Lock()
	s.cached = msgs
	s.haveCache = true
	s.fetchedAt = time.Now()
	out := append([]Message(nil), s.cached...)
	s.mu.Unlock()
	return out, nil
}

// Post submits a message optimistically.  The returned PostState is
// settled by the time Post returns; its error (also returned) is nil only
// when the phase is Committed.
func (s *Service) Post(ctx context.Context, text, author string, email *string) (*PostState, error) {
	if text == "" || utf8.RuneCountInString(text) > MaxMessageRunes {
		return nil, ErrTextBounds
	}
	if author == "" {
		author = "anonymous"
	}

	provisional := Message{
		ID:        uuid.NewString(),
		Text:      text,
		Author:    author,
		CreatedAt: time.Now().UTC(),
		Email:     email,
	}

	// Optimistic insert: readers see the message before settlement.
	s.mu.Lock()
	snapshot := append([]Message(nil), s.cached...)
	hadCache := s.haveCache
	s.cached = append(s.cached, provisional)
	s.haveCache = true
	s.mu.Unlock()

	ps := &PostState{phase: PhasePending, msg: provisional}

	echo, err := fetch.RequestValidated(ctx, s.client, s.url, http.MethodPost, messageSchema,
		fetch.Options{Retries: s.retries}, nil, provisional)
	if err != nil {
		// Compare-and-restore: drop the provisional entry.
		s.mu.Lock()
		s.cached = snapshot
		s.haveCache = hadCache
		s.mu.Unlock()
		ps.settle(PhaseRolledBack, provisional, err)
		zap.S().Warnw("guestbook post rolled back", "id", provisional.ID, "err", err)
		return ps, err
	}

	// Replace the provisional entry with the backend's echo.
	s.mu.Lock()
	for i := range s.cached {
		if s.cached[i].ID == provisional.ID {
			s.cached[i] = echo
			break
		}
	}
	s.mu.Unlock()

	ps.settle(PhaseCommitted, echo, nil)
	return ps, nil
}

// IsTextBounds reports whether err is the length-bound failure, so the
// HTTP layer can map it to 422 instead of 502.
func IsTextBounds(err error) bool { return errors.Is(err, ErrTextBounds) }
