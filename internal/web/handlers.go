// internal/web/handlers.go
//
// HTTP handlers over the injected services.  Content endpoints pass the
// store's validated raw envelopes straight through; everything else
// shapes a small JSON response.  Failures map to:
//
//	ErrNotFound            → 404
//	transport failure      → 504
//	status/parse/validation → 502
//
// so a client can always tell "we broke" from "upstream broke".
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/banlist"
	"github.com/yanizio/folio/internal/content"
	"github.com/yanizio/folio/internal/fetch"
	"github.com/yanizio/folio/internal/guestbook"
	"github.com/yanizio/folio/internal/presence"
	"github.com/yanizio/folio/internal/query"
	"github.com/yanizio/folio/internal/requestinfo"
	"github.com/yanizio/folio/internal/sponsors"
)

// slowInterval is the minimum gap between guestbook posts for slowed
// identifiers.
const slowInterval = 30 * time.Second

// Route-local aliases keep the route table readable.
const (
	contentExperiences    = content.Experiences
	contentProjects       = content.Projects
	contentFeatured       = content.FeaturedProjects
	contentCertifications = content.Certifications
	contentPlaces         = content.Places
	contentResume         = content.ResumeDoc
)

type handlers struct {
	d Deps

	slowMu   sync.Mutex
	lastPost map[string]time.Time
}

func newHandlers(d Deps) *handlers {
	return &handlers{d: d, lastPost: make(map[string]time.Time)}
}

//
// Content
//

// content serves one cached collection as-is.
func (h *handlers) content(t content.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := h.d.Store.Get(r.Context(), t)
		if err != nil {
			h.upstreamError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(raw)
	}
}

func (h *handlers) projectBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := query.BySlug[content.Project](r.Context(), h.d.Store, content.Projects, slug)
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

//
// Sponsors
//

func (h *handlers) sponsorList(w http.ResponseWriter, r *http.Request) {
	feed, err := h.d.Sponsors.Feed(r.Context())
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	current, past := sponsors.Partition(feed.Sponsors)
	writeJSON(w, http.StatusOK, map[string]any{
		"sponsors":           feed.Sponsors,
		"totalCount":         feed.TotalCount,
		"totalMonthlyIncome": feed.TotalMonthlyIncome,
		"current":            current,
		"past":               past,
	})
}

//
// Guestbook
//

func (h *handlers) guestbookList(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.d.Guestbook.List(r.Context())
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type guestbookPostBody struct {
	Text   string  `json:"text"`
	Author string  `json:"author"`
	Email  *string `json:"email,omitempty"`
}

func (h *handlers) guestbookPost(w http.ResponseWriter, r *http.Request) {
	id := requestinfo.ClientID(r)
	if h.d.Gate.IsSlowed(r.Context(), id) && !h.allowSlowed(id) {
		http.Error(w, "slow mode: wait before posting again", http.StatusTooManyRequests)
		return
	}

	var body guestbookPostBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}

	ps, err := h.d.Guestbook.Post(r.Context(), body.Text, body.Author, body.Email)
	if err != nil {
		if guestbook.IsTextBounds(err) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.upstreamError(w, err)
		return
	}
	h.markPosted(id)
	writeJSON(w, http.StatusCreated, ps.Message())
}

// allowSlowed reports whether a slowed identifier is past its interval.
func (h *handlers) allowSlowed(id string) bool {
	h.slowMu.Lock()
	defer h.slowMu.Unlock()
	last, ok := h.lastPost[id]
	return !ok || time.Since(last) >= slowInterval
}

func (h *handlers) markPosted(id string) {
	h.slowMu.Lock()
	h.lastPost[id] = time.Now()
	h.slowMu.Unlock()
}

//
// Presence
//

func (h *handlers) presenceWS(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = h.d.Cfg.Presence.Room
	}
	presence.ServeWS(h.d.Hub, h.d.Upgrader, w, r, room)
}

//
// Admin ban routes
//

// requireAdmin guards the ban surface with the shared admin secret.
func (h *handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(tok), []byte(h.d.Cfg.Services.AuthSecret)) != 1 {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type banBody struct {
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
	TTLSec int64  `json:"ttlSec,omitempty"`
}

func (h *handlers) banIP(w http.ResponseWriter, r *http.Request) {
	h.banTarget(w, r, h.d.Gate.BanIP)
}

func (h *handlers) banCIDR(w http.ResponseWriter, r *http.Request) {
	h.banTarget(w, r, h.d.Gate.BanCIDR)
}

func (h *handlers) slowIP(w http.ResponseWriter, r *http.Request) {
	h.banTarget(w, r, h.d.Gate.Slow)
}

func (h *handlers) banTarget(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, target string, meta banlist.Meta, ttl time.Duration) error) {

	var body banBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Target == "" {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	meta := banlist.Meta{Reason: body.Reason, Actor: "admin", At: time.Now().UTC()}
	if err := op(r.Context(), body.Target, meta, time.Duration(body.TTLSec)*time.Second); err != nil {
		zap.S().Errorw("ban op failed", "target", body.Target, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) unbanIP(w http.ResponseWriter, r *http.Request) {
	h.unbanTarget(w, r, chi.URLParam(r, "ip"), h.d.Gate.UnbanIP)
}

func (h *handlers) unbanCIDR(w http.ResponseWriter, r *http.Request) {
	// The prefix slash arrives percent-encoded in the path segment.
	cidr, err := url.PathUnescape(chi.URLParam(r, "cidr"))
	if err != nil {
		http.Error(w, "malformed target", http.StatusBadRequest)
		return
	}
	h.unbanTarget(w, r, cidr, h.d.Gate.UnbanCIDR)
}

func (h *handlers) unslowIP(w http.ResponseWriter, r *http.Request) {
	h.unbanTarget(w, r, chi.URLParam(r, "ip"), h.d.Gate.Unslow)
}

func (h *handlers) unbanTarget(w http.ResponseWriter, r *http.Request, target string,
	op func(ctx context.Context, target string) error) {

	if target == "" {
		http.Error(w, "missing target", http.StatusBadRequest)
		return
	}
	if err := op(r.Context(), target); err != nil {
		zap.S().Errorw("unban op failed", "target", target, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

//
// helpers
//

func (h *handlers) upstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, query.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case fetch.KindOf(err) == fetch.KindTransport:
		http.Error(w, "upstream unreachable", http.StatusGatewayTimeout)
	default:
		zap.S().Warnw("upstream error", "err", err)
		http.Error(w, "upstream error", http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("response encode failed", "err", err)
	}
}
