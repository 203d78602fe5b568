// internal/web/router_test.go
//
// End-to-end router tests: real chi mux, real services, httptest stubs
// for every upstream, MemStore-backed ban gate.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yanizio/folio/internal/banlist"
	"github.com/yanizio/folio/internal/config"
	"github.com/yanizio/folio/internal/content"
	"github.com/yanizio/folio/internal/fetch"
	"github.com/yanizio/folio/internal/guestbook"
	"github.com/yanizio/folio/internal/presence"
	"github.com/yanizio/folio/internal/query"
	"github.com/yanizio/folio/internal/sponsors"
)

const (
	adminToken = "test-admin-secret"

	projectsDoc = `[
		{"_id":"p1","_type":"project","_createdAt":"2024-01-01T00:00:00Z","_updatedAt":"2024-01-01T00:00:00Z","title":"One","slug":"one","category":"web","order":1,"featured":true},
		{"_id":"p2","_type":"project","_createdAt":"2024-01-01T00:00:00Z","_updatedAt":"2024-01-01T00:00:00Z","title":"Two","slug":"two","category":"cli","order":2}
	]`

	sponsorsDoc = `{
		"sponsors":[
			{"login":"acme","avatarUrl":"https://e.com/a.png","profileUrl":"https://e.com/acme","isActive":true,"accountType":"organization"},
			{"login":"bob","avatarUrl":"https://e.com/b.png","profileUrl":"https://e.com/bob","isActive":false,"accountType":"user"}
		],
		"totalCount":2,"totalMonthlyIncome":25
	}`
)

// newTestRouter wires the full stack against local upstream stubs.
func newTestRouter(t *testing.T) (http.Handler, *banlist.Gate) {
	t.Helper()

	cms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/content/projects":
			w.Write([]byte(projectsDoc))
		case "/content/experiences":
			w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(cms.Close)

	sponsorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sponsorsDoc))
	}))
	t.Cleanup(sponsorSrv.Close)

	guestSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"json":{"json":[{"id":"m1","text":"hey","author":"ada","createdAt":"2024-03-01T12:00:00Z"}]}}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Write(body) // echo the posted message
	}))
	t.Cleanup(guestSrv.Close)

	store := query.New(fetch.New(nil), cms.URL, content.DefaultPolicy, 0)
	t.Cleanup(store.Close)

	gate := banlist.NewGate(banlist.NewMemStore())
	hub := presence.NewHub()
	go hub.Run()

	cfg := &config.Config{}
	cfg.Presence.Room = "lobby"
	cfg.Services.AuthSecret = adminToken

	return Router(Deps{
		Cfg:       cfg,
		Store:     store,
		Sponsors:  sponsors.New(fetch.New(nil), sponsorSrv.URL, content.DefaultPolicy, 0),
		Guestbook: guestbook.New(fetch.New(nil), guestSrv.URL, content.DefaultPolicy, 0),
		Gate:      gate,
		Hub:       hub,
		Upgrader:  presence.Upgrader(nil),
	}), gate
}

func doReq(t *testing.T, h http.Handler, method, path string, body []byte, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestContentPassthrough(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doReq(t, h, http.MethodGet, "/api/projects", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	var ps []content.Project
	if err := json.Unmarshal(rec.Body.Bytes(), &ps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ps) != 2 || ps[0].Slug != "one" {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestProjectBySlug(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doReq(t, h, http.MethodGet, "/api/projects/two", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var p content.Project
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil || p.ID != "p2" {
		t.Fatalf("body = %s (%v)", rec.Body, err)
	}

	if rec := doReq(t, h, http.MethodGet, "/api/projects/nope", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("miss status = %d", rec.Code)
	}
}

func TestSponsorListShape(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doReq(t, h, http.MethodGet, "/api/sponsors", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var out struct {
		Sponsors           []sponsors.Sponsor `json:"sponsors"`
		TotalCount         int                `json:"totalCount"`
		TotalMonthlyIncome float64            `json:"totalMonthlyIncome"`
		Current            []sponsors.Sponsor `json:"current"`
		Past               []sponsors.Sponsor `json:"past"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalCount != 2 || len(out.Current) != 1 || len(out.Past) != 1 {
		t.Fatalf("body = %s", rec.Body)
	}
	if out.Current[0].Login != "acme" || out.Past[0].Login != "bob" {
		t.Fatalf("partition = %+v", out)
	}
}

func TestGuestbookListAndPost(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doReq(t, h, http.MethodGet, "/api/guestbook", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var msgs []guestbook.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil || len(msgs) != 1 {
		t.Fatalf("list body = %s (%v)", rec.Body, err)
	}

	body := []byte(`{"text":"hello from the test","author":"ada"}`)
	rec = doReq(t, h, http.MethodPost, "/api/guestbook", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("post status = %d: %s", rec.Code, rec.Body)
	}
	var posted guestbook.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &posted); err != nil || posted.Text != "hello from the test" {
		t.Fatalf("post body = %s (%v)", rec.Body, err)
	}
}

func TestGuestbookPostBounds(t *testing.T) {
	h, _ := newTestRouter(t)

	long := strings.Repeat("x", guestbook.MaxMessageRunes+1)
	body, _ := json.Marshal(map[string]string{"text": long, "author": "ada"})
	if rec := doReq(t, h, http.MethodPost, "/api/guestbook", body, nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over-long status = %d", rec.Code)
	}

	if rec := doReq(t, h, http.MethodPost, "/api/guestbook", []byte(`not json`), nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed status = %d", rec.Code)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	h, _ := newTestRouter(t)

	body := []byte(`{"target":"203.0.113.5"}`)
	if rec := doReq(t, h, http.MethodPost, "/api/admin/bans/ip", body, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no-token status = %d", rec.Code)
	}
	hdr := map[string]string{"X-Admin-Token": "wrong"}
	if rec := doReq(t, h, http.MethodPost, "/api/admin/bans/ip", body, hdr); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad-token status = %d", rec.Code)
	}
}

func TestBanLifecycleOverHTTP(t *testing.T) {
	h, _ := newTestRouter(t)
	admin := map[string]string{"X-Admin-Token": adminToken}
	const bannedIP = "203.0.113.5"

	// Ban via the admin surface.
	body := []byte(`{"target":"` + bannedIP + `","reason":"abuse"}`)
	if rec := doReq(t, h, http.MethodPost, "/api/admin/bans/ip", body, admin); rec.Code != http.StatusNoContent {
		t.Fatalf("ban status = %d: %s", rec.Code, rec.Body)
	}

	// The banned identifier is rejected by the gate middleware.
	xff := map[string]string{"X-Forwarded-For": bannedIP}
	if rec := doReq(t, h, http.MethodGet, "/api/projects", nil, xff); rec.Code != http.StatusForbidden {
		t.Fatalf("banned request status = %d", rec.Code)
	}

	// Other identifiers pass (httptest requests come from 192.0.2.1).
	if rec := doReq(t, h, http.MethodGet, "/api/projects", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("clean request status = %d", rec.Code)
	}

	// Unban restores access.
	if rec := doReq(t, h, http.MethodDelete, "/api/admin/bans/ip/"+bannedIP, nil, admin); rec.Code != http.StatusNoContent {
		t.Fatalf("unban status = %d", rec.Code)
	}
	if rec := doReq(t, h, http.MethodGet, "/api/projects", nil, xff); rec.Code != http.StatusOK {
		t.Fatalf("post-unban status = %d", rec.Code)
	}
}

func TestSlowmodeThrottlesPosts(t *testing.T) {
	h, gate := newTestRouter(t)
	const slowedIP = "198.51.100.9"

	if err := gate.Slow(context.Background(), slowedIP, banlist.Meta{}, 0); err != nil {
		t.Fatalf("Slow: %v", err)
	}

	hdr := map[string]string{"X-Forwarded-For": slowedIP}
	body := []byte(`{"text":"first","author":"eve"}`)

	if rec := doReq(t, h, http.MethodPost, "/api/guestbook", body, hdr); rec.Code != http.StatusCreated {
		t.Fatalf("first post status = %d: %s", rec.Code, rec.Body)
	}
	if rec := doReq(t, h, http.MethodPost, "/api/guestbook", body, hdr); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second post status = %d, want 429", rec.Code)
	}

	// Unslowed identifiers post freely back to back.
	if rec := doReq(t, h, http.MethodPost, "/api/guestbook", body, nil); rec.Code != http.StatusCreated {
		t.Fatalf("free post status = %d", rec.Code)
	}
	if rec := doReq(t, h, http.MethodPost, "/api/guestbook", body, nil); rec.Code != http.StatusCreated {
		t.Fatalf("second free post status = %d", rec.Code)
	}
}

func TestUpstreamFailureMapping(t *testing.T) {
	// A dead CMS maps to 504, not 500.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	store := query.New(fetch.New(nil), dead.URL, content.DefaultPolicy, 0)
	t.Cleanup(store.Close)

	gate := banlist.NewGate(banlist.NewMemStore())
	hub := presence.NewHub()
	go hub.Run()

	cfg := &config.Config{}
	cfg.Services.AuthSecret = adminToken

	h := Router(Deps{
		Cfg:       cfg,
		Store:     store,
		Sponsors:  sponsors.New(fetch.New(nil), dead.URL, content.DefaultPolicy, 0),
		Guestbook: guestbook.New(fetch.New(nil), dead.URL, content.DefaultPolicy, 0),
		Gate:      gate,
		Hub:       hub,
		Upgrader:  presence.Upgrader(nil),
	})

	if rec := doReq(t, h, http.MethodGet, "/api/projects", nil, nil); rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("dead upstream status = %d, want 504", rec.Code)
	}
}

func TestSecurityHeadersAndHealth(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doReq(t, h, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("nosniff header missing")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("CSP header missing")
	}
}
