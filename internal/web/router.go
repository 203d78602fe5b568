// internal/web/router.go
//
// Route table and middleware chain.
//
// Chain order matters: requestinfo first so every later layer (the ban
// gate included) sees the extracted client IP, then security headers,
// then the gate.  ForceHTTPS wraps the whole router in main.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/yanizio/folio/internal/banlist"
	"github.com/yanizio/folio/internal/config"
	"github.com/yanizio/folio/internal/guestbook"
	"github.com/yanizio/folio/internal/middleware"
	"github.com/yanizio/folio/internal/presence"
	"github.com/yanizio/folio/internal/query"
	"github.com/yanizio/folio/internal/requestinfo"
	"github.com/yanizio/folio/internal/sponsors"
)

// Deps carries everything the handlers need, constructed once in main
// and injected here.  No package-level singletons.
type Deps struct {
	Cfg       *config.Config
	Store     *query.Store
	Sponsors  *sponsors.Service
	Guestbook *guestbook.Service
	Gate      *banlist.Gate
	Hub       *presence.Hub
	Upgrader  websocket.Upgrader
}

// Router assembles the chi mux.
func Router(d Deps) http.Handler {
	h := newHandlers(d)

	r := chi.NewRouter()
	r.Use(requestinfo.Enrich)
	r.Use(middleware.Security)
	r.Use(banlist.Middleware(d.Gate))

	r.Route("/api", func(r chi.Router) {
		r.Get("/experiences", h.content(contentExperiences))
		r.Get("/projects", h.content(contentProjects))
		r.Get("/projects/featured", h.content(contentFeatured))
		r.Get("/projects/{slug}", h.projectBySlug)
		r.Get("/certifications", h.content(contentCertifications))
		r.Get("/places", h.content(contentPlaces))
		r.Get("/resume", h.content(contentResume))

		r.Get("/sponsors", h.sponsorList)

		r.Get("/guestbook", h.guestbookList)
		r.Post("/guestbook", h.guestbookPost)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/bans/ip", h.banIP)
			r.Delete("/bans/ip/{ip}", h.unbanIP)
			r.Post("/bans/cidr", h.banCIDR)
			r.Delete("/bans/cidr/{cidr}", h.unbanCIDR)
			r.Post("/bans/slow", h.slowIP)
			r.Delete("/bans/slow/{ip}", h.unslowIP)
		})
	})

	r.Get("/ws/presence", h.presenceWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
