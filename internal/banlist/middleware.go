// internal/banlist/middleware.go
//
// Chi middleware that enforces the ban gate before a request proceeds.
// Sits after requestinfo.Enrich so the client IP is already extracted.
package banlist

import (
	"net/http"

	"github.com/yanizio/folio/internal/metrics"
	"github.com/yanizio/folio/internal/requestinfo"
)

// Middleware rejects banned identifiers with 403.  Slowmode is advisory
// and enforced per-route (guestbook posting), not here.
func Middleware(gate *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestinfo.ClientID(r)
			if gate.IsBanned(r.Context(), id) {
				metrics.BanDeniedTotal.Inc()
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
