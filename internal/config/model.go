// internal/config/model.go
//
// Typed configuration model for Folio.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `FOLIO_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* validation, so the model never
// stores Vault URIs—only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.  Third-party SaaS credentials are opaque:
// we check presence, never shape.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "strings"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Database section
//

// Database holds the DSN for the ban-list store.
//
// The *template* (`BanDSN`) is kept in YAML so operators can tweak host,
// port, or flags without touching Vault.  The *secret* portion
// (`BanPassword`) may be a `vault:` reference, keeping credentials out of
// flat files and git history.
type Database struct {
	BanDSN      string `koanf:"ban_dsn"      validate:"required"`
	BanPassword string `koanf:"ban_password" validate:"required"`
}

// DSN substitutes the resolved password into the template.  The template
// marks the insertion point with `__PASSWORD__`.
func (d Database) DSN() string {
	return strings.Replace(d.BanDSN, "__PASSWORD__", d.BanPassword, 1)
}

//
// CMS section
//

// CMS points the fetch layer at the headless content backend.  Token is
// opaque; BaseURL carries project and dataset already baked into the path.
type CMS struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	Token   string `koanf:"token"    validate:"required"`
}

//
// Upstream feed sections
//

// Sponsors is the sponsor-data endpoint (login handles, tiers, totals).
type Sponsors struct {
	URL   string `koanf:"url"   validate:"required,url"`
	Token string `koanf:"token" validate:"required"`
}

// Guestbook is the remote message backend (double-wrapped list envelope).
type Guestbook struct {
	URL string `koanf:"url" validate:"required,url"`
}

//
// Presence section
//

// Presence configures the websocket cursor overlay.
type Presence struct {
	Room           string   `koanf:"room" validate:"required"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

//
// Opaque SaaS credentials
//

// Services collects third-party keys the app only ever forwards.  Presence
// is validated; shape is not.
type Services struct {
	AnalyticsKey string `koanf:"analytics_key" validate:"required"`
	PaymentsKey  string `koanf:"payments_key"  validate:"required"`
	AuthSecret   string `koanf:"auth_secret"   validate:"required"`
}

//
// GeoIP section
//

// GeoIP locates the optional MaxMind database used by requestinfo.  Empty
// path disables geolocation; the middleware degrades to IP-only metadata.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or FOLIO_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // FOLIO_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	CMS       CMS       `koanf:"cms"`
	Sponsors  Sponsors  `koanf:"sponsors"`
	Guestbook Guestbook `koanf:"guestbook"`
	Presence  Presence  `koanf:"presence"`
	Services  Services  `koanf:"services"`
	GeoIP     GeoIP     `koanf:"geoip"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}
