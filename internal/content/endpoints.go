// internal/content/endpoints.go
//
// Single source of truth for logical-content-type → endpoint mapping and
// the shared cache policy.
//
// Context
// -------
// Paths are relative to the CMS base URL from config.  `featuredProjects`
// shares the projects path with a fixed filter parameter.  The map is
// unexported; Endpoint() hands out copies so nothing can mutate the
// mapping after init.
//
// The cache policy is shared by every content type.  RefetchInterval is
// zero on purpose: background polling against the CMS free tier trips its
// rate limits, so refreshes are driven by staleness at access time only.
package content

import (
	"time"

	"github.com/yanizio/folio/internal/fetch"
)

// Type names one logical content collection.
type Type string

const (
	Experiences      Type = "experiences"
	Projects         Type = "projects"
	FeaturedProjects Type = "featuredProjects"
	Certifications   Type = "certifications"
	Places           Type = "places"
	ResumeDoc        Type = "resume"
)

// Endpoint is one logical-type → path binding.
type EndpointDef struct {
	Path  string
	Query fetch.Query
}

var endpoints = map[Type]EndpointDef{
	Experiences:      {Path: "/content/experiences"},
	Projects:         {Path: "/content/projects"},
	FeaturedProjects: {Path: "/content/projects", Query: fetch.Query{"featured": "true"}},
	Certifications:   {Path: "/content/certifications"},
	Places:           {Path: "/content/places"},
	ResumeDoc:        {Path: "/content/resume"},
}

// Endpoint returns the binding for t.  The Query map is copied.
func Endpoint(t Type) (EndpointDef, bool) {
	def, ok := endpoints[t]
	if !ok {
		return EndpointDef{}, false
	}
	if def.Query != nil {
		q := make(fetch.Query, len(def.Query))
		for k, v := range def.Query {
			q[k] = v
		}
		def.Query = q
	}
	return def, true
}

// Types lists every registered logical type.
func Types() []Type {
	out := make([]Type, 0, len(endpoints))
	for t := range endpoints {
		out = append(out, t)
	}
	return out
}

//
// Cache policy
//

// CachePolicy mirrors staleTime/gcTime semantics for the query store.
type CachePolicy struct {
	StaleTime       time.Duration // serve-and-refresh window
	GCTime          time.Duration // idle eviction horizon
	RefetchInterval time.Duration // 0 = background polling disabled
}

// DefaultPolicy is shared by all content types.
var DefaultPolicy = CachePolicy{
	StaleTime:       5 * time.Minute,
	GCTime:          30 * time.Minute,
	RefetchInterval: 0,
}
