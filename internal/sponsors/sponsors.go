// internal/sponsors/sponsors.go
//
// Sponsor feed client and partitioning.
//
// Context
// -------
// The sponsor endpoint returns one JSON document:
//
//	{ "sponsors": [...], "totalCount": n, "totalMonthlyIncome": x }
//
// `isActive` partitions the sponsor set: every sponsor is either current
// or past at read time, never both.  The feed is cached under the shared
// content policy's stale window so page loads do not hammer the upstream.
package sponsors

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/yanizio/folio/internal/content"
	"github.com/yanizio/folio/internal/fetch"
	"github.com/yanizio/folio/internal/schema"
)

//
// Wire model
//

// Tier is a sponsorship level.
type Tier struct {
	Name         string  `json:"name"         validate:"required"`
	MonthlyPrice float64 `json:"monthlyPrice" validate:"gte=0"`
}

// Sponsor is one sponsoring account.
type Sponsor struct {
	Login       string  `json:"login"       validate:"required"`
	Name        *string `json:"name,omitempty"`
	AvatarURL   string  `json:"avatarUrl"   validate:"required,url"`
	ProfileURL  string  `json:"profileUrl"  validate:"required,url"`
	Tier        *Tier   `json:"tier,omitempty"`
	IsActive    bool    `json:"isActive"`
	AccountType string  `json:"accountType" validate:"required,oneof=user organization"`
}

// Feed is the full upstream document.
type Feed struct {
	Sponsors           []Sponsor `json:"sponsors"           validate:"dive"`
	TotalCount         int       `json:"totalCount"         validate:"gte=0"`
	TotalMonthlyIncome float64   `json:"totalMonthlyIncome" validate:"gte=0"`
}

// FeedSchema validates the sponsor document at the boundary.
var FeedSchema = schema.New[Feed]("sponsorFeed")

//
// Service
//

// Service fetches and caches the sponsor feed.
type Service struct {
	client  *fetch.Client
	url     string
	retries int
	policy  content.CachePolicy

	mu        sync.Mutex
	cached    *Feed
	fetchedAt time.Time
}

// New returns a Service reading from url through client.
func New(client *fetch.Client, url string, policy content.CachePolicy, retries int) *Service {
	return &Service{client: client, url: url, policy: policy, retries: retries}
}

// Feed returns the sponsor document, re-fetching when the cache is stale.
func (s *Service) Feed(ctx context.Context) (Feed, error) {
	s.mu.Lock()
	if s.cached != nil && time.Since(s.fetchedAt) <= s.policy.StaleTime {
		f := *s.cached
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()

	f, err := fetch.RequestValidated(ctx, s.client, s.url, http.MethodGet, FeedSchema,
		fetch.Options{Retries: s.retries}, nil, nil)
	if err != nil {
		return Feed{}, err
	}

	s.mu.Lock()
	s.cached = &f
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return f, nil
}

//
// Partitioning
//

// Partition splits sponsors into current and past by isActive.  The two
// slices are disjoint and their union is the input.
func Partition(all []Sponsor) (current, past []Sponsor) {
	current = make([]Sponsor, 0, len(all))
	past = make([]Sponsor, 0)
	for _, sp := range all {
		if sp.IsActive {
			current = append(current, sp)
		} else {
			past = append(past, sp)
		}
	}
	return current, past
}
