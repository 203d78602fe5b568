// internal/banlist/gate.go
//
// Ban/slowmode gate: membership checks before a request proceeds, plus
// administrative add/remove operations.
//
/*
Context
--------
Checks fail open: a storage error is logged and counted, and the caller
is treated as not banned / not slowed.  Blocking legitimate traffic on an
outage is worse than letting a banned address through for its duration.
Loopback identifiers are always exempt.

Removal deletes the membership and its metadata as two operations awaited
together; the backend offers no transactional primitive spanning both,
and a half-removed entry is harmless (membership drives the gate,
metadata is advisory).
*/
package banlist

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/metrics"
)

// Meta is optional administrative context attached to a ban/slow entry.
type Meta struct {
	Reason string    `json:"reason,omitempty"`
	Actor  string    `json:"actor,omitempty"`
	At     time.Time `json:"at"`
}

// Gate answers "may this identifier proceed?" against a KeyedStore.
type Gate struct {
	store KeyedStore
}

// NewGate wraps a store.
func NewGate(store KeyedStore) *Gate { return &Gate{store: store} }

//
// Checks (fail open)
//

// IsBanned reports whether id is in the exact-IP set or covered by a
// banned CIDR.  Loopback is always exempt; storage errors fail open.
func (g *Gate) IsBanned(ctx context.Context, id string) bool {
	if isLoopback(id) {
		return false
	}

	hit, err := g.store.SetContains(ctx, KeyBannedIPs, id)
	if err != nil {
		g.failOpen("ip membership", err)
		return false
	}
	if hit {
		return true
	}

	ip := net.ParseIP(id)
	if ip == nil {
		return false
	}
	cidrs, err := g.store.SetMembers(ctx, KeyBannedCIDRs)
	if err != nil {
		g.failOpen("cidr members", err)
		return false
	}
	for _, c := range cidrs {
		_, ipnet, perr := net.ParseCIDR(c)
		if perr != nil {
			continue // tolerate junk entries
		}
		if ipnet.Contains(ip) {
			return true
		}
	}
	return false
}

// IsSlowed reports slowmode membership.  Same exemption and fail-open
// rules as IsBanned.
func (g *Gate) IsSlowed(ctx context.Context, id string) bool {
	if isLoopback(id) {
		return false
	}
	hit, err := g.store.SetContains(ctx, KeySlowed, id)
	if err != nil {
		g.failOpen("slow membership", err)
		return false
	}
	return hit
}

//
// Administration
//

// BanIP adds id to the exact-IP set with optional metadata and expiry.
func (g *Gate) BanIP(ctx context.Context, id string, meta Meta, ttl time.Duration) error {
	if err := g.store.SetAdd(ctx, KeyBannedIPs, id); err != nil {
		return err
	}
	return g.putMeta(ctx, id, meta, ttl)
}

// UnbanIP removes membership and metadata, both awaited.
func (g *Gate) UnbanIP(ctx context.Context, id string) error {
	if err := g.store.SetRemove(ctx, KeyBannedIPs, id); err != nil {
		return err
	}
	return g.store.DeleteValue(ctx, MetaKey(id))
}

// BanCIDR adds a prefix ban.
func (g *Gate) BanCIDR(ctx context.Context, cidr string, meta Meta, ttl time.Duration) error {
	if _, _, err := net.ParseCIDR(cidr); err != nil {
		return err
	}
	if err := g.store.SetAdd(ctx, KeyBannedCIDRs, cidr); err != nil {
		return err
	}
	return g.putMeta(ctx, cidr, meta, ttl)
}

// UnbanCIDR removes a prefix ban and its metadata.
func (g *Gate) UnbanCIDR(ctx context.Context, cidr string) error {
	if err := g.store.SetRemove(ctx, KeyBannedCIDRs, cidr); err != nil {
		return err
	}
	return g.store.DeleteValue(ctx, MetaKey(cidr))
}

// Slow adds id to the slowmode set.
func (g *Gate) Slow(ctx context.Context, id string, meta Meta, ttl time.Duration) error {
	if err := g.store.SetAdd(ctx, KeySlowed, id); err != nil {
		return err
	}
	return g.putMeta(ctx, id, meta, ttl)
}

// Unslow removes id from the slowmode set and drops its metadata.
func (g *Gate) Unslow(ctx context.Context, id string) error {
	if err := g.store.SetRemove(ctx, KeySlowed, id); err != nil {
		return err
	}
	return g.store.DeleteValue(ctx, MetaKey(id))
}

// MetaFor returns the stored metadata for id, or nil when absent.
func (g *Gate) MetaFor(ctx context.Context, id string) (*Meta, error) {
	raw, err := g.store.GetValue(ctx, MetaKey(id))
	if err != nil || raw == nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

//
// internals
//

func (g *Gate) putMeta(ctx context.Context, id string, meta Meta, ttl time.Duration) error {
	if meta.At.IsZero() {
		meta.At = time.Now().UTC()
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return g.store.PutValue(ctx, MetaKey(id), raw, ttl)
}

func (g *Gate) failOpen(op string, err error) {
	metrics.BanCheckErrorsTotal.Inc()
	zap.S().Warnw("ban check failed open", "op", op, "err", err)
}

func isLoopback(id string) bool {
	if id == "localhost" {
		return true
	}
	ip := net.ParseIP(id)
	return ip != nil && ip.IsLoopback()
}
