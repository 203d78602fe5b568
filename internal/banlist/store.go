// internal/banlist/store.go
//
// Keyed-set storage contract for the ban/slowmode gate.
//
// Context
// -------
// The gate keeps three membership sets and per-IP metadata under fixed
// key names:
//
//	ban:ips        – exact-address bans
//	ban:cidrs      – prefix bans
//	ban:slow       – slowmode identifiers
//	ban:meta:<ip>  – optional JSON metadata (reason, actor, timestamp)
//
// Any backend supporting set membership plus optional-TTL key operations
// can be substituted; the SQL and in-memory implementations below are the
// two we ship.
package banlist

import (
	"context"
	"time"
)

// Fixed key names.
const (
	KeyBannedIPs   = "ban:ips"
	KeyBannedCIDRs = "ban:cidrs"
	KeySlowed      = "ban:slow"
	metaPrefix     = "ban:meta:"
)

// MetaKey returns the metadata key for one identifier.
func MetaKey(ip string) string { return metaPrefix + ip }

// KeyedStore is the minimal storage surface the gate needs.
type KeyedStore interface {
	SetAdd(ctx context.Context, key, member string) error
	SetRemove(ctx context.Context, key, member string) error
	SetContains(ctx context.Context, key, member string) (bool, error)
	SetMembers(ctx context.Context, key string) ([]string, error)

	// PutValue with ttl == 0 stores without expiry.
	PutValue(ctx context.Context, key string, val []byte, ttl time.Duration) error
	GetValue(ctx context.Context, key string) ([]byte, error)
	DeleteValue(ctx context.Context, key string) error
}
