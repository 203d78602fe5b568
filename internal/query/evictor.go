// evictor.go houses the eviction loop for Store.  Every EvictInterval it
// scans the map and removes envelopes idle longer than the policy's
// GCTime.  Each eviction is logged and updates Prometheus counters.
package query

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/metrics"
)

func (s *Store) evictLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.evictTicker.C:
		}

		now := time.Now().UnixNano()
		s.m.Range(func(key, value any) bool {
			ent := value.(*entry)
			idle := time.Duration(now - atomic.LoadInt64(&ent.lastSeen))
			if idle > s.policy.GCTime {
				s.m.Delete(key)
				zap.S().Infow("envelope evicted",
					"type", key, "idle", idle.Truncate(time.Second).String())
				metrics.QueryEvictTotal.Inc()
				metrics.ActiveEnvelopes.Dec()
			}
			return true
		})
	}
}
