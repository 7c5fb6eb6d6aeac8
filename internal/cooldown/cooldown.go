// Package cooldown gates rule firing. Eligibility is a daily, calendar-day
// policy: a rule may fire at most once per day, regardless of its
// cooldown_minutes field, which is carried as data but not consulted here.
// A Redis per-day guard makes the gate atomic across concurrent fires.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// guardTTL keeps guard keys around long enough to cover clock skew between
// writers, then lets Redis reclaim them.
const guardTTL = 48 * time.Hour

// Eligible reports whether a rule that last fired at lastFired may fire
// again at now. A rule that never fired is always eligible; otherwise it is
// eligible only on a different calendar day than its last firing.
func Eligible(lastFired *time.Time, now time.Time) bool {
	if lastFired == nil {
		return true
	}
	y1, m1, d1 := lastFired.Date()
	y2, m2, d2 := now.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// Guard is the atomic per-day firing lock. Two concurrent evaluations of
// the same rule (a scheduled cycle racing a live test fire) both pass the
// timestamp check; only one acquires the guard.
type Guard struct {
	client *redis.Client
}

// NewGuard creates a Redis-backed firing guard.
func NewGuard(client *redis.Client) *Guard {
	return &Guard{client: client}
}

// Acquire claims the rule's firing slot for the calendar day containing
// now. It returns true exactly once per rule per day.
func (g *Guard) Acquire(ctx context.Context, ruleID string, now time.Time) (bool, error) {
	key := guardKey(ruleID, now)
	ok, err := g.client.SetNX(ctx, key, now.UTC().Format(time.RFC3339), guardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire firing guard: %w", err)
	}
	return ok, nil
}

// Release frees the rule's firing slot, used when a fire aborts after
// acquiring the guard (empty audience, lost last-fired race).
func (g *Guard) Release(ctx context.Context, ruleID string, now time.Time) error {
	if err := g.client.Del(ctx, guardKey(ruleID, now)).Err(); err != nil {
		return fmt.Errorf("failed to release firing guard: %w", err)
	}
	return nil
}

func guardKey(ruleID string, now time.Time) string {
	return fmt.Sprintf("cooldown:%s:%s", ruleID, now.Format("2006-01-02"))
}
