package alerting

import (
	"sync"
	"time"
)

// CooldownTracker remembers when each rule last fired
type CooldownTracker struct {
	mu        sync.Mutex
	lastFired map[string]time.Time
	now       Clock
}

// NewCooldownTracker creates a tracker reading time from clock (time.Now when nil)
func NewCooldownTracker(clock Clock) *CooldownTracker {
	if clock == nil {
		clock = time.Now
	}
	return &CooldownTracker{
		lastFired: make(map[string]time.Time),
		now:       clock,
	}
}

// IsInCooldown reports whether ruleID fired less than cooldownMinutes ago.
// A rule that never fired is never in cooldown.
func (t *CooldownTracker) IsInCooldown(ruleID string, cooldownMinutes int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastFired[ruleID]
	if !ok {
		return false
	}
	return t.now().Sub(last) < time.Duration(cooldownMinutes)*time.Minute
}

// RecordFiring overwrites the last-fired instant of ruleID
func (t *CooldownTracker) RecordFiring(ruleID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastFired[ruleID] = at
}

// LastFired returns when ruleID last fired
func (t *CooldownTracker) LastFired(ruleID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.lastFired[ruleID]
	return at, ok
}

// Reset forgets every recorded firing
func (t *CooldownTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastFired = make(map[string]time.Time)
}
