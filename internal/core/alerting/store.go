package alerting

import (
	"sync"
	"time"
)

// EventType names a store mutation
type EventType string

const (
	EventAlertsFired       EventType = "alerts_fired"
	EventAlertAcknowledged EventType = "alert_acknowledged"
	EventAlertResolved     EventType = "alert_resolved"
	EventAlertsCleared     EventType = "alerts_cleared"
	EventMonitoringChanged EventType = "monitoring_status"
)

// Event describes a mutation that already happened
type Event struct {
	Type       EventType `json:"type"`
	Alerts     []Alert   `json:"alerts,omitempty"`
	Monitoring bool      `json:"monitoring"`
	Timestamp  time.Time `json:"timestamp"`
}

// State is a point-in-time copy of everything the store holds
type State struct {
	ActiveAlerts  []Alert    `json:"activeAlerts"`
	AlertHistory  []Alert    `json:"alertHistory"`
	IsMonitoring  bool       `json:"isMonitoring"`
	LastCheckTime *time.Time `json:"lastCheckTime"`
	LastError     string     `json:"lastError,omitempty"`
}

// Summary holds the derived counts shown on the dashboard
type Summary struct {
	TotalActive    int        `json:"totalActive"`
	Critical       int        `json:"critical"`
	High           int        `json:"high"`
	Unacknowledged int        `json:"unacknowledged"`
	HistorySize    int        `json:"historySize"`
	IsMonitoring   bool       `json:"isMonitoring"`
	LastCheckTime  *time.Time `json:"lastCheckTime"`
	LastError      string     `json:"lastError,omitempty"`
}

// Store is the single source of truth for alert state. Active alerts and
// history share the same records, so an acknowledgement is visible in both.
// Both lists are newest first.
type Store struct {
	mu            sync.RWMutex
	active        []*Alert
	history       []*Alert
	byID          map[string]*Alert
	monitoring    bool
	lastCheckTime *time.Time
	lastError     string
	now           Clock

	listeners []func(Event)
}

// NewStore creates an empty store reading time from clock (time.Now when nil)
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		byID: make(map[string]*Alert),
		now:  clock,
	}
}

// OnChange registers a listener called after every mutation. Listeners run
// on the mutating goroutine and must not block.
func (s *Store) OnChange(listener func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Append adds a batch of new alerts to the active set and to history and
// stamps the check time.
func (s *Store) Append(alerts []Alert, checkedAt time.Time) {
	s.mu.Lock()

	added := make([]*Alert, 0, len(alerts))
	for i := range alerts {
		a := alerts[i]
		s.byID[a.ID] = &a
		added = append(added, &a)
	}
	s.active = append(added, s.active...)
	s.history = append(append([]*Alert{}, added...), s.history...)
	s.setCheckTime(checkedAt)

	event := Event{Type: EventAlertsFired, Alerts: copyAlerts(added), Monitoring: s.monitoring, Timestamp: checkedAt}
	listeners := s.listeners
	s.mu.Unlock()

	if len(alerts) > 0 {
		notify(listeners, event)
	}
}

// MarkChecked stamps the check time without adding alerts
func (s *Store) MarkChecked(checkedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCheckTime(checkedAt)
}

// SetLastError records the most recent pass failure; "" clears it
func (s *Store) SetLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

// Acknowledge marks an alert as seen. Unknown ids and repeated calls are no-ops;
// the return value reports whether anything changed.
func (s *Store) Acknowledge(alertID string) bool {
	s.mu.Lock()

	a, ok := s.byID[alertID]
	if !ok || a.Acknowledged {
		s.mu.Unlock()
		return false
	}
	a.Acknowledged = true

	event := Event{Type: EventAlertAcknowledged, Alerts: []Alert{*a}, Monitoring: s.monitoring, Timestamp: s.now()}
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, event)
	return true
}

// Resolve removes an alert from the active set and marks it resolved in
// history. Unknown or already resolved ids are no-ops.
func (s *Store) Resolve(alertID, resolvedBy string) bool {
	s.mu.Lock()

	a, ok := s.byID[alertID]
	if !ok || a.Resolved {
		s.mu.Unlock()
		return false
	}

	now := s.now()
	a.Resolved = true
	a.ResolvedAt = &now
	if resolvedBy != "" {
		a.ResolvedBy = resolvedBy
	}
	s.active = removeAlert(s.active, alertID)

	event := Event{Type: EventAlertResolved, Alerts: []Alert{*a}, Monitoring: s.monitoring, Timestamp: now}
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, event)
	return true
}

// ClearAll empties the active set and resolves every unresolved history
// entry. Existing resolution timestamps are kept.
func (s *Store) ClearAll() int {
	s.mu.Lock()

	now := s.now()
	var cleared []*Alert
	for _, a := range s.history {
		if a.Resolved {
			continue
		}
		resolvedAt := now
		a.Resolved = true
		a.ResolvedAt = &resolvedAt
		cleared = append(cleared, a)
	}
	s.active = nil

	event := Event{Type: EventAlertsCleared, Alerts: copyAlerts(cleared), Monitoring: s.monitoring, Timestamp: now}
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, event)
	return len(cleared)
}

// SetMonitoring toggles the flag read by the monitoring loop
func (s *Store) SetMonitoring(enabled bool) {
	s.mu.Lock()
	if s.monitoring == enabled {
		s.mu.Unlock()
		return
	}
	s.monitoring = enabled

	event := Event{Type: EventMonitoringChanged, Monitoring: enabled, Timestamp: s.now()}
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, event)
}

// IsMonitoring reports whether monitoring is enabled
func (s *Store) IsMonitoring() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitoring
}

// ActiveAlerts returns a copy of the unresolved alerts
func (s *Store) ActiveAlerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAlerts(s.active)
}

// AlertHistory returns a copy of every alert ever fired
func (s *Store) AlertHistory() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAlerts(s.history)
}

// Get returns one alert from history
func (s *Store) Get(alertID string) (Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[alertID]
	if !ok {
		return Alert{}, false
	}
	return *a, true
}

// LastCheckTime returns when the last completed pass ran, nil before the first
func (s *Store) LastCheckTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastCheckTime == nil {
		return nil
	}
	t := *s.lastCheckTime
	return &t
}

// LastError returns the most recent pass failure, "" when none
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// State returns a full copy of the store
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		ActiveAlerts: copyAlerts(s.active),
		AlertHistory: copyAlerts(s.history),
		IsMonitoring: s.monitoring,
		LastError:    s.lastError,
	}
	if s.lastCheckTime != nil {
		t := *s.lastCheckTime
		state.LastCheckTime = &t
	}
	return state
}

// ActiveBySeverity returns active alerts of one severity
func (s *Store) ActiveBySeverity(severity Severity) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Alert
	for _, a := range s.active {
		if a.Severity == severity {
			out = append(out, *a)
		}
	}
	return out
}

// Unacknowledged returns active alerts nobody has acknowledged yet
func (s *Store) Unacknowledged() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Alert
	for _, a := range s.active {
		if !a.Acknowledged {
			out = append(out, *a)
		}
	}
	return out
}

// Summary returns the derived counts over the active set
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		TotalActive:  len(s.active),
		HistorySize:  len(s.history),
		IsMonitoring: s.monitoring,
		LastError:    s.lastError,
	}
	for _, a := range s.active {
		switch a.Severity {
		case SeverityCritical:
			sum.Critical++
		case SeverityHigh:
			sum.High++
		}
		if !a.Acknowledged {
			sum.Unacknowledged++
		}
	}
	if s.lastCheckTime != nil {
		t := *s.lastCheckTime
		sum.LastCheckTime = &t
	}
	return sum
}

func (s *Store) setCheckTime(at time.Time) {
	t := at
	s.lastCheckTime = &t
}

func notify(listeners []func(Event), event Event) {
	for _, listener := range listeners {
		listener(event)
	}
}

func removeAlert(alerts []*Alert, id string) []*Alert {
	out := alerts[:0:0]
	for _, a := range alerts {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func copyAlerts(alerts []*Alert) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		c := *a
		if a.ResolvedAt != nil {
			t := *a.ResolvedAt
			c.ResolvedAt = &t
		}
		out = append(out, c)
	}
	return out
}
