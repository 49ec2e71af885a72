package websocket

import (
	"encoding/json"
	"time"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
)

// Message types for WebSocket communication
const (
	// Alert lifecycle
	MessageTypeAlertFired        = "alert_fired"
	MessageTypeAlertAcknowledged = "alert_acknowledged"
	MessageTypeAlertResolved     = "alert_resolved"
	MessageTypeAlertsCleared     = "alerts_cleared"
	MessageTypeMonitoringStatus  = "monitoring_status"

	// Connection management
	MessageTypeConnection  = "connection"
	MessageTypeHeartbeat   = "heartbeat"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeSubscribed  = "subscription_update"
)

// Message represents a WebSocket message
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`

	// severity scopes delivery to subscribed clients; empty reaches everyone
	severity alerting.Severity
}

// ToJSON converts the message to JSON bytes, stamping it when unset
func (m Message) ToJSON() []byte {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	data, _ := json.Marshal(m)
	return data
}

// AlertMessage wraps one alert in a lifecycle message
func AlertMessage(msgType string, alert alerting.Alert) Message {
	return Message{
		Type: msgType,
		Data: map[string]interface{}{
			"alert": alert,
		},
		severity: alert.Severity,
	}
}

// AlertsClearedMessage reports how many alerts a clear-all resolved
func AlertsClearedMessage(cleared int) Message {
	return Message{
		Type: MessageTypeAlertsCleared,
		Data: map[string]interface{}{
			"cleared": cleared,
		},
	}
}

// MonitoringStatusMessage reports the monitoring flag
func MonitoringStatusMessage(isMonitoring bool) Message {
	return Message{
		Type: MessageTypeMonitoringStatus,
		Data: map[string]interface{}{
			"isMonitoring": isMonitoring,
		},
	}
}

// MessagesFromEvent translates a store event into the messages clients see.
// A fired batch becomes one alert_fired message per alert, in batch order.
func MessagesFromEvent(event alerting.Event) []Message {
	stamp := func(m Message) Message {
		m.Timestamp = event.Timestamp.UTC()
		return m
	}

	switch event.Type {
	case alerting.EventAlertsFired:
		return alertMessages(MessageTypeAlertFired, event, stamp)
	case alerting.EventAlertAcknowledged:
		return alertMessages(MessageTypeAlertAcknowledged, event, stamp)
	case alerting.EventAlertResolved:
		return alertMessages(MessageTypeAlertResolved, event, stamp)
	case alerting.EventAlertsCleared:
		return []Message{stamp(AlertsClearedMessage(len(event.Alerts)))}
	case alerting.EventMonitoringChanged:
		return []Message{stamp(MonitoringStatusMessage(event.Monitoring))}
	}
	return nil
}

func alertMessages(msgType string, event alerting.Event, stamp func(Message) Message) []Message {
	msgs := make([]Message, 0, len(event.Alerts))
	for _, a := range event.Alerts {
		msgs = append(msgs, stamp(AlertMessage(msgType, a)))
	}
	return msgs
}
