package relay

import "github.com/opd-ai/nostrcore/event"

// NotificationKind tags a Notification.
type NotificationKind uint8

const (
	// NotificationEvent carries an event received on the pool subscription.
	NotificationEvent NotificationKind = iota
	// NotificationNotice carries a human readable NOTICE from a relay.
	NotificationNotice
	// NotificationEOSE marks the end of stored events for a subscription.
	NotificationEOSE
	// NotificationOK carries a relay's verdict on a published event.
	NotificationOK
	// NotificationRelayConnected reports a relay connection was established.
	NotificationRelayConnected
	// NotificationRelayDisconnected reports a relay connection was lost or closed.
	NotificationRelayDisconnected
)

func (k NotificationKind) String() string {
	switch k {
	case NotificationEvent:
		return "event"
	case NotificationNotice:
		return "notice"
	case NotificationEOSE:
		return "eose"
	case NotificationOK:
		return "ok"
	case NotificationRelayConnected:
		return "relay_connected"
	case NotificationRelayDisconnected:
		return "relay_disconnected"
	default:
		return "unknown"
	}
}

// Notification is a signal emitted by the pool. Only the fields relevant to
// Kind are set.
type Notification struct {
	Kind           NotificationKind
	RelayURL       string
	SubscriptionID string
	Event          *event.Event
	EventID        string
	Accepted       bool
	Message        string
}
