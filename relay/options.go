package relay

import "time"

// PoolOptions configures a Pool.
type PoolOptions struct {
	// NotificationCapacity is the number of notifications retained for slow
	// subscribers before they lag.
	NotificationCapacity int
	// SeenCacheSize bounds the set of event ids used to drop duplicates
	// delivered by several relays.
	SeenCacheSize int
	// ConnectConcurrency bounds parallel dials in ConnectAll.
	ConnectConcurrency int
	// DialTimeout bounds one connection attempt.
	DialTimeout time.Duration
	// ReconnectDelay is the base delay before reconnecting a dropped relay.
	// Attempt n waits n*ReconnectDelay.
	ReconnectDelay time.Duration
	// MaxReconnects is the number of automatic attempts after a drop; 0 disables them.
	MaxReconnects int
	// Dialer opens connections; nil selects a WebsocketDialer.
	Dialer Dialer
}

// NewPoolOptions returns the default pool configuration.
func NewPoolOptions() *PoolOptions {
	return &PoolOptions{
		NotificationCapacity: DefaultNotificationCapacity,
		SeenCacheSize:        10000,
		ConnectConcurrency:   8,
		DialTimeout:          10 * time.Second,
		ReconnectDelay:       5 * time.Second,
		MaxReconnects:        3,
	}
}
