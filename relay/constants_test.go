package relay

import "time"

const (
	// testWaitTimeout bounds require.Eventually polling in tests.
	testWaitTimeout = 2 * time.Second

	// testPollInterval is the polling period for require.Eventually.
	testPollInterval = 5 * time.Millisecond

	relayA = "wss://a.example.com"
	relayB = "wss://b.example.com"
	relayC = "wss://c.example.com"
)
