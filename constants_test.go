package nostrcore

import "time"

const (
	// testWaitTimeout bounds waits on background goroutines.
	testWaitTimeout = 2 * time.Second

	// testPollInterval is the polling period for require.Eventually.
	testPollInterval = 5 * time.Millisecond

	// testHubCapacity is the notification ring size of fake pools.
	testHubCapacity = 16

	testRelayURL = "wss://relay.example.com"
)
