// Package relay implements the Nostr relay pool: websocket connections to a
// set of relays, one shared subscription across them, and a broadcast hub
// that fans relay output out to any number of listeners.
//
// # Pool
//
// A [Pool] holds relays keyed by url. Relays are added first and connected
// separately, optionally through a SOCKS5 proxy:
//
//	pool := relay.NewPool()
//	defer pool.Close()
//
//	err := pool.AddRelay(ctx, "wss://relay.example.com", nil)
//	err = pool.ConnectAll(ctx)
//
// [Pool.ConnectAll] dials every relay that is not connected in parallel and
// returns all failures combined with go.uber.org/multierr. Dropped connections
// are retried up to [PoolOptions.MaxReconnects] times unless the drop was
// requested through [Pool.DisconnectRelay].
//
// The pool keeps a single subscription. [Pool.Subscribe] replaces it, sending
// CLOSE for the old id and REQ for the new one, and relays that connect later
// receive the REQ on connect.
//
// # Notifications
//
// Relay frames become [Notification] values published on a [Hub]. Events are
// signature checked and delivered once, however many relays send them.
// Each call to [Pool.Notifications] returns an independent [Subscription]:
//
//	sub := pool.Notifications()
//	defer sub.Close()
//	for {
//		n, err := sub.Recv(ctx)
//		var lag *relay.LaggedError
//		if errors.As(err, &lag) {
//			continue
//		}
//		if err != nil {
//			return err
//		}
//		handle(n)
//	}
//
// A receiver that falls more than the hub capacity behind gets a
// [*LaggedError] and resumes at the oldest retained notification.
//
// # Errors
//
// Operations return [*Error] carrying the operation, relay url and an
// [ErrorKind]. Use [IsKind] to classify, and errors.Is with the package
// sentinels for specific causes.
package relay
