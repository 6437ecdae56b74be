// Package nostrcore implements a Nostr client on top of a pool of relays.
//
// A [Client] owns an identity, an ordered contact list and a relay pool.
// Relay operations are delegated to the pool unchanged; the client adds
// event deletion, publishing helpers and a notification loop on top.
//
// # Getting Started
//
//	keys := nostrcore.GenerateKeys()
//	client := nostrcore.New(keys, nil)
//	defer client.Close()
//
//	ctx := context.Background()
//	if err := client.AddRelay(ctx, "wss://relay.example.com", nil); err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.ConnectAll(ctx); err != nil {
//	    log.Printf("some relays failed: %v", err)
//	}
//
//	note, err := client.PublishTextNote(ctx, "hello nostr")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = client.DeleteEvent(ctx, note.ID)
//
// # Notifications
//
// [Client.Notifications] returns an independent subscription that sees every
// notification published after it was created. [Client.HandleNotifications]
// runs a receive loop until the handler fails, the context ends or the pool
// closes:
//
//	err := client.HandleNotifications(ctx, func(n relay.Notification) error {
//	    if n.Kind != relay.NotificationEvent {
//	        return nil
//	    }
//	    fmt.Println(n.Event.Content)
//	    return nil
//	})
//
// A handler error ends the loop and is returned unchanged. Return
// [ErrStopHandling] to stop without an error. Notifications missed because the
// handler was too slow are logged and skipped, and a closed subscription is
// replaced automatically.
//
// # Blocking Use
//
// Every network operation takes a context and runs on the caller's
// goroutine. Package blocking wraps a Client so each call runs to completion
// on a process-wide scheduler instead.
//
// # Errors
//
// Errors from the pool and the event builder are returned unchanged. Classify
// them with [IsConnectionError], [IsProtocolError], [IsParseError],
// [IsSigningError] and [IsChannelError].
package nostrcore
