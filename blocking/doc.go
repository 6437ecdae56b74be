// Package blocking provides a synchronous Nostr client for callers that do
// not manage contexts or goroutines.
//
// A [Client] wraps a nostrcore.Client and runs every call to completion on the
// scheduler, returning exactly what the wrapped call returned:
//
//	client := blocking.New(nostrcore.GenerateKeys(), nil)
//	defer client.Close()
//
//	if err := client.AddRelay("wss://relay.example.com", nil); err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.ConnectAll(); err != nil {
//	    log.Printf("some relays failed: %v", err)
//	}
//	if err := client.DeleteEvent(id); err != nil {
//	    log.Fatal(err)
//	}
//
// Clients built with [New] and [NewWithPool] share the process-wide
// scheduler.Shared instance. Use [Wrap] to supply another scheduler. The
// context-based client stays reachable through [Client.Inner], so both styles
// can drive the same state.
//
// A blocking HandleNotifications parks only its caller; other blocking calls
// keep running. Blocking methods must not be called from inside a scheduler
// task, for example from a HandleNotifications handler. This is not detected.
package blocking
