// Package limits provides the size constants and validators shared by the
// event builder and the relay engine.
//
//   - MaxEventContent (64 KiB): largest content the builder signs.
//   - MaxEventTags (2000): largest tag list the builder signs.
//   - MaxSubscriptionFilters (20): filters per REQ frame.
//   - MaxRelayFrame (1 MiB): largest websocket frame sent or accepted.
//
// Validators return errors wrapping ErrMessageEmpty or ErrMessageTooLarge
// with the actual size and the limit:
//
//	if err := limits.ValidateEventContent(content); err != nil {
//	    // errors.Is(err, limits.ErrMessageTooLarge)
//	}
package limits
