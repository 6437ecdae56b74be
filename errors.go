package nostrcore

import (
	"errors"

	"github.com/opd-ai/nostrcore/crypto"
	"github.com/opd-ai/nostrcore/event"
	"github.com/opd-ai/nostrcore/relay"
)

// IsConnectionError reports whether err is a relay connection failure:
// adding, removing, connecting or disconnecting relays, or no relay reachable.
func IsConnectionError(err error) bool {
	return relay.IsKind(err, relay.KindConnection)
}

// IsProtocolError reports whether err is a filter or event rejected by the
// relay engine.
func IsProtocolError(err error) bool {
	return relay.IsKind(err, relay.KindProtocol) ||
		errors.Is(err, event.ErrInvalidFilter) ||
		errors.Is(err, relay.ErrInvalidEvent)
}

// IsParseError reports whether err came from decoding an event id.
func IsParseError(err error) bool {
	return errors.Is(err, event.ErrInvalidEventID)
}

// IsSigningError reports whether err came from building or signing an event.
func IsSigningError(err error) bool {
	return errors.Is(err, event.ErrSigning) || errors.Is(err, crypto.ErrNoSecretKey)
}

// IsChannelError reports whether err came from notification delivery.
func IsChannelError(err error) bool {
	var lagged *relay.LaggedError
	return relay.IsKind(err, relay.KindChannel) ||
		errors.Is(err, relay.ErrSubscriptionClosed) ||
		errors.Is(err, relay.ErrPoolClosed) ||
		errors.As(err, &lagged)
}
