package relay

import (
	"errors"
	"fmt"
)

// Common errors returned by the relay engine.
var (
	// ErrRelayExists indicates AddRelay was called with a URL already in the pool
	ErrRelayExists = errors.New("relay already exists")

	// ErrRelayNotFound indicates the URL is not in the pool
	ErrRelayNotFound = errors.New("relay not found")

	// ErrInvalidURL indicates a relay URL that is not ws:// or wss://
	ErrInvalidURL = errors.New("invalid relay url")

	// ErrNotConnected indicates a write to a relay without an open connection
	ErrNotConnected = errors.New("relay not connected")

	// ErrRelayTerminated indicates the relay was removed from its pool
	ErrRelayTerminated = errors.New("relay terminated")

	// ErrNoConnectedRelays indicates an event could not be sent anywhere
	ErrNoConnectedRelays = errors.New("no connected relays")

	// ErrInvalidEvent indicates an event whose id or signature does not verify
	ErrInvalidEvent = errors.New("invalid event")

	// ErrMalformedMessage indicates a relay frame that is not valid NIP-01
	ErrMalformedMessage = errors.New("malformed relay message")

	// ErrSubscriptionClosed is returned by Recv after the subscription was closed
	ErrSubscriptionClosed = errors.New("notification subscription closed")

	// ErrPoolClosed is returned once the pool and its notification hub shut down
	ErrPoolClosed = errors.New("relay pool closed")
)

// ErrorKind classifies relay engine failures.
type ErrorKind uint8

const (
	// KindConnection covers add/remove/connect/disconnect failures.
	KindConnection ErrorKind = iota
	// KindProtocol covers filters or events rejected before reaching the wire.
	KindProtocol
	// KindChannel covers notification delivery failures.
	KindChannel
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindChannel:
		return "channel"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is a relay engine failure with the operation and relay that caused it.
type Error struct {
	Op   string    // operation that caused the error
	URL  string    // relay url if relevant
	Kind ErrorKind // failure class
	Err  error     // underlying error
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("relay %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("relay %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, url string, kind ErrorKind, err error) *Error {
	return &Error{
		Op:   op,
		URL:  url,
		Kind: kind,
		Err:  err,
	}
}

// IsKind reports whether err carries a relay *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == kind
}

// LaggedError reports that a subscription fell behind the hub's buffer.
// The subscription stays usable and continues from the oldest retained entry.
type LaggedError struct {
	Skipped uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("notification subscription lagged, %d skipped", e.Skipped)
}
