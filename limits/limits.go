package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxEventContent is the largest content field the builder will sign.
	// Most public relays reject events above this size.
	MaxEventContent = 64 * 1024

	// MaxEventTags caps the number of tags on a built event.
	MaxEventTags = 2000

	// MaxSubscriptionFilters caps the filters carried by one REQ frame.
	MaxSubscriptionFilters = 20

	// MaxRelayFrame is the absolute maximum for one websocket frame in either
	// direction. It is also the read limit applied to relay connections.
	MaxRelayFrame = 1024 * 1024
)

var (
	// ErrMessageEmpty indicates an empty frame was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates a value exceeds its maximum size
	ErrMessageTooLarge = errors.New("message too large")
)

// ValidateEventContent checks content against MaxEventContent. Empty content is valid.
func ValidateEventContent(content string) error {
	if len(content) > MaxEventContent {
		return fmt.Errorf("%w: content size %d exceeds limit %d", ErrMessageTooLarge, len(content), MaxEventContent)
	}
	return nil
}

// ValidateTagCount checks a tag count against MaxEventTags.
func ValidateTagCount(n int) error {
	if n > MaxEventTags {
		return fmt.Errorf("%w: %d tags exceeds limit %d", ErrMessageTooLarge, n, MaxEventTags)
	}
	return nil
}

// ValidateFilterCount checks the number of filters in one subscription.
func ValidateFilterCount(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: no filters", ErrMessageEmpty)
	}
	if n > MaxSubscriptionFilters {
		return fmt.Errorf("%w: %d filters exceeds limit %d", ErrMessageTooLarge, n, MaxSubscriptionFilters)
	}
	return nil
}

// ValidateRelayFrame validates an outbound frame against MaxRelayFrame.
func ValidateRelayFrame(frame []byte) error {
	if len(frame) == 0 {
		return ErrMessageEmpty
	}
	if len(frame) > MaxRelayFrame {
		return fmt.Errorf("%w: frame size %d exceeds limit %d", ErrMessageTooLarge, len(frame), MaxRelayFrame)
	}
	return nil
}
