package relay

import (
	"encoding/json"
	"fmt"

	"github.com/opd-ai/nostrcore/event"
)

// MessageType is the first element of a NIP-01 frame.
type MessageType string

const (
	MessageEvent  MessageType = "EVENT"
	MessageReq    MessageType = "REQ"
	MessageClose  MessageType = "CLOSE"
	MessageNotice MessageType = "NOTICE"
	MessageEOSE   MessageType = "EOSE"
	MessageOK     MessageType = "OK"
)

// Message is a decoded relay-to-client frame.
type Message struct {
	Type           MessageType
	SubscriptionID string
	Event          *event.Event
	EventID        string
	Accepted       bool
	Text           string
}

// EncodeEvent builds ["EVENT", <event>].
func EncodeEvent(ev *event.Event) ([]byte, error) {
	return json.Marshal([]interface{}{MessageEvent, ev})
}

// EncodeReq builds ["REQ", <id>, <filter>...].
func EncodeReq(subscriptionID string, filters []event.Filter) ([]byte, error) {
	frame := make([]interface{}, 0, len(filters)+2)
	frame = append(frame, MessageReq, subscriptionID)
	for _, f := range filters {
		frame = append(frame, f)
	}
	return json.Marshal(frame)
}

// EncodeClose builds ["CLOSE", <id>].
func EncodeClose(subscriptionID string) ([]byte, error) {
	return json.Marshal([]interface{}{MessageClose, subscriptionID})
}

// ParseMessage decodes a relay-to-client frame. Unknown frame types are
// reported as ErrMalformedMessage.
func ParseMessage(data []byte) (*Message, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformedMessage)
	}

	var typ MessageType
	if err := json.Unmarshal(parts[0], &typ); err != nil {
		return nil, fmt.Errorf("%w: frame type: %v", ErrMalformedMessage, err)
	}

	msg := &Message{Type: typ}
	switch typ {
	case MessageEvent:
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: EVENT needs 3 elements", ErrMalformedMessage)
		}
		if err := decodeParts(parts[1:3], &msg.SubscriptionID, &msg.Event); err != nil {
			return nil, err
		}
		if msg.Event == nil {
			return nil, fmt.Errorf("%w: null event", ErrMalformedMessage)
		}
	case MessageNotice:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: NOTICE needs 2 elements", ErrMalformedMessage)
		}
		if err := decodeParts(parts[1:2], &msg.Text); err != nil {
			return nil, err
		}
	case MessageEOSE:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: EOSE needs 2 elements", ErrMalformedMessage)
		}
		if err := decodeParts(parts[1:2], &msg.SubscriptionID); err != nil {
			return nil, err
		}
	case MessageOK:
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: OK needs at least 3 elements", ErrMalformedMessage)
		}
		if err := decodeParts(parts[1:3], &msg.EventID, &msg.Accepted); err != nil {
			return nil, err
		}
		if len(parts) > 3 {
			if err := decodeParts(parts[3:4], &msg.Text); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown frame type %q", ErrMalformedMessage, typ)
	}
	return msg, nil
}

func decodeParts(parts []json.RawMessage, targets ...interface{}) error {
	for i, target := range targets {
		if err := json.Unmarshal(parts[i], target); err != nil {
			return fmt.Errorf("%w: element %d: %v", ErrMalformedMessage, i+1, err)
		}
	}
	return nil
}
