package event

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidEventID is matched by every ParseError.
var ErrInvalidEventID = errors.New("invalid event id")

// EventID is the sha256 digest identifying an event.
type EventID [32]byte

// ParseError reports event id text that is not 64 hex characters.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse event id %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidEventID) match any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidEventID
}

// ParseEventID decodes 64 hex characters into an EventID.
func ParseEventID(s string) (EventID, error) {
	var id EventID
	if len(s) != hex.EncodedLen(len(id)) {
		return id, &ParseError{Input: s, Err: fmt.Errorf("expected %d hex characters, got %d", hex.EncodedLen(len(id)), len(s))}
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return EventID{}, &ParseError{Input: s, Err: err}
	}
	return id, nil
}

// String returns the lowercase hex form.
func (id EventID) String() string {
	return hex.EncodeToString(id[:])
}
