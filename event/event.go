package event

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/opd-ai/nostrcore/crypto"
)

// Kind identifies the meaning of an event.
type Kind int

const (
	KindMetadata               Kind = 0
	KindTextNote               Kind = 1
	KindRecommendRelay         Kind = 2
	KindContactList            Kind = 3
	KindEncryptedDirectMessage Kind = 4
	KindEventDeletion          Kind = 5
	KindReaction               Kind = 7
)

var (
	// ErrSigning is matched by every failure to produce a signed event.
	ErrSigning = errors.New("event signing failed")

	// ErrInvalidID indicates an id that does not match the event's canonical hash.
	ErrInvalidID = errors.New("event id does not match content")

	// ErrInvalidSignature indicates a missing, malformed or wrong signature.
	ErrInvalidSignature = errors.New("invalid event signature")
)

// Tag is one entry of an event's tag list, e.g. ["e", <id>] or ["p", <pubkey>].
type Tag []string

// Event is a signed, immutable protocol message.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      Kind   `json:"kind"`
	Tags      []Tag  `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// Serialize returns the canonical form hashed into the event id:
// [0,<pubkey>,<created_at>,<kind>,<tags>,<content>] as compact JSON. Strings
// escape only quote, backslash and control characters; everything else,
// including U+2028 and U+2029, is written raw.
func (e *Event) Serialize() ([]byte, error) {
	buf := make([]byte, 0, 128+len(e.Content))
	buf = append(buf, "[0,"...)
	buf = appendString(buf, e.PubKey)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, e.CreatedAt, 10)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, int64(e.Kind), 10)
	buf = append(buf, ",["...)
	for i, tag := range e.Tags {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '[')
		for j, v := range tag {
			if j > 0 {
				buf = append(buf, ',')
			}
			buf = appendString(buf, v)
		}
		buf = append(buf, ']')
	}
	buf = append(buf, "],"...)
	buf = appendString(buf, e.Content)
	buf = append(buf, ']')
	return buf, nil
}

const hexDigits = "0123456789abcdef"

// appendString appends s as a JSON string literal in canonical event form.
// Invalid UTF-8 is replaced with U+FFFD.
func appendString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				buf = append(buf, '\\', '"')
			case '\\':
				buf = append(buf, '\\', '\\')
			case '\n':
				buf = append(buf, '\\', 'n')
			case '\r':
				buf = append(buf, '\\', 'r')
			case '\t':
				buf = append(buf, '\\', 't')
			case '\b':
				buf = append(buf, '\\', 'b')
			case '\f':
				buf = append(buf, '\\', 'f')
			default:
				if c < 0x20 {
					buf = append(buf, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
				} else {
					buf = append(buf, c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf = utf8.AppendRune(buf, utf8.RuneError)
		} else {
			buf = append(buf, s[i:i+size]...)
		}
		i += size
	}
	return append(buf, '"')
}

// ComputeID hashes the canonical serialization.
func (e *Event) ComputeID() (EventID, error) {
	data, err := e.Serialize()
	if err != nil {
		return EventID{}, err
	}
	return sha256.Sum256(data), nil
}

// EventID parses the event's id field.
func (e *Event) EventID() (EventID, error) {
	return ParseEventID(e.ID)
}

// Sign fills PubKey, ID and Sig using keys.
func (e *Event) Sign(keys *crypto.Keys) error {
	if keys == nil {
		return fmt.Errorf("%w: nil keys", ErrSigning)
	}
	e.PubKey = keys.PublicKeyHex()

	id, err := e.ComputeID()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSigning, err)
	}
	sig, err := keys.Sign(id)
	if err != nil {
		pub := keys.PublicKey()
		crypto.NewLoggerFor("event", "Event.Sign").
			WithKey("public_key", pub[:]).
			WithField("kind", e.Kind).
			WithError(err, "signing_failure", "sign_event").
			Warn("Failed to sign event")
		return fmt.Errorf("%w: %w", ErrSigning, err)
	}

	e.ID = id.String()
	e.Sig = hex.EncodeToString(sig[:])
	return nil
}

// Verify checks that ID matches the content and Sig is a valid signature by PubKey.
func (e *Event) Verify() error {
	want, err := e.ComputeID()
	if err != nil {
		return err
	}
	if e.ID != want.String() {
		return ErrInvalidID
	}

	var pub [32]byte
	if len(e.PubKey) != 64 {
		return fmt.Errorf("%w: malformed pubkey", ErrInvalidSignature)
	}
	if _, err := hex.Decode(pub[:], []byte(e.PubKey)); err != nil {
		return fmt.Errorf("%w: malformed pubkey", ErrInvalidSignature)
	}
	var sig [64]byte
	if len(e.Sig) != 128 {
		return fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}
	if _, err := hex.Decode(sig[:], []byte(e.Sig)); err != nil {
		return fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}
	if !crypto.Verify(pub, want, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// TagValues returns the second element of every tag whose name matches.
func (e *Event) TagValues(name string) []string {
	var out []string
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == name {
			out = append(out, t[1])
		}
	}
	return out
}
