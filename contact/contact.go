package contact

import (
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/nostrcore/event"
)

// Contact references another protocol participant. Two contacts are equal
// when every field is equal.
type Contact struct {
	PublicKey [32]byte
	RelayURL  string
	Alias     string
}

// New creates a contact with only a public key.
func New(publicKey [32]byte) Contact {
	return Contact{PublicKey: publicKey}
}

// FromHex creates a contact from a 64 character hex public key.
func FromHex(publicKeyHex, relayURL, alias string) (Contact, error) {
	var c Contact
	if len(publicKeyHex) != 64 {
		return c, fmt.Errorf("invalid contact public key length %d", len(publicKeyHex))
	}
	if _, err := hex.Decode(c.PublicKey[:], []byte(publicKeyHex)); err != nil {
		return Contact{}, fmt.Errorf("invalid contact public key: %w", err)
	}
	c.RelayURL = relayURL
	c.Alias = alias
	return c, nil
}

// PublicKeyHex returns the hex encoded public key.
func (c Contact) PublicKeyHex() string {
	return hex.EncodeToString(c.PublicKey[:])
}

// Tag renders the contact as a contact-list "p" tag: ["p", pubkey, relay, alias].
func (c Contact) Tag() event.Tag {
	return event.Tag{"p", c.PublicKeyHex(), c.RelayURL, c.Alias}
}

// List is an ordered sequence of contacts without duplicates. Insertion order
// is the only order. List is not safe for concurrent use.
type List struct {
	items []Contact
}

// NewList creates a list from contacts, keeping the first of any duplicates.
func NewList(contacts ...Contact) *List {
	l := &List{items: make([]Contact, 0, len(contacts))}
	for _, c := range contacts {
		l.Add(c)
	}
	return l
}

// Add appends c unless an equal contact is already present. It reports whether
// the list changed.
func (l *List) Add(c Contact) bool {
	if l.Contains(c) {
		logrus.WithFields(logrus.Fields{
			"function":   "List.Add",
			"public_key": c.PublicKey[:8],
		}).Debug("Contact already present")
		return false
	}

	l.items = append(l.items, c)

	logrus.WithFields(logrus.Fields{
		"function":   "List.Add",
		"public_key": c.PublicKey[:8],
		"count":      len(l.items),
	}).Info("Contact added")
	return true
}

// Remove deletes every contact equal to c. It reports whether the list changed.
func (l *List) Remove(c Contact) bool {
	kept := l.items[:0]
	removed := 0
	for _, item := range l.items {
		if item == c {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = Contact{}
	}
	l.items = kept

	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"function":   "List.Remove",
			"public_key": c.PublicKey[:8],
			"count":      len(l.items),
		}).Info("Contact removed")
	}
	return removed > 0
}

// Contains reports whether an equal contact is present.
func (l *List) Contains(c Contact) bool {
	for _, item := range l.items {
		if item == c {
			return true
		}
	}
	return false
}

// Len returns the number of contacts.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Items returns a copy of the contacts in insertion order.
func (l *List) Items() []Contact {
	out := make([]Contact, len(l.items))
	copy(out, l.items)
	return out
}

// Clone returns an independent copy of the list. Cloning nil yields an empty list.
func (l *List) Clone() *List {
	if l == nil {
		return NewList()
	}
	return &List{items: l.Items()}
}

// Equal reports whether both lists hold equal contacts in the same order.
func (l *List) Equal(other *List) bool {
	if l.Len() != other.Len() {
		return false
	}
	if l.Len() == 0 {
		return true
	}
	for i := range l.items {
		if l.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

// Tags renders the list as contact-list "p" tags in insertion order.
func (l *List) Tags() []event.Tag {
	tags := make([]event.Tag, 0, len(l.items))
	for _, c := range l.items {
		tags = append(tags, c.Tag())
	}
	return tags
}
