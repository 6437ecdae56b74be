// Package event implements Nostr events: construction, canonical id hashing,
// Schnorr signing and verification, and subscription filters.
//
// # Events
//
// An [Event] is identified by the sha256 of its canonical serialization
//
//	[0, <pubkey hex>, <created_at>, <kind>, <tags>, <content>]
//
// and signed by its author with BIP-340 Schnorr. Events are built through a
// [Builder], which stamps created_at from an injectable clock:
//
//	b := event.NewBuilder()
//	note, err := b.BuildTextNote(keys, "hello", nil)
//
//	id, err := event.ParseEventID(note.ID)
//	del, err := b.BuildDelete(keys, []event.EventID{id}, nil)
//
// Signing failures match [ErrSigning]; malformed id text yields a
// [*ParseError] matching [ErrInvalidEventID].
//
// # Filters
//
// [Filter] mirrors the REQ filter object. [Filter.Validate] checks shapes only;
// relays decide which events match.
package event
