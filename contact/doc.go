// Package contact manages the peers a client follows.
//
// # Contacts
//
// A [Contact] is a plain comparable value: an x-only public key plus an
// optional relay hint and alias. Equality is field-wise, so the same public
// key with a different alias is a different contact.
//
// # List
//
// [List] keeps contacts in first-insertion order and never holds two equal
// contacts. The invariant is checked on every mutation:
//
//	list := contact.NewList()
//	list.Add(alice)  // true
//	list.Add(alice)  // false, list unchanged
//	list.Remove(bob) // false, list unchanged
//
// [List.Tags] renders the list as "p" tags for a contact-list event.
//
// # Thread Safety
//
// List methods are not thread-safe; callers must serialize access.
package contact
