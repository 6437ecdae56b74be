// Package crypto implements the identity primitives of the Nostr protocol.
//
// An identity is a secp256k1 key pair. Public keys travel in x-only form
// (32 bytes) and events are signed with BIP-340 Schnorr signatures over the
// event id digest.
//
// # Core Types
//
//   - [Keys]: an x-only public key plus an optional secret key
//   - [TimeProvider]: injectable clock for deterministic event timestamps
//   - [LoggerHelper]: structured logging helper used inside this package
//
// # Key Generation
//
// Keys are generated from the operating system's entropy source:
//
//	keys, err := crypto.GenerateKeys()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer crypto.WipeKeys(keys)
//	fmt.Println("npub hex:", keys.PublicKeyHex())
//
// Existing identities are restored from their secret key:
//
//	keys, err := crypto.FromSecretKeyHex(secretHex)
//
// Keys built with [FromPublicKey] can verify but not sign; signing with them
// returns [ErrNoSecretKey].
//
// # Signatures
//
//	sig, err := keys.Sign(eventID)
//	ok := crypto.Verify(keys.PublicKey(), eventID, sig)
//
// # Thread Safety
//
// Keys are immutable apart from [Keys.Wipe]; concurrent Sign calls are safe
// as long as no goroutine wipes the keys at the same time. Use [Keys.Clone]
// to hand an independent copy to another owner.
package crypto
