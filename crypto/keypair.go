package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var (
	// ErrNoSecretKey is returned when signing with verify-only keys.
	ErrNoSecretKey = errors.New("keys have no secret key")

	// ErrInvalidSecretKey indicates a secret key that is zero or not below the curve order.
	ErrInvalidSecretKey = errors.New("invalid secret key")

	// ErrInvalidPublicKey indicates bytes that do not encode an x-only secp256k1 point.
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// Keys is a secp256k1 identity: an x-only public key and, when the identity
// can sign, the matching secret key.
type Keys struct {
	public [32]byte
	secret *secp256k1.PrivateKey
}

// GenerateKeys creates a new random identity using the operating system's
// entropy source.
func GenerateKeys() (*Keys, error) {
	logger := NewLogger("GenerateKeys")
	logger.Entry("generating secp256k1 identity")

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		logger.WithError(err, "rng_failure", "generate_private_key").Error("Failed to generate secret key")
		return nil, fmt.Errorf("generate secret key: %w", err)
	}

	keys := fromPrivateKey(priv)
	logger.WithKey("public_key", keys.public[:]).Debug("Identity generated")
	return keys, nil
}

// FromSecretKey builds signing keys from a raw 32-byte secret key.
func FromSecretKey(secretKey [32]byte) (*Keys, error) {
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetBytes(&secretKey); overflow != 0 || scalar.IsZero() {
		return nil, ErrInvalidSecretKey
	}
	return fromPrivateKey(secp256k1.NewPrivateKey(&scalar)), nil
}

// FromSecretKeyHex parses a 64 character hex secret key.
func FromSecretKeyHex(s string) (*Keys, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidSecretKey, len(raw))
	}
	var sk [32]byte
	copy(sk[:], raw)
	defer ZeroBytes(sk[:])
	return FromSecretKey(sk)
}

// FromPublicKey builds verify-only keys. Signing with them fails with ErrNoSecretKey.
func FromPublicKey(publicKey [32]byte) (*Keys, error) {
	if _, err := schnorr.ParsePubKey(publicKey[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return &Keys{public: publicKey}, nil
}

func fromPrivateKey(priv *secp256k1.PrivateKey) *Keys {
	k := &Keys{secret: priv}
	copy(k.public[:], schnorr.SerializePubKey(priv.PubKey()))
	return k
}

// Clone returns an independent copy. Wiping the clone does not affect the original.
func (k *Keys) Clone() *Keys {
	if k == nil {
		return nil
	}
	c := &Keys{public: k.public}
	if k.secret != nil {
		raw := k.secret.Serialize()
		c.secret = secp256k1.PrivKeyFromBytes(raw)
		ZeroBytes(raw)
	}
	return c
}

// PublicKey returns the x-only public key.
func (k *Keys) PublicKey() [32]byte {
	return k.public
}

// PublicKeyHex returns the lowercase hex encoding of the public key.
func (k *Keys) PublicKeyHex() string {
	return hex.EncodeToString(k.public[:])
}

// HasSecretKey reports whether the keys can sign.
func (k *Keys) HasSecretKey() bool {
	return k.secret != nil
}

// SecretKey returns the raw secret key.
func (k *Keys) SecretKey() ([32]byte, error) {
	var out [32]byte
	if k.secret == nil {
		return out, ErrNoSecretKey
	}
	raw := k.secret.Serialize()
	copy(out[:], raw)
	ZeroBytes(raw)
	return out, nil
}

// Sign produces a BIP-340 Schnorr signature over a 32-byte digest.
func (k *Keys) Sign(hash [32]byte) ([64]byte, error) {
	var out [64]byte
	if k.secret == nil {
		return out, ErrNoSecretKey
	}

	sig, err := schnorr.Sign(k.secret, hash[:])
	if err != nil {
		NewLogger("Keys.Sign").
			WithKey("public_key", k.public[:]).
			WithError(err, "signing_failure", "schnorr_sign").
			Error("Failed to sign digest")
		return out, fmt.Errorf("schnorr sign: %w", err)
	}
	copy(out[:], sig.Serialize())
	return out, nil
}

// Wipe zeroes the secret key. The keys become verify-only.
func (k *Keys) Wipe() {
	if k.secret == nil {
		return
	}
	k.secret.Zero()
	k.secret = nil
}

// Verify checks a BIP-340 signature over hash against an x-only public key.
func Verify(publicKey [32]byte, hash [32]byte, sig [64]byte) bool {
	pub, err := schnorr.ParsePubKey(publicKey[:])
	if err != nil {
		return false
	}
	parsed, err := schnorr.ParseSignature(sig[:])
	if err != nil {
		return false
	}
	return parsed.Verify(hash[:], pub)
}
