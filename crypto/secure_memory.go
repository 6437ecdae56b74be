package crypto

import (
	"errors"
	"runtime"
)

// ErrNilBuffer is returned when asked to wipe a nil buffer or nil Keys.
var ErrNilBuffer = errors.New("cannot wipe nil buffer")

// SecureWipe zeroes a buffer that held secret material such as a raw secret
// key or its hex encoding.
func SecureWipe(data []byte) error {
	if data == nil {
		return ErrNilBuffer
	}
	clear(data)
	runtime.KeepAlive(data)
	return nil
}

// ZeroBytes is SecureWipe for callers that hold a non-nil scratch buffer.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// WipeKeys drops the secret half of k. k stays usable for verification.
func WipeKeys(k *Keys) error {
	if k == nil {
		return ErrNilBuffer
	}
	pub := k.PublicKey()
	k.Wipe()

	NewLogger("WipeKeys").
		WithKey("public_key", pub[:]).
		Debug("Secret key wiped")
	return nil
}
