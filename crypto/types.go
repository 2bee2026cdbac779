package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// Address identifies a protocol participant. Addresses double as signature
// verification keys: an address is the Ed25519 public key of the caller, and
// every mutating operation arrives signed by it.
type Address []byte

// NewAddressFromBytes creates an Address from a byte slice.
// The input is copied to ensure immutability.
func NewAddressFromBytes(data []byte) Address {
	a := make([]byte, len(data))
	copy(a, data)
	return Address(a)
}

// NewAddressFromString creates an Address from a hex-encoded string.
func NewAddressFromString(data string) (Address, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return Address{}, err
	}
	return NewAddressFromBytes(rawBytes), nil
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a
}

// Equal compares two addresses in constant time.
func (a Address) Equal(other Address) bool {
	return subtle.ConstantTimeCompare(a, other) == 1
}

// String returns a hex-encoded representation of the address.
// This is useful for logging and for using the address as a map key.
func (a Address) String() string {
	return hex.EncodeToString(a)
}

// PrivateKey is the Ed25519 signing key backing an Address.
// Private keys are only ever held by their owners.
type PrivateKey []byte

// NewPrivateKeyFromBytes creates a PrivateKey from a byte slice.
func NewPrivateKeyFromBytes(data []byte) PrivateKey {
	sk := make([]byte, len(data))
	copy(sk, data)
	return PrivateKey(sk)
}

// Bytes returns the raw key material. Handle with care.
func (sk PrivateKey) Bytes() []byte {
	return sk
}

// Address returns the address corresponding to this private key.
func (sk PrivateKey) Address() (Address, error) {
	if len(sk) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	pub := ed25519.PrivateKey(sk).Public().(ed25519.PublicKey)
	return NewAddressFromBytes(pub), nil
}

// GenerateKeyPair creates a fresh participant identity.
func GenerateKeyPair() (Address, PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return NewAddressFromBytes(pub), NewPrivateKeyFromBytes(priv), nil
}

// Signature is an Ed25519 signature produced by an Address's private key.
type Signature []byte

// NewSignature creates a Signature from a byte slice.
func NewSignature(data []byte) Signature {
	s := make([]byte, len(data))
	copy(s, data)
	return Signature(s)
}

// Bytes returns the signature as a byte slice.
func (s Signature) Bytes() []byte {
	return s
}

// Sign signs data with the given private key.
func Sign(sk PrivateKey, data []byte) (Signature, error) {
	if len(sk) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	return NewSignature(ed25519.Sign(ed25519.PrivateKey(sk), data)), nil
}

// Verify checks the signature over data against the signer's address.
func (s Signature) Verify(signer Address, data []byte) bool {
	if len(signer) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signer), data, s)
}

// Ciphertext is an opaque handle to an encrypted value. The protocol core
// never inspects or compares handle contents; all arithmetic on handles goes
// through the crypto service that issued them.
type Ciphertext []byte

// NewCiphertextFromBytes creates a Ciphertext handle from a byte slice.
func NewCiphertextFromBytes(data []byte) Ciphertext {
	ct := make([]byte, len(data))
	copy(ct, data)
	return Ciphertext(ct)
}

// NewCiphertextFromString creates a Ciphertext handle from a hex-encoded string.
func NewCiphertextFromString(data string) (Ciphertext, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return Ciphertext{}, err
	}
	return NewCiphertextFromBytes(rawBytes), nil
}

// Bytes returns the handle as a byte slice.
func (ct Ciphertext) Bytes() []byte {
	return ct
}

// String returns a hex-encoded representation of the handle.
func (ct Ciphertext) String() string {
	return hex.EncodeToString(ct)
}
