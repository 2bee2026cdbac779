// Package crypto provides the value types and primitives shared by the PSI
// batch protocol and its collaborators.
//
// This package implements:
//
//   - Address and key types (Ed25519) identifying protocol participants
//   - Digital signatures for authenticating operation envelopes
//   - The opaque Ciphertext handle type for homomorphic values
//   - State-hash commitments binding decryption requests to batch contents
//   - Key derivation (HKDF over SHA3) for the local decryption oracle
//
// The Ciphertext type is deliberately inert: it carries no arithmetic of its
// own. All homomorphic operations are performed by a crypto service behind
// the protocol.CryptoService interface, keeping the core oblivious to the
// underlying encryption scheme.
package crypto
