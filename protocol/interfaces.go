package protocol

import (
	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// CryptoService abstracts the external homomorphic encryption service.
// Security: the core treats ciphertext handles as opaque and never compares
// them by value; correctness of the decrypted aggregate rests entirely on
// the service's proof, which is re-verified on every callback. The service
// is trusted for liveness only.
type CryptoService interface {
	// EncryptZero returns a fresh encryption of zero, used as the
	// accumulator seed.
	EncryptZero() (crypto.Ciphertext, error)

	// NotEqual returns an encrypted boolean (0 or 1) indicating a != b.
	NotEqual(a, b crypto.Ciphertext) (crypto.Ciphertext, error)

	// Multiply returns the homomorphic product of two ciphertexts.
	Multiply(a, b crypto.Ciphertext) (crypto.Ciphertext, error)

	// Add returns the homomorphic sum of two ciphertexts.
	Add(a, b crypto.Ciphertext) (crypto.Ciphertext, error)

	// RequestDecryption starts an asynchronous threshold decryption of the
	// given ciphertexts, tagged with the caller's request id. The matching
	// callback arrives at an arbitrary later time and must not be assumed
	// to correspond 1:1 with this call.
	RequestDecryption(cts []crypto.Ciphertext, requestID uint64) error

	// VerifyProof checks the decryption proof delivered with a callback.
	VerifyProof(requestID uint64, cleartext []byte, proof []byte) bool
}

// CallbackHandler consumes asynchronous decryption results. The protocol
// core implements it; crypto service implementations invoke it when a
// decryption completes.
type CallbackHandler interface {
	// OnDecryptionCallback delivers a decryption result. The handler treats
	// the input as untrusted and re-validates state and proof before
	// finalizing. It returns the decoded aggregate value on success.
	OnDecryptionCallback(requestID uint64, cleartext []byte, proof []byte) (uint64, error)
}

// EventSink receives one notification per successful state transition.
// Implementations must not call back into the core.
type EventSink interface {
	Emit(event Event)
}
