// Package oracle provides an in-process implementation of the protocol's
// crypto service: sealed ciphertext handles, homomorphic evaluation, and
// asynchronous proof-carrying decryption callbacks.
//
// Handles are AES-GCM sealed values; only the oracle can open them, so the
// protocol core and its callers never see cleartexts. Sealing is
// deterministic in the value (the nonce is derived SIV-style from the
// plaintext), so evaluating the same expression twice yields byte-identical
// handles; the coordinator depends on this when it recomputes an aggregate
// at callback time and compares it against the state hash committed at
// request time. Decryption results are delivered on a separate goroutine,
// modeling the arbitrary delay of a real threshold-decryption network, and
// carry an HMAC proof over the request id and cleartext that the core
// re-verifies before trusting the result.
package oracle

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/sha3"

	pcrypto "github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
	"github.com/AngelaRollins9561294/psiFHE-Tool/protocol"
)

// Oracle implements protocol.CryptoService. It holds the only key material
// able to open ciphertext handles.
type Oracle struct {
	mu       sync.Mutex
	aead     cipher.AEAD
	nonceKey []byte
	proofKey []byte
	handler  protocol.CallbackHandler
}

// New creates an oracle whose sealing and proof keys are derived from the
// master secret. Deployments sharing a master secret accept each other's
// handles and proofs.
func New(masterSecret []byte) (*Oracle, error) {
	sealKey, err := pcrypto.DeriveKey(masterSecret, "oracle-seal", 32)
	if err != nil {
		return nil, fmt.Errorf("deriving seal key: %w", err)
	}
	nonceKey, err := pcrypto.DeriveKey(masterSecret, "oracle-nonce", 32)
	if err != nil {
		return nil, fmt.Errorf("deriving nonce key: %w", err)
	}
	proofKey, err := pcrypto.DeriveKey(masterSecret, "oracle-proof", 32)
	if err != nil {
		return nil, fmt.Errorf("deriving proof key: %w", err)
	}

	block, err := aes.NewCipher(sealKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Oracle{aead: aead, nonceKey: nonceKey, proofKey: proofKey}, nil
}

// SetCallbackHandler wires the consumer of decryption results. Must be set
// before the first RequestDecryption call.
func (o *Oracle) SetCallbackHandler(handler protocol.CallbackHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handler = handler
}

// seal produces the handle for a value. The nonce is an HMAC of the
// plaintext, so equal values under the same master secret seal to
// byte-identical handles; nonce reuse only ever pairs a nonce with the one
// plaintext it was derived from.
func (o *Oracle) seal(value uint64) (pcrypto.Ciphertext, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)

	mac := hmac.New(sha3.New256, o.nonceKey)
	mac.Write(buf)
	nonce := mac.Sum(nil)[:o.aead.NonceSize()]

	sealed := o.aead.Seal(nonce, nonce, buf, nil)
	return pcrypto.NewCiphertextFromBytes(sealed), nil
}

func (o *Oracle) open(ct pcrypto.Ciphertext) (uint64, error) {
	raw := ct.Bytes()
	if len(raw) < o.aead.NonceSize()+8 {
		return 0, errors.New("malformed ciphertext handle")
	}
	nonce, sealed := raw[:o.aead.NonceSize()], raw[o.aead.NonceSize():]
	buf, err := o.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return 0, fmt.Errorf("opening handle: %w", err)
	}
	if len(buf) != 8 {
		return 0, errors.New("unexpected cleartext size")
	}
	return binary.BigEndian.Uint64(buf), nil
}

// Encrypt seals a provider's cleartext value into a handle. Two
// encryptions of the same value produce the same handle, so handles leak
// value equality to anyone holding them.
func (o *Oracle) Encrypt(value uint64) (pcrypto.Ciphertext, error) {
	return o.seal(value)
}

// EncryptZero implements protocol.CryptoService.
func (o *Oracle) EncryptZero() (pcrypto.Ciphertext, error) {
	return o.seal(0)
}

// NotEqual implements protocol.CryptoService.
func (o *Oracle) NotEqual(a, b pcrypto.Ciphertext) (pcrypto.Ciphertext, error) {
	av, err := o.open(a)
	if err != nil {
		return nil, err
	}
	bv, err := o.open(b)
	if err != nil {
		return nil, err
	}
	if av != bv {
		return o.seal(1)
	}
	return o.seal(0)
}

// Multiply implements protocol.CryptoService.
func (o *Oracle) Multiply(a, b pcrypto.Ciphertext) (pcrypto.Ciphertext, error) {
	av, err := o.open(a)
	if err != nil {
		return nil, err
	}
	bv, err := o.open(b)
	if err != nil {
		return nil, err
	}
	return o.seal(av * bv)
}

// Add implements protocol.CryptoService.
func (o *Oracle) Add(a, b pcrypto.Ciphertext) (pcrypto.Ciphertext, error) {
	av, err := o.open(a)
	if err != nil {
		return nil, err
	}
	bv, err := o.open(b)
	if err != nil {
		return nil, err
	}
	return o.seal(av + bv)
}

// proofFor computes the HMAC binding a cleartext to its request id.
func (o *Oracle) proofFor(requestID uint64, cleartext []byte) []byte {
	mac := hmac.New(sha3.New256, o.proofKey)
	idBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(idBuf, requestID)
	mac.Write(idBuf)
	mac.Write(cleartext)
	return mac.Sum(nil)
}

// RequestDecryption implements protocol.CryptoService. The result is
// delivered asynchronously through the registered callback handler; the
// caller returns before delivery, matching the two-phase protocol.
func (o *Oracle) RequestDecryption(cts []pcrypto.Ciphertext, requestID uint64) error {
	o.mu.Lock()
	handler := o.handler
	o.mu.Unlock()

	if handler == nil {
		return errors.New("no callback handler registered")
	}
	if len(cts) != 1 {
		return errors.New("expected exactly one aggregate ciphertext")
	}

	value, err := o.open(cts[0])
	if err != nil {
		return err
	}
	cleartext := pcrypto.EncodeCleartext(value)
	proof := o.proofFor(requestID, cleartext)

	// Delivery happens off the caller's goroutine: the core holds its state
	// lock during RequestDecryption and the callback must re-acquire it.
	go func() {
		// The handler rejects anything inconsistent; errors here are the
		// consumer's to observe through its own reporting.
		_, _ = handler.OnDecryptionCallback(requestID, cleartext, proof)
	}()
	return nil
}

// VerifyProof implements protocol.CryptoService.
func (o *Oracle) VerifyProof(requestID uint64, cleartext, proof []byte) bool {
	return hmac.Equal(proof, o.proofFor(requestID, cleartext))
}
