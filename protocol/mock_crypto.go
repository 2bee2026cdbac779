package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/sha3"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// MockCryptoService implements CryptoService for testing. Handles carry
// their cleartext value directly as 8 big-endian bytes, so tests can
// construct elements with known values and check the accumulated result.
// Behavior can be customized per call by setting the function fields.
type MockCryptoService struct {
	EncryptZeroFunc       func() (crypto.Ciphertext, error)
	NotEqualFunc          func(a, b crypto.Ciphertext) (crypto.Ciphertext, error)
	MultiplyFunc          func(a, b crypto.Ciphertext) (crypto.Ciphertext, error)
	AddFunc               func(a, b crypto.Ciphertext) (crypto.Ciphertext, error)
	RequestDecryptionFunc func(cts []crypto.Ciphertext, requestID uint64) error
	VerifyProofFunc       func(requestID uint64, cleartext, proof []byte) bool

	// Requests records every decryption request accepted by the default
	// RequestDecryption implementation.
	Requests []MockDecryptionRequest
}

// MockDecryptionRequest captures one recorded decryption request.
type MockDecryptionRequest struct {
	RequestID   uint64
	Ciphertexts []crypto.Ciphertext
}

// NewMockCryptoService creates a mock with the default cleartext-backed
// behavior.
func NewMockCryptoService() *MockCryptoService {
	return &MockCryptoService{}
}

// MockEncrypt creates a handle carrying the given cleartext value.
func MockEncrypt(value uint64) crypto.Ciphertext {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return crypto.NewCiphertextFromBytes(buf)
}

func mockDecode(ct crypto.Ciphertext) (uint64, error) {
	if len(ct) != 8 {
		return 0, errors.New("mock handle must be 8 bytes")
	}
	return binary.BigEndian.Uint64(ct), nil
}

// CleartextOf returns the value carried by a mock handle.
func (m *MockCryptoService) CleartextOf(ct crypto.Ciphertext) (uint64, error) {
	return mockDecode(ct)
}

// ProofFor returns the proof that the default VerifyProof accepts for the
// given request id and cleartext.
func (m *MockCryptoService) ProofFor(requestID uint64, cleartext []byte) []byte {
	h := sha3.New256()
	idBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(idBuf, requestID)
	h.Write(idBuf)
	h.Write(cleartext)
	h.Write([]byte("mock-decryption-proof"))
	return h.Sum(nil)
}

// EncryptZero implements CryptoService.
func (m *MockCryptoService) EncryptZero() (crypto.Ciphertext, error) {
	if m.EncryptZeroFunc != nil {
		return m.EncryptZeroFunc()
	}
	return MockEncrypt(0), nil
}

// NotEqual implements CryptoService.
func (m *MockCryptoService) NotEqual(a, b crypto.Ciphertext) (crypto.Ciphertext, error) {
	if m.NotEqualFunc != nil {
		return m.NotEqualFunc(a, b)
	}
	av, err := mockDecode(a)
	if err != nil {
		return nil, err
	}
	bv, err := mockDecode(b)
	if err != nil {
		return nil, err
	}
	if av != bv {
		return MockEncrypt(1), nil
	}
	return MockEncrypt(0), nil
}

// Multiply implements CryptoService.
func (m *MockCryptoService) Multiply(a, b crypto.Ciphertext) (crypto.Ciphertext, error) {
	if m.MultiplyFunc != nil {
		return m.MultiplyFunc(a, b)
	}
	av, err := mockDecode(a)
	if err != nil {
		return nil, err
	}
	bv, err := mockDecode(b)
	if err != nil {
		return nil, err
	}
	return MockEncrypt(av * bv), nil
}

// Add implements CryptoService.
func (m *MockCryptoService) Add(a, b crypto.Ciphertext) (crypto.Ciphertext, error) {
	if m.AddFunc != nil {
		return m.AddFunc(a, b)
	}
	av, err := mockDecode(a)
	if err != nil {
		return nil, err
	}
	bv, err := mockDecode(b)
	if err != nil {
		return nil, err
	}
	return MockEncrypt(av + bv), nil
}

// RequestDecryption implements CryptoService.
func (m *MockCryptoService) RequestDecryption(cts []crypto.Ciphertext, requestID uint64) error {
	if m.RequestDecryptionFunc != nil {
		return m.RequestDecryptionFunc(cts, requestID)
	}
	m.Requests = append(m.Requests, MockDecryptionRequest{
		RequestID:   requestID,
		Ciphertexts: cts,
	})
	return nil
}

// VerifyProof implements CryptoService.
func (m *MockCryptoService) VerifyProof(requestID uint64, cleartext, proof []byte) bool {
	if m.VerifyProofFunc != nil {
		return m.VerifyProofFunc(requestID, cleartext, proof)
	}
	return bytes.Equal(proof, m.ProofFor(requestID, cleartext))
}

// DeliverLast drives the callback for the most recent recorded request,
// decrypting the aggregate with the mock's cleartext knowledge and
// producing a valid proof. Returns the decoded value from the handler.
func (m *MockCryptoService) DeliverLast(handler CallbackHandler) (uint64, error) {
	if len(m.Requests) == 0 {
		return 0, errors.New("no pending decryption requests")
	}
	req := m.Requests[len(m.Requests)-1]
	if len(req.Ciphertexts) != 1 {
		return 0, errors.New("expected exactly one aggregate ciphertext")
	}
	value, err := mockDecode(req.Ciphertexts[0])
	if err != nil {
		return 0, err
	}
	cleartext := crypto.EncodeCleartext(value)
	return handler.OnDecryptionCallback(req.RequestID, cleartext, m.ProofFor(req.RequestID, cleartext))
}
