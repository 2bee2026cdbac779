package protocol

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// Signed wraps an operation payload with an Ed25519 signature. The signer's
// address is the authenticated caller identity used for access control.
type Signed[T any] struct {
	Signer    crypto.Address   `json:"signer"`
	Signature crypto.Signature `json:"signature"`
	Object    *T               `json:"object"`
}

// NewSigned creates an authenticated message by signing the serialized
// object together with the signer's address.
func NewSigned[T any](privkey crypto.PrivateKey, obj *T) (*Signed[T], error) {
	signer, err := privkey.Address()
	if err != nil {
		return nil, err
	}

	serializedData, err := SerializeMessage(obj)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(privkey, append(serializedData, signer...))
	if err != nil {
		return nil, err
	}

	return &Signed[T]{
		Signer:    signer,
		Signature: signature,
		Object:    obj,
	}, nil
}

// UnsafeObject returns the wrapped object without verifying the signature.
func (s *Signed[T]) UnsafeObject() *T {
	return s.Object
}

// Recover verifies the signature and returns the authenticated object along
// with the signer's address.
func (s *Signed[T]) Recover() (*T, crypto.Address, error) {
	serializedData, err := SerializeMessage(s.Object)
	if err != nil {
		return nil, nil, err
	}

	ok := s.Signature.Verify(s.Signer, append(serializedData, s.Signer...))
	if !ok {
		return nil, nil, errors.New("signature not valid")
	}

	return s.Object, s.Signer, nil
}

// SerializeMessage serializes a message deterministically for signing.
func SerializeMessage[T any](obj *T) ([]byte, error) {
	return json.Marshal(obj)
}

// DecodeMessage decodes a JSON message from a reader.
func DecodeMessage[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, err
	}
	return &obj, nil
}
