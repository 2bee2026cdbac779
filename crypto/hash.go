package crypto

import (
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// StateHash commits to an aggregate ciphertext handle at decryption-request
// time. The same hash is recomputed at callback time over the then-current
// batch contents, so any drift between request and callback is rejected.
// The component identity is mixed in so hashes from different deployments
// never collide.
func StateHash(aggregate Ciphertext, componentIdentity []byte) [32]byte {
	h := sha3.New256()
	h.Write(aggregate)
	h.Write(componentIdentity)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveKey derives a subkey from a master secret for the given purpose
// label. Used by the decryption oracle to separate its sealing and proof
// keys.
func DeriveKey(masterSecret []byte, purpose string, size int) ([]byte, error) {
	r := hkdf.New(sha3.New256, masterSecret, nil, []byte(purpose))
	key := make([]byte, size)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncodeCleartext encodes a numeric aggregate value as callback cleartext.
func EncodeCleartext(value uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return buf
}

// DecodeCleartext decodes callback cleartext into the numeric aggregate.
func DecodeCleartext(cleartext []byte) (uint64, error) {
	if len(cleartext) != 8 {
		return 0, errors.New("cleartext must be 8 bytes")
	}
	return binary.BigEndian.Uint64(cleartext), nil
}
