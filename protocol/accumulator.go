package protocol

import (
	"fmt"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// Accumulate folds a batch's ciphertext handles into one aggregate
// ciphertext using the crypto service's homomorphic primitives. Each
// element is masked by an encrypted "element != 0" boolean before being
// added, so the result is an encrypted sum of the batch's non-zero
// elements.
//
// Note: despite the protocol's "intersection" naming, this is a
// count-weighted sum within a single batch, not a cross-provider set
// intersection. The algorithm is preserved exactly as the reference
// protocol defines it.
func Accumulate(svc CryptoService, elements []crypto.Ciphertext) (crypto.Ciphertext, error) {
	total, err := svc.EncryptZero()
	if err != nil {
		return nil, fmt.Errorf("encrypting zero: %w", err)
	}
	zero := total

	for i, el := range elements {
		mask, err := svc.NotEqual(el, zero)
		if err != nil {
			return nil, fmt.Errorf("comparing element %d: %w", i, err)
		}
		masked, err := svc.Multiply(el, mask)
		if err != nil {
			return nil, fmt.Errorf("masking element %d: %w", i, err)
		}
		total, err = svc.Add(total, masked)
		if err != nil {
			return nil, fmt.Errorf("adding element %d: %w", i, err)
		}
	}

	return total, nil
}
