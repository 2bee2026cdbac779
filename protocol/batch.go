package protocol

import (
	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// Batch is an append-only, sequentially-identified collection of ciphertext
// handles. Elements are never removed or reordered; closing a batch only
// stops further submissions.
type Batch struct {
	ID       uint64
	Open     bool
	Elements []crypto.Ciphertext
}

// BatchStore owns all batches and their element sequences. Ids are assigned
// by a strictly increasing counter starting at 1; id 0 is reserved and
// never valid. Not safe for concurrent use; the Core serializes all access.
type BatchStore struct {
	nextID  uint64
	batches map[uint64]*Batch
}

// NewBatchStore creates an empty batch store.
func NewBatchStore() *BatchStore {
	return &BatchStore{
		nextID:  1,
		batches: make(map[uint64]*Batch),
	}
}

// Open allocates the next sequential id and creates an open, empty batch.
func (s *BatchStore) Open() *Batch {
	b := &Batch{
		ID:   s.nextID,
		Open: true,
	}
	s.nextID++
	s.batches[b.ID] = b
	return b
}

// Get returns the batch with the given id, or ErrInvalidBatch if the id is
// zero or was never allocated.
func (s *BatchStore) Get(id uint64) (*Batch, error) {
	b, ok := s.batches[id]
	if !ok {
		return nil, ErrInvalidBatch
	}
	return b, nil
}

// Close marks the batch as no longer accepting submissions. Closing does
// not prevent later decryption requests over the batch.
func (s *BatchStore) Close(id uint64) error {
	b, err := s.Get(id)
	if err != nil {
		return err
	}
	if !b.Open {
		return ErrBatchClosed
	}
	b.Open = false
	return nil
}

// Append adds a ciphertext handle at the next index of an open batch and
// returns that index.
func (s *BatchStore) Append(id uint64, ct crypto.Ciphertext) (uint64, error) {
	b, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	if !b.Open {
		return 0, ErrBatchClosed
	}
	b.Elements = append(b.Elements, ct)
	return uint64(len(b.Elements) - 1), nil
}
