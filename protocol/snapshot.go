package protocol

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// Snapshot is a serializable copy of the full protocol state, used by the
// services layer to persist and restore deployments.
type Snapshot struct {
	Owner           string            `json:"owner"`
	Providers       []string          `json:"providers"`
	Paused          bool              `json:"paused"`
	CooldownSeconds uint64            `json:"cooldown_seconds"`
	LastActions     map[string]int64  `json:"last_actions"`
	NextBatchID     uint64            `json:"next_batch_id"`
	Batches         []BatchSnapshot   `json:"batches"`
	NextRequestID   uint64            `json:"next_request_id"`
	Requests        []RequestSnapshot `json:"requests"`
}

// BatchSnapshot is the serialized form of one batch.
type BatchSnapshot struct {
	ID       uint64   `json:"id"`
	Open     bool     `json:"open"`
	Elements []string `json:"elements"`
}

// RequestSnapshot is the serialized form of one decryption request context.
type RequestSnapshot struct {
	ID        uint64 `json:"id"`
	BatchID   uint64 `json:"batch_id"`
	StateHash string `json:"state_hash"`
	Processed bool   `json:"processed"`
}

// Snapshot returns a serializable copy of the current state.
func (c *Core) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &Snapshot{
		Owner:           c.access.Owner().String(),
		Providers:       c.access.Providers(),
		Paused:          c.access.Paused(),
		CooldownSeconds: uint64(c.cooldowns.Cooldown() / time.Second),
		LastActions:     make(map[string]int64, len(c.cooldowns.lastAction)),
		NextBatchID:     c.batches.nextID,
		NextRequestID:   c.nextRequestID,
	}
	for key, last := range c.cooldowns.lastAction {
		snap.LastActions[key] = last.Unix()
	}
	for id := uint64(1); id < c.batches.nextID; id++ {
		b := c.batches.batches[id]
		bs := BatchSnapshot{ID: b.ID, Open: b.Open, Elements: make([]string, len(b.Elements))}
		for i, el := range b.Elements {
			bs.Elements[i] = el.String()
		}
		snap.Batches = append(snap.Batches, bs)
	}
	for id := uint64(1); id < c.nextRequestID; id++ {
		req := c.requests[id]
		snap.Requests = append(snap.Requests, RequestSnapshot{
			ID:        req.ID,
			BatchID:   req.BatchID,
			StateHash: hex.EncodeToString(req.StateHash[:]),
			Processed: req.Processed,
		})
	}
	return snap
}

// Restore replaces the core's state with the snapshot's contents.
func (c *Core) Restore(snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, err := crypto.NewAddressFromString(snap.Owner)
	if err != nil {
		return fmt.Errorf("invalid owner address: %w", err)
	}

	access := NewAccessRegistry(owner)
	access.providers = make(map[string]bool, len(snap.Providers))
	for _, p := range snap.Providers {
		access.providers[p] = true
	}
	access.paused = snap.Paused

	cooldowns := NewCooldownGuard(time.Duration(snap.CooldownSeconds) * time.Second)
	for key, unix := range snap.LastActions {
		cooldowns.lastAction[key] = time.Unix(unix, 0)
	}

	batches := NewBatchStore()
	batches.nextID = snap.NextBatchID
	for _, bs := range snap.Batches {
		b := &Batch{ID: bs.ID, Open: bs.Open}
		for _, el := range bs.Elements {
			ct, err := crypto.NewCiphertextFromString(el)
			if err != nil {
				return fmt.Errorf("invalid element in batch %d: %w", bs.ID, err)
			}
			b.Elements = append(b.Elements, ct)
		}
		batches.batches[b.ID] = b
	}

	requests := make(map[uint64]*DecryptionRequest, len(snap.Requests))
	for _, rs := range snap.Requests {
		hashBytes, err := hex.DecodeString(rs.StateHash)
		if err != nil || len(hashBytes) != 32 {
			return fmt.Errorf("invalid state hash for request %d", rs.ID)
		}
		req := &DecryptionRequest{ID: rs.ID, BatchID: rs.BatchID, Processed: rs.Processed}
		copy(req.StateHash[:], hashBytes)
		requests[rs.ID] = req
	}

	c.access = access
	c.cooldowns = cooldowns
	c.batches = batches
	c.requests = requests
	c.nextRequestID = snap.NextRequestID
	return nil
}
