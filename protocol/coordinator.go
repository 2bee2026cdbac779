package protocol

import (
	"fmt"
	"sync"
	"time"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// DecryptionRequest is the context stored across the asynchronous
// decryption boundary. It is the only state carried between
// RequestIntersection and the matching callback.
type DecryptionRequest struct {
	ID        uint64
	BatchID   uint64
	StateHash [32]byte
	Processed bool
}

// Core is the protocol state container. It owns the access registry, the
// cooldown guard, the batch store and the decryption request table, and
// serializes every operation under a single mutex: each call observes a
// fully-settled prior state and either commits all of its state changes or
// none of them.
//
// The decryption flow is the one asynchronous boundary. RequestIntersection
// returns immediately after recording context; OnDecryptionCallback may be
// invoked at an arbitrary later time by the crypto service and is treated
// as untrusted input.
type Core struct {
	mu sync.Mutex

	access    *AccessRegistry
	cooldowns *CooldownGuard
	batches   *BatchStore

	requests      map[uint64]*DecryptionRequest
	nextRequestID uint64

	svc      CryptoService
	sink     EventSink
	identity []byte

	now func() time.Time
}

// NewCore creates a protocol core with the given initial owner. A nil sink
// drops all events.
func NewCore(cfg *Config, owner crypto.Address, svc CryptoService, sink EventSink) *Core {
	return &Core{
		access:        NewAccessRegistry(owner),
		cooldowns:     NewCooldownGuard(time.Duration(cfg.CooldownSeconds) * time.Second),
		batches:       NewBatchStore(),
		requests:      make(map[uint64]*DecryptionRequest),
		nextRequestID: 1,
		svc:           svc,
		sink:          sink,
		identity:      []byte(cfg.Identity),
		now:           time.Now,
	}
}

// SetTimeFunc overrides the clock used for cooldown checks.
// Only used in tests.
func (c *Core) SetTimeFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Core) emit(event Event) {
	if c.sink != nil {
		c.sink.Emit(event)
	}
}

// Owner returns the current owner address.
func (c *Core) Owner() crypto.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access.Owner()
}

// IsProvider reports whether addr is an authorized provider.
func (c *Core) IsProvider(addr crypto.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access.IsProvider(addr)
}

// Paused reports the pause flag.
func (c *Core) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access.Paused()
}

// CooldownSeconds returns the configured cooldown in seconds.
func (c *Core) CooldownSeconds() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(c.cooldowns.Cooldown() / time.Second)
}

// TransferOwnership reassigns the owner address. Owner-only.
func (c *Core) TransferOwnership(caller, newOwner crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.access.TransferOwnership(caller, newOwner); err != nil {
		return err
	}
	c.emit(Event{Kind: EventOwnershipTransferred, Caller: caller, Subject: newOwner})
	return nil
}

// AddProvider authorizes addr as a data provider. Owner-only.
func (c *Core) AddProvider(caller, addr crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.access.AddProvider(caller, addr); err != nil {
		return err
	}
	c.emit(Event{Kind: EventProviderAdded, Caller: caller, Subject: addr})
	return nil
}

// RemoveProvider revokes addr's provider authorization. Owner-only.
func (c *Core) RemoveProvider(caller, addr crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.access.RemoveProvider(caller, addr); err != nil {
		return err
	}
	c.emit(Event{Kind: EventProviderRemoved, Caller: caller, Subject: addr})
	return nil
}

// Pause stops all gated operations. Owner-only; fails if already paused.
func (c *Core) Pause(caller crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.access.Pause(caller); err != nil {
		return err
	}
	c.emit(Event{Kind: EventPaused, Caller: caller})
	return nil
}

// Unpause resumes gated operations. Owner-only; fails if not paused.
func (c *Core) Unpause(caller crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.access.Unpause(caller); err != nil {
		return err
	}
	c.emit(Event{Kind: EventUnpaused, Caller: caller})
	return nil
}

// SetCooldownSeconds updates the cooldown applied to all future checks.
// Owner-only. Already-recorded timestamps are not re-validated.
func (c *Core) SetCooldownSeconds(caller crypto.Address, seconds uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.access.requireOwner(caller); err != nil {
		return err
	}
	c.cooldowns.SetCooldown(time.Duration(seconds) * time.Second)
	c.emit(Event{Kind: EventCooldownUpdated, Caller: caller, Value: seconds})
	return nil
}

// OpenBatch allocates the next sequential batch id and creates an open,
// empty batch. Owner-only; fails while paused.
func (c *Core) OpenBatch(caller crypto.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.access.requireOwner(caller); err != nil {
		return 0, err
	}
	if err := c.access.requireNotPaused(); err != nil {
		return 0, err
	}

	b := c.batches.Open()
	c.emit(Event{Kind: EventBatchOpened, Caller: caller, BatchID: b.ID})
	return b.ID, nil
}

// CloseBatch stops further submissions to the batch. Owner-only. Closing
// does not prevent later decryption requests.
func (c *Core) CloseBatch(caller crypto.Address, batchID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.access.requireOwner(caller); err != nil {
		return err
	}
	if err := c.batches.Close(batchID); err != nil {
		return err
	}
	c.emit(Event{Kind: EventBatchClosed, Caller: caller, BatchID: batchID})
	return nil
}

// SubmitElement appends a ciphertext handle to an open batch and returns
// the element's index. Provider-only, fails while paused, and is rate
// limited by the submission cooldown. The cooldown is consumed only when
// the submission succeeds.
func (c *Core) SubmitElement(caller crypto.Address, batchID uint64, ct crypto.Ciphertext) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.access.requireProvider(caller); err != nil {
		return 0, err
	}
	if err := c.access.requireNotPaused(); err != nil {
		return 0, err
	}
	now := c.now()
	if err := c.cooldowns.Check(caller, ActionSubmit, now); err != nil {
		return 0, err
	}

	index, err := c.batches.Append(batchID, ct)
	if err != nil {
		return 0, err
	}
	c.cooldowns.Record(caller, ActionSubmit, now)

	c.emit(Event{Kind: EventElementSubmitted, Caller: caller, BatchID: batchID, ElementIndex: index})
	return index, nil
}

// RequestIntersection computes the encrypted aggregate over the batch,
// stores a binding decryption context and forwards the aggregate to the
// crypto service for asynchronous decryption. Provider-only, fails while
// paused, rate limited by the decryption-request cooldown. The batch may
// be open or closed but must hold at least two elements.
func (c *Core) RequestIntersection(caller crypto.Address, batchID uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.access.requireProvider(caller); err != nil {
		return 0, err
	}
	if err := c.access.requireNotPaused(); err != nil {
		return 0, err
	}
	now := c.now()
	if err := c.cooldowns.Check(caller, ActionDecrypt, now); err != nil {
		return 0, err
	}

	b, err := c.batches.Get(batchID)
	if err != nil {
		return 0, err
	}
	if len(b.Elements) < minIntersectionElements {
		return 0, ErrNotEnoughElements
	}

	aggregate, err := Accumulate(c.svc, b.Elements)
	if err != nil {
		return 0, fmt.Errorf("accumulating batch %d: %w", batchID, err)
	}

	requestID := c.nextRequestID
	if err := c.svc.RequestDecryption([]crypto.Ciphertext{aggregate}, requestID); err != nil {
		return 0, fmt.Errorf("requesting decryption: %w", err)
	}

	// Commit only after the service accepted the request.
	c.nextRequestID++
	c.requests[requestID] = &DecryptionRequest{
		ID:        requestID,
		BatchID:   batchID,
		StateHash: crypto.StateHash(aggregate, c.identity),
	}
	c.cooldowns.Record(caller, ActionDecrypt, now)

	c.emit(Event{Kind: EventDecryptionRequested, Caller: caller, BatchID: batchID, RequestID: requestID})
	return requestID, nil
}

// OnDecryptionCallback finalizes a decryption request. The callback is
// untrusted input: the request context must exist and be unprocessed, the
// batch contents must hash to the state committed at request time, and the
// proof must verify. Rejections leave the request pending so the external
// flow can be re-driven. A request finalizes at most once.
func (c *Core) OnDecryptionCallback(requestID uint64, cleartext []byte, proof []byte) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.requests[requestID]
	if !ok {
		return 0, ErrUnknownRequest
	}
	if req.Processed {
		return 0, ErrReplayDetected
	}

	b, err := c.batches.Get(req.BatchID)
	if err != nil {
		return 0, err
	}
	aggregate, err := Accumulate(c.svc, b.Elements)
	if err != nil {
		return 0, fmt.Errorf("recomputing aggregate for batch %d: %w", req.BatchID, err)
	}
	if crypto.StateHash(aggregate, c.identity) != req.StateHash {
		return 0, ErrInvalidState
	}

	if !c.svc.VerifyProof(requestID, cleartext, proof) {
		return 0, ErrInvalidProof
	}

	value, err := crypto.DecodeCleartext(cleartext)
	if err != nil {
		return 0, fmt.Errorf("decoding cleartext: %w", err)
	}

	req.Processed = true
	c.emit(Event{Kind: EventDecryptionCompleted, BatchID: req.BatchID, RequestID: requestID, Value: value})
	return value, nil
}

// BatchInfo is a read-only view of a batch.
type BatchInfo struct {
	ID           uint64              `json:"id"`
	Open         bool                `json:"open"`
	ElementCount int                 `json:"element_count"`
	Elements     []crypto.Ciphertext `json:"elements,omitempty"`
}

// GetBatch returns a copy of the batch's current state.
func (c *Core) GetBatch(batchID uint64) (*BatchInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.batches.Get(batchID)
	if err != nil {
		return nil, err
	}
	elements := make([]crypto.Ciphertext, len(b.Elements))
	copy(elements, b.Elements)
	return &BatchInfo{
		ID:           b.ID,
		Open:         b.Open,
		ElementCount: len(b.Elements),
		Elements:     elements,
	}, nil
}

// GetRequest returns a copy of the decryption request context.
func (c *Core) GetRequest(requestID uint64) (*DecryptionRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.requests[requestID]
	if !ok {
		return nil, ErrUnknownRequest
	}
	cp := *req
	return &cp, nil
}
