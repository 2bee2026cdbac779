package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

type recordingSink struct {
	events []Event
}

func (s *recordingSink) Emit(event Event) {
	s.events = append(s.events, event)
}

func (s *recordingSink) kinds() []EventKind {
	out := make([]EventKind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

type coreFixture struct {
	core     *Core
	svc      *MockCryptoService
	sink     *recordingSink
	owner    crypto.Address
	provider crypto.Address
}

func newCoreFixture(t *testing.T, cooldownSeconds uint64) *coreFixture {
	t.Helper()

	owner := newTestAddress(t)
	provider := newTestAddress(t)
	svc := NewMockCryptoService()
	sink := &recordingSink{}

	core := NewCore(&Config{CooldownSeconds: cooldownSeconds, Identity: "test-deployment"}, owner, svc, sink)
	require.NoError(t, core.AddProvider(owner, provider))

	return &coreFixture{core: core, svc: svc, sink: sink, owner: owner, provider: provider}
}

// openBatchWith opens a batch and submits the given cleartext values.
func (f *coreFixture) openBatchWith(t *testing.T, values ...uint64) uint64 {
	t.Helper()

	batchID, err := f.core.OpenBatch(f.owner)
	require.NoError(t, err)
	for i, v := range values {
		index, err := f.core.SubmitElement(f.provider, batchID, MockEncrypt(v))
		require.NoError(t, err)
		require.Equal(t, uint64(i), index)
	}
	return batchID
}

func TestCore_SubmitRequiresProviderAndOpenBatch(t *testing.T) {
	f := newCoreFixture(t, 0)
	stranger := newTestAddress(t)
	batchID := f.openBatchWith(t, 5)

	_, err := f.core.SubmitElement(stranger, batchID, MockEncrypt(1))
	require.ErrorIs(t, err, ErrNotProvider)

	_, err = f.core.SubmitElement(f.provider, 99, MockEncrypt(1))
	require.ErrorIs(t, err, ErrInvalidBatch)

	require.NoError(t, f.core.CloseBatch(f.owner, batchID))
	_, err = f.core.SubmitElement(f.provider, batchID, MockEncrypt(1))
	require.ErrorIs(t, err, ErrBatchClosed)

	info, err := f.core.GetBatch(batchID)
	require.NoError(t, err)
	require.Equal(t, 1, info.ElementCount)
}

func TestCore_PauseBlocksGatedOperations(t *testing.T) {
	f := newCoreFixture(t, 0)
	batchID := f.openBatchWith(t, 1, 2)

	require.NoError(t, f.core.Pause(f.owner))

	_, err := f.core.OpenBatch(f.owner)
	require.ErrorIs(t, err, ErrPaused)
	_, err = f.core.SubmitElement(f.provider, batchID, MockEncrypt(3))
	require.ErrorIs(t, err, ErrPaused)
	_, err = f.core.RequestIntersection(f.provider, batchID)
	require.ErrorIs(t, err, ErrPaused)

	require.NoError(t, f.core.Unpause(f.owner))
	_, err = f.core.RequestIntersection(f.provider, batchID)
	require.NoError(t, err)
}

func TestCore_SubmissionCooldown(t *testing.T) {
	f := newCoreFixture(t, 30)

	now := time.Unix(10_000, 0)
	f.core.SetTimeFunc(func() time.Time { return now })

	batchID, err := f.core.OpenBatch(f.owner)
	require.NoError(t, err)

	_, err = f.core.SubmitElement(f.provider, batchID, MockEncrypt(1))
	require.NoError(t, err)

	_, err = f.core.SubmitElement(f.provider, batchID, MockEncrypt(2))
	require.ErrorIs(t, err, ErrCooldownActive)

	// A failed attempt must not extend the cooldown window.
	now = now.Add(30 * time.Second)
	_, err = f.core.SubmitElement(f.provider, batchID, MockEncrypt(2))
	require.NoError(t, err)

	// The submission cooldown does not gate decryption requests.
	_, err = f.core.RequestIntersection(f.provider, batchID)
	require.NoError(t, err)
}

func TestCore_RejectedSubmissionDoesNotConsumeCooldown(t *testing.T) {
	f := newCoreFixture(t, 30)

	now := time.Unix(10_000, 0)
	f.core.SetTimeFunc(func() time.Time { return now })

	batchID, err := f.core.OpenBatch(f.owner)
	require.NoError(t, err)
	require.NoError(t, f.core.CloseBatch(f.owner, batchID))

	_, err = f.core.SubmitElement(f.provider, batchID, MockEncrypt(1))
	require.ErrorIs(t, err, ErrBatchClosed)

	// The rejection above must not have started a cooldown window.
	secondID, err := f.core.OpenBatch(f.owner)
	require.NoError(t, err)
	_, err = f.core.SubmitElement(f.provider, secondID, MockEncrypt(1))
	require.NoError(t, err)
}

func TestCore_RequestIntersectionElementThreshold(t *testing.T) {
	f := newCoreFixture(t, 0)

	single := f.openBatchWith(t, 5)
	_, err := f.core.RequestIntersection(f.provider, single)
	require.ErrorIs(t, err, ErrNotEnoughElements)

	pair := f.openBatchWith(t, 5, 7)
	_, err = f.core.RequestIntersection(f.provider, pair)
	require.NoError(t, err)

	_, err = f.core.RequestIntersection(f.provider, 99)
	require.ErrorIs(t, err, ErrInvalidBatch)
}

func TestCore_RequestIntersectionOnClosedBatch(t *testing.T) {
	f := newCoreFixture(t, 0)
	batchID := f.openBatchWith(t, 5, 7)
	require.NoError(t, f.core.CloseBatch(f.owner, batchID))

	// Open/closed status is irrelevant to decryption requests.
	_, err := f.core.RequestIntersection(f.provider, batchID)
	require.NoError(t, err)
}

func TestCore_DecryptionFlowEndToEnd(t *testing.T) {
	f := newCoreFixture(t, 0)
	batchID := f.openBatchWith(t, 5, 0, 7)

	requestID, err := f.core.RequestIntersection(f.provider, batchID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), requestID)

	// The zero element is masked out of the aggregate.
	require.Len(t, f.svc.Requests, 1)
	aggregate, err := f.svc.CleartextOf(f.svc.Requests[0].Ciphertexts[0])
	require.NoError(t, err)
	require.Equal(t, uint64(12), aggregate)

	value, err := f.svc.DeliverLast(f.core)
	require.NoError(t, err)
	require.Equal(t, uint64(12), value)

	req, err := f.core.GetRequest(requestID)
	require.NoError(t, err)
	require.True(t, req.Processed)

	require.Contains(t, f.sink.kinds(), EventDecryptionCompleted)
}

func TestCore_CallbackReplayRejected(t *testing.T) {
	f := newCoreFixture(t, 0)
	batchID := f.openBatchWith(t, 5, 0, 7)

	requestID, err := f.core.RequestIntersection(f.provider, batchID)
	require.NoError(t, err)

	_, err = f.svc.DeliverLast(f.core)
	require.NoError(t, err)

	// Identical second delivery must be rejected and must not flip the
	// processed flag back.
	_, err = f.svc.DeliverLast(f.core)
	require.ErrorIs(t, err, ErrReplayDetected)

	req, err := f.core.GetRequest(requestID)
	require.NoError(t, err)
	require.True(t, req.Processed)
}

func TestCore_CallbackAfterBatchCloseStillFinalizes(t *testing.T) {
	f := newCoreFixture(t, 0)
	batchID := f.openBatchWith(t, 5, 0, 7)

	_, err := f.core.RequestIntersection(f.provider, batchID)
	require.NoError(t, err)

	// Closing does not alter element contents, so the state hash matches.
	require.NoError(t, f.core.CloseBatch(f.owner, batchID))

	value, err := f.svc.DeliverLast(f.core)
	require.NoError(t, err)
	require.Equal(t, uint64(12), value)
}

func TestCore_CallbackRejectsStateDrift(t *testing.T) {
	f := newCoreFixture(t, 0)
	batchID := f.openBatchWith(t, 5, 7)

	_, err := f.core.RequestIntersection(f.provider, batchID)
	require.NoError(t, err)

	// An element submitted between request and callback changes the batch
	// contents and must invalidate the committed state hash.
	_, err = f.core.SubmitElement(f.provider, batchID, MockEncrypt(3))
	require.NoError(t, err)

	_, err = f.svc.DeliverLast(f.core)
	require.ErrorIs(t, err, ErrInvalidState)

	// The request stays pending; it is not consumed by the rejection.
	requestID := f.svc.Requests[len(f.svc.Requests)-1].RequestID
	req, err := f.core.GetRequest(requestID)
	require.NoError(t, err)
	require.False(t, req.Processed)
}

func TestCore_CallbackRejectsInvalidProof(t *testing.T) {
	f := newCoreFixture(t, 0)
	batchID := f.openBatchWith(t, 5, 7)

	requestID, err := f.core.RequestIntersection(f.provider, batchID)
	require.NoError(t, err)

	cleartext := crypto.EncodeCleartext(12)
	_, err = f.core.OnDecryptionCallback(requestID, cleartext, []byte("forged"))
	require.ErrorIs(t, err, ErrInvalidProof)

	// A valid retry still succeeds afterwards.
	value, err := f.core.OnDecryptionCallback(requestID, cleartext, f.svc.ProofFor(requestID, cleartext))
	require.NoError(t, err)
	require.Equal(t, uint64(12), value)
}

func TestCore_CallbackUnknownRequest(t *testing.T) {
	f := newCoreFixture(t, 0)

	_, err := f.core.OnDecryptionCallback(77, crypto.EncodeCleartext(0), nil)
	require.ErrorIs(t, err, ErrUnknownRequest)
}

func TestCore_RequestIDsUnique(t *testing.T) {
	f := newCoreFixture(t, 0)
	first := f.openBatchWith(t, 1, 2)
	second := f.openBatchWith(t, 3, 4)

	id1, err := f.core.RequestIntersection(f.provider, first)
	require.NoError(t, err)
	id2, err := f.core.RequestIntersection(f.provider, second)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}

func TestCore_SnapshotRestoreRoundTrip(t *testing.T) {
	f := newCoreFixture(t, 60)

	// Advance the clock by the full cooldown on every read so the helper's
	// back-to-back submissions are not throttled.
	now := time.Unix(10_000, 0)
	f.core.SetTimeFunc(func() time.Time {
		now = now.Add(60 * time.Second)
		return now
	})

	batchID := f.openBatchWith(t, 5, 0, 7)
	require.NoError(t, f.core.CloseBatch(f.owner, batchID))

	requestID, err := f.core.RequestIntersection(f.provider, batchID)
	require.NoError(t, err)

	snap := f.core.Snapshot()

	restored := NewCore(&Config{CooldownSeconds: 0, Identity: "test-deployment"}, f.owner, f.svc, nil)
	require.NoError(t, restored.Restore(snap))

	require.True(t, restored.Owner().Equal(f.owner))
	require.True(t, restored.IsProvider(f.provider))
	require.Equal(t, uint64(60), restored.CooldownSeconds())

	info, err := restored.GetBatch(batchID)
	require.NoError(t, err)
	require.False(t, info.Open)
	require.Equal(t, 3, info.ElementCount)

	// The pending request survives the restart and still finalizes.
	cleartext := crypto.EncodeCleartext(12)
	value, err := restored.OnDecryptionCallback(requestID, cleartext, f.svc.ProofFor(requestID, cleartext))
	require.NoError(t, err)
	require.Equal(t, uint64(12), value)
}

func TestCore_EventsEmittedPerTransition(t *testing.T) {
	f := newCoreFixture(t, 0)
	batchID := f.openBatchWith(t, 5, 7)
	require.NoError(t, f.core.CloseBatch(f.owner, batchID))

	_, err := f.core.RequestIntersection(f.provider, batchID)
	require.NoError(t, err)
	_, err = f.svc.DeliverLast(f.core)
	require.NoError(t, err)

	require.Equal(t, []EventKind{
		EventProviderAdded,
		EventBatchOpened,
		EventElementSubmitted,
		EventElementSubmitted,
		EventBatchClosed,
		EventDecryptionRequested,
		EventDecryptionCompleted,
	}, f.sink.kinds())
}
