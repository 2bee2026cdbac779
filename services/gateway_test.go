package services

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
	"github.com/AngelaRollins9561294/psiFHE-Tool/protocol"
	"github.com/AngelaRollins9561294/psiFHE-Tool/testutil"
)

type gatewayFixture struct {
	router      chi.Router
	core        *protocol.Core
	svc         *protocol.MockCryptoService
	store       *InMemoryStore
	ownerKey    crypto.PrivateKey
	owner       crypto.Address
	providerKey crypto.PrivateKey
	provider    crypto.Address
}

func setupGateway(t *testing.T) *gatewayFixture {
	t.Helper()

	owner, ownerKey := testutil.NewIdentity(t)
	provider, providerKey := testutil.NewIdentity(t)

	svc := protocol.NewMockCryptoService()
	store := NewInMemoryStore()
	core := protocol.NewCore(&protocol.Config{CooldownSeconds: 0, Identity: "gateway-test"}, owner, svc, &StoreSink{Store: store})
	require.NoError(t, core.AddProvider(owner, provider))

	gateway := NewGateway(&GatewayConfig{}, core, store)
	router := chi.NewRouter()
	gateway.RegisterRoutes(router)

	return &gatewayFixture{
		router:      router,
		core:        core,
		svc:         svc,
		store:       store,
		ownerKey:    ownerKey,
		owner:       owner,
		providerKey: providerKey,
		provider:    provider,
	}
}

func (f *gatewayFixture) openBatch(t *testing.T) uint64 {
	t.Helper()
	w := testutil.PostSigned(t, f.router, "/admin/open-batch", f.ownerKey, &OpenBatchRequest{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return testutil.DecodeResponse[OpenBatchResponse](t, w).BatchID
}

func (f *gatewayFixture) submit(t *testing.T, batchID, value uint64) uint64 {
	t.Helper()
	w := testutil.PostSigned(t, f.router, fmt.Sprintf("/provider/submit/%d", batchID), f.providerKey, &SubmitElementRequest{
		BatchID:    batchID,
		Ciphertext: protocol.MockEncrypt(value).String(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return testutil.DecodeResponse[SubmitElementResponse](t, w).Index
}

func TestGateway_AdminOperations(t *testing.T) {
	f := setupGateway(t)

	other, _ := testutil.NewIdentity(t)
	w := testutil.PostSigned(t, f.router, "/admin/add-provider", f.ownerKey, &ProviderRequest{Address: other.String()})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, f.core.IsProvider(other))

	w = testutil.PostSigned(t, f.router, "/admin/remove-provider", f.ownerKey, &ProviderRequest{Address: other.String()})
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, f.core.IsProvider(other))

	w = testutil.PostSigned(t, f.router, "/admin/pause", f.ownerKey, &PauseRequest{Pause: true})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, f.core.Paused())

	// Double pause violates the alternation rule.
	w = testutil.PostSigned(t, f.router, "/admin/pause", f.ownerKey, &PauseRequest{Pause: true})
	require.Equal(t, http.StatusConflict, w.Code)

	w = testutil.PostSigned(t, f.router, "/admin/unpause", f.ownerKey, &PauseRequest{})
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.PostSigned(t, f.router, "/admin/cooldown", f.ownerKey, &CooldownRequest{Seconds: 45})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, uint64(45), f.core.CooldownSeconds())
}

// A captured owner-signed pause envelope must not verify against the
// unpause endpoint (or vice versa): the signed body names the direction.
func TestGateway_PauseEnvelopeDoesNotReplayAcrossEndpoints(t *testing.T) {
	f := setupGateway(t)

	postRaw := func(path string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w
	}

	pauseSigned, err := protocol.NewSigned(f.ownerKey, &PauseRequest{Pause: true})
	require.NoError(t, err)
	pauseBody, err := json.Marshal(pauseSigned)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, postRaw("/admin/pause", pauseBody).Code)
	require.True(t, f.core.Paused())

	// The identical bytes replayed against the opposite endpoint.
	w := postRaw("/admin/unpause", pauseBody)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.True(t, f.core.Paused(), "replayed pause envelope must not unpause")

	unpauseSigned, err := protocol.NewSigned(f.ownerKey, &PauseRequest{Pause: false})
	require.NoError(t, err)
	unpauseBody, err := json.Marshal(unpauseSigned)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, postRaw("/admin/unpause", unpauseBody).Code)
	require.False(t, f.core.Paused())

	w = postRaw("/admin/pause", unpauseBody)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, f.core.Paused(), "replayed unpause envelope must not pause")
}

func TestGateway_NonOwnerRejected(t *testing.T) {
	f := setupGateway(t)

	stranger, strangerKey := testutil.NewIdentity(t)
	w := testutil.PostSigned(t, f.router, "/admin/add-provider", strangerKey, &ProviderRequest{Address: stranger.String()})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.False(t, f.core.IsProvider(stranger))
}

func TestGateway_SubmitAndQueryBatch(t *testing.T) {
	f := setupGateway(t)
	batchID := f.openBatch(t)

	require.Equal(t, uint64(0), f.submit(t, batchID, 5))
	require.Equal(t, uint64(1), f.submit(t, batchID, 7))

	w := testutil.Get(t, f.router, fmt.Sprintf("/batches/%d", batchID))
	require.Equal(t, http.StatusOK, w.Code)
	info := testutil.DecodeResponse[protocol.BatchInfo](t, w)
	require.Equal(t, 2, info.ElementCount)
	require.True(t, info.Open)

	w = testutil.Get(t, f.router, "/batches/99")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGateway_BatchIDMismatchRejected(t *testing.T) {
	f := setupGateway(t)
	batchID := f.openBatch(t)

	// Signed body says a different batch than the URL: a replayed envelope
	// must not be redirectable to another batch.
	w := testutil.PostSigned(t, f.router, fmt.Sprintf("/provider/submit/%d", batchID), f.providerKey, &SubmitElementRequest{
		BatchID:    batchID + 1,
		Ciphertext: protocol.MockEncrypt(5).String(),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGateway_SubmitToClosedBatchConflict(t *testing.T) {
	f := setupGateway(t)
	batchID := f.openBatch(t)

	w := testutil.PostSigned(t, f.router, fmt.Sprintf("/admin/close-batch/%d", batchID), f.ownerKey, &CloseBatchRequest{BatchID: batchID})
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.PostSigned(t, f.router, fmt.Sprintf("/provider/submit/%d", batchID), f.providerKey, &SubmitElementRequest{
		BatchID:    batchID,
		Ciphertext: protocol.MockEncrypt(5).String(),
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestGateway_IntersectionFlowWithSignedCallback(t *testing.T) {
	oracleAddr, oracleKey := testutil.NewIdentity(t)

	owner, ownerKey := testutil.NewIdentity(t)
	provider, providerKey := testutil.NewIdentity(t)
	svc := protocol.NewMockCryptoService()
	store := NewInMemoryStore()
	core := protocol.NewCore(&protocol.Config{Identity: "gateway-test"}, owner, svc, nil)
	require.NoError(t, core.AddProvider(owner, provider))

	gateway := NewGateway(&GatewayConfig{OracleAddress: oracleAddr}, core, store)
	router := chi.NewRouter()
	gateway.RegisterRoutes(router)

	w := testutil.PostSigned(t, router, "/admin/open-batch", ownerKey, &OpenBatchRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	batchID := testutil.DecodeResponse[OpenBatchResponse](t, w).BatchID

	for _, value := range []uint64{5, 0, 7} {
		w = testutil.PostSigned(t, router, fmt.Sprintf("/provider/submit/%d", batchID), providerKey, &SubmitElementRequest{
			BatchID:    batchID,
			Ciphertext: protocol.MockEncrypt(value).String(),
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = testutil.PostSigned(t, router, fmt.Sprintf("/provider/request-intersection/%d", batchID), providerKey, &IntersectionRequest{BatchID: batchID})
	require.Equal(t, http.StatusOK, w.Code)
	requestID := testutil.DecodeResponse[IntersectionResponse](t, w).RequestID

	cleartext := crypto.EncodeCleartext(12)
	callback := &CallbackRequest{
		RequestID: requestID,
		Cleartext: hex.EncodeToString(cleartext),
		Proof:     hex.EncodeToString(svc.ProofFor(requestID, cleartext)),
	}

	// A callback signed by anyone but the registered oracle is rejected.
	w = testutil.PostSigned(t, router, "/oracle/callback", providerKey, callback)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.PostSigned(t, router, "/oracle/callback", oracleKey, callback)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, uint64(12), testutil.DecodeResponse[CallbackResponse](t, w).Value)

	// Replaying the identical callback hits the replay guard.
	w = testutil.PostSigned(t, router, "/oracle/callback", oracleKey, callback)
	require.Equal(t, http.StatusConflict, w.Code)

	w = testutil.Get(t, router, fmt.Sprintf("/requests/%d", requestID))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, testutil.DecodeResponse[RequestStatusResponse](t, w).Processed)
}

func TestGateway_PersistsSnapshotsAndEvents(t *testing.T) {
	f := setupGateway(t)
	batchID := f.openBatch(t)
	f.submit(t, batchID, 5)

	snap, err := f.store.LoadSnapshot()
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Len(t, snap.Batches, 1)
	require.Len(t, snap.Batches[0].Elements, 1)

	var kinds []protocol.EventKind
	for _, e := range f.store.Events() {
		kinds = append(kinds, e.Kind)
	}
	require.Contains(t, kinds, protocol.EventBatchOpened)
	require.Contains(t, kinds, protocol.EventElementSubmitted)

	// A fresh core restored from the snapshot serves the same state.
	restored := protocol.NewCore(&protocol.Config{Identity: "gateway-test"}, f.owner, f.svc, nil)
	require.NoError(t, restored.Restore(snap))
	info, err := restored.GetBatch(batchID)
	require.NoError(t, err)
	require.Equal(t, 1, info.ElementCount)
}

func TestGateway_ConfigEndpoint(t *testing.T) {
	f := setupGateway(t)

	w := testutil.Get(t, f.router, "/config")
	require.Equal(t, http.StatusOK, w.Code)
	cfg := testutil.DecodeResponse[DeploymentConfigResponse](t, w)
	require.Equal(t, f.owner.String(), cfg.Owner)
	require.False(t, cfg.Paused)
	require.Contains(t, cfg.Providers, f.provider.String())
}
