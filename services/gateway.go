package services

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
	"github.com/AngelaRollins9561294/psiFHE-Tool/metrics"
	"github.com/AngelaRollins9561294/psiFHE-Tool/protocol"
)

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	// OracleAddress authenticates callback envelopes arriving over HTTP.
	// Empty disables the HTTP callback endpoint (in-process oracle only).
	OracleAddress crypto.Address

	Log *slog.Logger
}

// Gateway exposes the protocol operations over HTTP. Every mutating
// request arrives as a protocol.Signed envelope; the recovered signer is
// the caller identity the core enforces access control against. After each
// successful mutation the gateway persists a snapshot to its state store.
type Gateway struct {
	config *GatewayConfig
	core   *protocol.Core
	store  StateStore
	log    *slog.Logger
}

// NewGateway creates a gateway over an existing protocol core.
func NewGateway(config *GatewayConfig, core *protocol.Core, store StateStore) *Gateway {
	log := config.Log
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{config: config, core: core, store: store, log: log}
}

// RegisterRoutes registers the gateway's HTTP routes.
func (g *Gateway) RegisterRoutes(router chi.Router) {
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Post("/admin/transfer-ownership", g.handleTransferOwnership)
	router.Post("/admin/add-provider", g.handleAddProvider)
	router.Post("/admin/remove-provider", g.handleRemoveProvider)
	router.Post("/admin/pause", g.handlePause)
	router.Post("/admin/unpause", g.handleUnpause)
	router.Post("/admin/cooldown", g.handleSetCooldown)
	router.Post("/admin/open-batch", g.handleOpenBatch)
	router.Post("/admin/close-batch/{batch_id}", g.handleCloseBatch)

	router.Post("/provider/submit/{batch_id}", g.handleSubmitElement)
	router.Post("/provider/request-intersection/{batch_id}", g.handleRequestIntersection)

	router.Post("/oracle/callback", g.handleOracleCallback)

	router.Get("/batches/{batch_id}", g.handleGetBatch)
	router.Get("/requests/{request_id}", g.handleGetRequest)
	router.Get("/config", g.handleGetConfig)
}

// statusForError maps protocol rejections to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, protocol.ErrNotOwner),
		errors.Is(err, protocol.ErrNotProvider),
		errors.Is(err, protocol.ErrInvalidProof):
		return http.StatusForbidden
	case errors.Is(err, protocol.ErrInvalidBatch),
		errors.Is(err, protocol.ErrUnknownRequest):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.Is(err, protocol.ErrPaused),
		errors.Is(err, protocol.ErrAlreadyPaused),
		errors.Is(err, protocol.ErrNotPaused),
		errors.Is(err, protocol.ErrBatchClosed),
		errors.Is(err, protocol.ErrReplayDetected),
		errors.Is(err, protocol.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrNotEnoughElements):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func rejectionReason(err error) string {
	for _, kind := range []error{
		protocol.ErrNotOwner, protocol.ErrNotProvider, protocol.ErrPaused,
		protocol.ErrAlreadyPaused, protocol.ErrNotPaused, protocol.ErrCooldownActive,
		protocol.ErrInvalidBatch, protocol.ErrBatchClosed, protocol.ErrNotEnoughElements,
		protocol.ErrUnknownRequest, protocol.ErrReplayDetected, protocol.ErrInvalidState,
		protocol.ErrInvalidProof,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal"
}

func (g *Gateway) rejectOperation(w http.ResponseWriter, op string, err error) {
	metrics.IncRejection(op, rejectionReason(err))
	g.log.Warn("operation rejected", "op", op, "err", err)
	http.Error(w, err.Error(), statusForError(err))
}

// persist saves a snapshot after a successful mutation. Persistence
// failures do not roll back the operation; they are surfaced in logs for
// the operator.
func (g *Gateway) persist(op string) {
	metrics.IncOperation(op)
	if g.store == nil {
		return
	}
	if err := g.store.SaveSnapshot(g.core.Snapshot()); err != nil {
		g.log.Error("persisting snapshot failed", "op", op, "err", err)
	}
}

// recoverCaller decodes and authenticates a signed request envelope.
func recoverCaller[T any](req *http.Request) (*T, crypto.Address, error) {
	var signed protocol.Signed[T]
	if err := json.NewDecoder(req.Body).Decode(&signed); err != nil {
		return nil, nil, fmt.Errorf("decoding request: %w", err)
	}
	obj, caller, err := signed.Recover()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid signature: %w", err)
	}
	return obj, caller, nil
}

func urlBatchID(req *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(req, "batch_id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (g *Gateway) handleTransferOwnership(w http.ResponseWriter, req *http.Request) {
	body, caller, err := recoverCaller[TransferOwnershipRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	newOwner, err := crypto.NewAddressFromString(body.NewOwner)
	if err != nil {
		http.Error(w, "invalid new owner address", http.StatusBadRequest)
		return
	}

	if err := g.core.TransferOwnership(caller, newOwner); err != nil {
		g.rejectOperation(w, "transfer_ownership", err)
		return
	}
	g.persist("transfer_ownership")
	writeJSON(w, &StatusResponse{Success: true})
}

func (g *Gateway) handleAddProvider(w http.ResponseWriter, req *http.Request) {
	body, caller, err := recoverCaller[ProviderRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	addr, err := crypto.NewAddressFromString(body.Address)
	if err != nil {
		http.Error(w, "invalid provider address", http.StatusBadRequest)
		return
	}

	if err := g.core.AddProvider(caller, addr); err != nil {
		g.rejectOperation(w, "add_provider", err)
		return
	}
	g.persist("add_provider")
	writeJSON(w, &StatusResponse{Success: true})
}

func (g *Gateway) handleRemoveProvider(w http.ResponseWriter, req *http.Request) {
	body, caller, err := recoverCaller[ProviderRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	addr, err := crypto.NewAddressFromString(body.Address)
	if err != nil {
		http.Error(w, "invalid provider address", http.StatusBadRequest)
		return
	}

	if err := g.core.RemoveProvider(caller, addr); err != nil {
		g.rejectOperation(w, "remove_provider", err)
		return
	}
	g.persist("remove_provider")
	writeJSON(w, &StatusResponse{Success: true})
}

func (g *Gateway) handlePause(w http.ResponseWriter, req *http.Request) {
	body, caller, err := recoverCaller[PauseRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !body.Pause {
		http.Error(w, "signed request does not authorize pausing", http.StatusBadRequest)
		return
	}

	if err := g.core.Pause(caller); err != nil {
		g.rejectOperation(w, "pause", err)
		return
	}
	g.persist("pause")
	writeJSON(w, &StatusResponse{Success: true})
}

func (g *Gateway) handleUnpause(w http.ResponseWriter, req *http.Request) {
	body, caller, err := recoverCaller[PauseRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Pause {
		http.Error(w, "signed request does not authorize unpausing", http.StatusBadRequest)
		return
	}

	if err := g.core.Unpause(caller); err != nil {
		g.rejectOperation(w, "unpause", err)
		return
	}
	g.persist("unpause")
	writeJSON(w, &StatusResponse{Success: true})
}

func (g *Gateway) handleSetCooldown(w http.ResponseWriter, req *http.Request) {
	body, caller, err := recoverCaller[CooldownRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := g.core.SetCooldownSeconds(caller, body.Seconds); err != nil {
		g.rejectOperation(w, "set_cooldown", err)
		return
	}
	g.persist("set_cooldown")
	writeJSON(w, &StatusResponse{Success: true})
}

func (g *Gateway) handleOpenBatch(w http.ResponseWriter, req *http.Request) {
	_, caller, err := recoverCaller[OpenBatchRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	batchID, err := g.core.OpenBatch(caller)
	if err != nil {
		g.rejectOperation(w, "open_batch", err)
		return
	}
	g.persist("open_batch")
	writeJSON(w, &OpenBatchResponse{BatchID: batchID})
}

func (g *Gateway) handleCloseBatch(w http.ResponseWriter, req *http.Request) {
	urlID, err := urlBatchID(req)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}
	body, caller, err := recoverCaller[CloseBatchRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.BatchID != urlID {
		http.Error(w, fmt.Sprintf("batch id mismatch: URL says %d, body says %d", urlID, body.BatchID), http.StatusBadRequest)
		return
	}

	if err := g.core.CloseBatch(caller, body.BatchID); err != nil {
		g.rejectOperation(w, "close_batch", err)
		return
	}
	g.persist("close_batch")
	writeJSON(w, &StatusResponse{Success: true})
}

func (g *Gateway) handleSubmitElement(w http.ResponseWriter, req *http.Request) {
	urlID, err := urlBatchID(req)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}
	body, caller, err := recoverCaller[SubmitElementRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.BatchID != urlID {
		http.Error(w, fmt.Sprintf("batch id mismatch: URL says %d, body says %d", urlID, body.BatchID), http.StatusBadRequest)
		return
	}
	ct, err := body.ParseCiphertext()
	if err != nil {
		http.Error(w, "invalid ciphertext encoding", http.StatusBadRequest)
		return
	}

	index, err := g.core.SubmitElement(caller, body.BatchID, ct)
	if err != nil {
		g.rejectOperation(w, "submit_element", err)
		return
	}
	g.persist("submit_element")
	writeJSON(w, &SubmitElementResponse{BatchID: body.BatchID, Index: index})
}

func (g *Gateway) handleRequestIntersection(w http.ResponseWriter, req *http.Request) {
	urlID, err := urlBatchID(req)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}
	body, caller, err := recoverCaller[IntersectionRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.BatchID != urlID {
		http.Error(w, fmt.Sprintf("batch id mismatch: URL says %d, body says %d", urlID, body.BatchID), http.StatusBadRequest)
		return
	}

	requestID, err := g.core.RequestIntersection(caller, body.BatchID)
	if err != nil {
		g.rejectOperation(w, "request_intersection", err)
		return
	}
	g.persist("request_intersection")
	writeJSON(w, &IntersectionResponse{RequestID: requestID})
}

func (g *Gateway) handleOracleCallback(w http.ResponseWriter, req *http.Request) {
	if len(g.config.OracleAddress) == 0 {
		http.Error(w, "HTTP callback endpoint disabled", http.StatusNotFound)
		return
	}

	body, signer, err := recoverCaller[CallbackRequest](req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !signer.Equal(g.config.OracleAddress) {
		http.Error(w, "callback signer is not the registered oracle", http.StatusForbidden)
		return
	}

	cleartext, err := hex.DecodeString(body.Cleartext)
	if err != nil {
		http.Error(w, "invalid cleartext encoding", http.StatusBadRequest)
		return
	}
	proof, err := hex.DecodeString(body.Proof)
	if err != nil {
		http.Error(w, "invalid proof encoding", http.StatusBadRequest)
		return
	}

	value, err := g.core.OnDecryptionCallback(body.RequestID, cleartext, proof)
	if err != nil {
		g.rejectOperation(w, "oracle_callback", err)
		return
	}
	metrics.IncDecryptionFinalized()
	g.persist("oracle_callback")
	writeJSON(w, &CallbackResponse{RequestID: body.RequestID, Value: value})
}

func (g *Gateway) handleGetBatch(w http.ResponseWriter, req *http.Request) {
	batchID, err := urlBatchID(req)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	info, err := g.core.GetBatch(batchID)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, info)
}

func (g *Gateway) handleGetRequest(w http.ResponseWriter, req *http.Request) {
	requestID, err := strconv.ParseUint(chi.URLParam(req, "request_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}

	info, err := g.core.GetRequest(requestID)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, &RequestStatusResponse{
		RequestID: info.ID,
		BatchID:   info.BatchID,
		Processed: info.Processed,
	})
}

func (g *Gateway) handleGetConfig(w http.ResponseWriter, req *http.Request) {
	snap := g.core.Snapshot()
	writeJSON(w, &DeploymentConfigResponse{
		Owner:           snap.Owner,
		Providers:       snap.Providers,
		Paused:          snap.Paused,
		CooldownSeconds: snap.CooldownSeconds,
	})
}
