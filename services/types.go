package services

import (
	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// Request payloads are carried inside protocol.Signed envelopes; the
// signer's address is the authenticated caller. Parameters that also
// appear in the URL are repeated in the signed body so a signature cannot
// be replayed against a different target.

// TransferOwnershipRequest reassigns the owner address.
type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

// ProviderRequest adds or removes a provider authorization.
type ProviderRequest struct {
	Address string `json:"address"`
}

// PauseRequest toggles the pause flag. Pause names the direction the
// signer intends, so a signed pause cannot be replayed as an unpause.
type PauseRequest struct {
	Pause bool `json:"pause"`
}

// CooldownRequest updates the global cooldown.
type CooldownRequest struct {
	Seconds uint64 `json:"seconds"`
}

// OpenBatchRequest opens a new batch.
type OpenBatchRequest struct{}

// CloseBatchRequest closes an existing batch.
type CloseBatchRequest struct {
	BatchID uint64 `json:"batch_id"`
}

// SubmitElementRequest appends a ciphertext handle to a batch.
type SubmitElementRequest struct {
	BatchID    uint64 `json:"batch_id"`
	Ciphertext string `json:"ciphertext"`
}

// IntersectionRequest starts the decryption flow over a batch.
type IntersectionRequest struct {
	BatchID uint64 `json:"batch_id"`
}

// CallbackRequest delivers a decryption result from the crypto service.
type CallbackRequest struct {
	RequestID uint64 `json:"request_id"`
	Cleartext string `json:"cleartext"`
	Proof     string `json:"proof"`
}

// ParseCiphertext decodes the hex-encoded handle.
func (r *SubmitElementRequest) ParseCiphertext() (crypto.Ciphertext, error) {
	return crypto.NewCiphertextFromString(r.Ciphertext)
}

// StatusResponse reports a mutation's outcome.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// OpenBatchResponse returns the allocated batch id.
type OpenBatchResponse struct {
	BatchID uint64 `json:"batch_id"`
}

// SubmitElementResponse returns the element's index in the batch.
type SubmitElementResponse struct {
	BatchID uint64 `json:"batch_id"`
	Index   uint64 `json:"index"`
}

// IntersectionResponse returns the allocated decryption request id.
type IntersectionResponse struct {
	RequestID uint64 `json:"request_id"`
}

// CallbackResponse returns the finalized aggregate value.
type CallbackResponse struct {
	RequestID uint64 `json:"request_id"`
	Value     uint64 `json:"value"`
}

// RequestStatusResponse describes a decryption request's context.
type RequestStatusResponse struct {
	RequestID uint64 `json:"request_id"`
	BatchID   uint64 `json:"batch_id"`
	Processed bool   `json:"processed"`
}

// DeploymentConfigResponse describes the deployment's public parameters.
type DeploymentConfigResponse struct {
	Owner           string   `json:"owner"`
	Providers       []string `json:"providers"`
	Paused          bool     `json:"paused"`
	CooldownSeconds uint64   `json:"cooldown_seconds"`
}
