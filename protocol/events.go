package protocol

import (
	"log/slog"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// EventKind names a protocol state transition.
type EventKind string

const (
	EventOwnershipTransferred EventKind = "ownership_transferred"
	EventProviderAdded        EventKind = "provider_added"
	EventProviderRemoved      EventKind = "provider_removed"
	EventPaused               EventKind = "paused"
	EventUnpaused             EventKind = "unpaused"
	EventCooldownUpdated      EventKind = "cooldown_updated"
	EventBatchOpened          EventKind = "batch_opened"
	EventBatchClosed          EventKind = "batch_closed"
	EventElementSubmitted     EventKind = "element_submitted"
	EventDecryptionRequested  EventKind = "decryption_requested"
	EventDecryptionCompleted  EventKind = "decryption_completed"
)

// Event is emitted once per successful state transition. Only the fields
// relevant to the transition kind are populated.
type Event struct {
	Kind EventKind `json:"kind"`

	// Caller is the address that triggered the transition, when one exists.
	Caller crypto.Address `json:"caller,omitempty"`

	// Subject is the affected address for ownership and provider events.
	Subject crypto.Address `json:"subject,omitempty"`

	BatchID      uint64 `json:"batch_id,omitempty"`
	ElementIndex uint64 `json:"element_index,omitempty"`
	RequestID    uint64 `json:"request_id,omitempty"`

	// Value carries the decoded aggregate for decryption completions and
	// the new cooldown for cooldown updates.
	Value uint64 `json:"value,omitempty"`
}

// FanoutSink forwards every event to all wrapped sinks in order.
type FanoutSink []EventSink

// Emit implements EventSink.
func (s FanoutSink) Emit(event Event) {
	for _, sink := range s {
		sink.Emit(event)
	}
}

// SlogSink logs every event through a structured logger.
type SlogSink struct {
	Log *slog.Logger
}

// Emit implements EventSink.
func (s *SlogSink) Emit(event Event) {
	attrs := []any{"kind", string(event.Kind)}
	if len(event.Caller) > 0 {
		attrs = append(attrs, "caller", event.Caller.String())
	}
	if len(event.Subject) > 0 {
		attrs = append(attrs, "subject", event.Subject.String())
	}
	if event.BatchID != 0 {
		attrs = append(attrs, "batchID", event.BatchID)
	}
	if event.RequestID != 0 {
		attrs = append(attrs, "requestID", event.RequestID)
	}
	switch event.Kind {
	case EventElementSubmitted:
		attrs = append(attrs, "elementIndex", event.ElementIndex)
	case EventDecryptionCompleted, EventCooldownUpdated:
		attrs = append(attrs, "value", event.Value)
	}
	s.Log.Info("protocol event", attrs...)
}
