package protocol

// Config provides the tunable parameters of a protocol deployment.
type Config struct {
	// CooldownSeconds is the minimum number of seconds between two gated
	// actions of the same class from the same address. Applies separately
	// to submissions and decryption requests.
	CooldownSeconds uint64 `json:"cooldown_seconds" yaml:"cooldown_seconds"`

	// Identity distinguishes this deployment in state-hash commitments.
	// Two deployments with different identities never produce colliding
	// state hashes for the same aggregate.
	Identity string `json:"identity" yaml:"identity"`
}

// minIntersectionElements is the smallest batch an intersection may be
// requested over. Single-element batches would reveal the element's value
// directly through the decrypted aggregate.
const minIntersectionElements = 2
