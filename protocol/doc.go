// Package protocol implements a privacy-preserving batch aggregation
// protocol in which authorized data providers append encrypted numeric
// elements to shared batches and later request an intersection-style
// aggregate over them. The numeric result is only ever revealed through an
// external decryption oracle after proof verification.
//
// # Architecture
//
// The protocol is composed of four state components, all owned by the Core
// container and serialized under a single mutex:
//
//  1. AccessRegistry: the owner address, the authorized provider set and
//     the pause flag. Administrative operations are owner-only; operational
//     calls are provider-only and fail closed while paused.
//
//  2. CooldownGuard: per-address, per-action-class rate limiting. Element
//     submissions and decryption requests are throttled independently, and
//     a rejected operation never consumes its cooldown.
//
//  3. BatchStore: append-only batches of opaque ciphertext handles with
//     strictly increasing ids starting at 1. Elements are never removed or
//     reordered; closing a batch only stops further submissions.
//
//  4. The decryption request table: the binding context carried across the
//     asynchronous decryption boundary.
//
// # Encrypted Accumulation
//
// Accumulate folds a batch into a single aggregate ciphertext using the
// crypto service's homomorphic primitives: starting from an encrypted
// zero, each element is masked by an encrypted "element != 0" boolean and
// added to the running total. The result is an encrypted sum of the
// batch's non-zero elements.
//
// # Two-Phase Decryption
//
// RequestIntersection computes the aggregate synchronously, commits a
// state hash binding the request to the exact batch contents, and forwards
// the aggregate to the crypto service. The matching callback arrives at an
// arbitrary later time and is treated as untrusted input: the request must
// exist and be unfinalized, the recomputed state hash must match, and the
// decryption proof must verify. A request finalizes at most once; rejected
// callbacks leave no trace and the external flow can be re-driven.
//
// # Security Considerations
//
//   - Ciphertext handles are opaque; the core never inspects or compares
//     them by value, and all arithmetic goes through the CryptoService
//     interface.
//   - The crypto service is trusted for liveness only: result integrity is
//     enforced by proof verification on every callback.
//   - Every rejected operation is fully atomic; no partial state is ever
//     left behind.
package protocol
