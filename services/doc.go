// Package services exposes the PSI batch protocol over HTTP and persists
// its state.
//
// The Gateway wraps a protocol.Core with chi routes. Every mutating
// request is a protocol.Signed envelope; the recovered Ed25519 signer is
// the caller address the core enforces access control against, so the
// transport carries no separate credential. Decryption callbacks may
// arrive either in-process (a local oracle wired directly to the core) or
// over the /oracle/callback endpoint, authenticated against the registered
// oracle address.
//
// StateStore persists a full protocol snapshot after every successful
// mutation and keeps an append-only event log. PostgresStore is the
// production implementation; InMemoryStore backs tests.
package services
