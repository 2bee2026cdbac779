package protocol

import (
	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// AccessRegistry tracks the owner address, the authorized provider set and
// the pause flag. It is not safe for concurrent use; the Core serializes
// all access to it.
type AccessRegistry struct {
	owner     crypto.Address
	providers map[string]bool
	paused    bool
}

// NewAccessRegistry creates a registry with the given owner. The owner is
// authorized as a provider from the start.
func NewAccessRegistry(owner crypto.Address) *AccessRegistry {
	return &AccessRegistry{
		owner:     owner,
		providers: map[string]bool{owner.String(): true},
	}
}

// Owner returns the current owner address.
func (r *AccessRegistry) Owner() crypto.Address {
	return r.owner
}

// IsProvider reports whether addr is an authorized provider.
func (r *AccessRegistry) IsProvider(addr crypto.Address) bool {
	return r.providers[addr.String()]
}

// Paused reports the pause flag.
func (r *AccessRegistry) Paused() bool {
	return r.paused
}

// Providers returns the current provider addresses in unspecified order.
func (r *AccessRegistry) Providers() []string {
	out := make([]string, 0, len(r.providers))
	for addr := range r.providers {
		out = append(out, addr)
	}
	return out
}

func (r *AccessRegistry) requireOwner(caller crypto.Address) error {
	if !caller.Equal(r.owner) {
		return ErrNotOwner
	}
	return nil
}

func (r *AccessRegistry) requireProvider(caller crypto.Address) error {
	if !r.providers[caller.String()] {
		return ErrNotProvider
	}
	return nil
}

func (r *AccessRegistry) requireNotPaused() error {
	if r.paused {
		return ErrPaused
	}
	return nil
}

// TransferOwnership reassigns the owner address. Owner-only.
func (r *AccessRegistry) TransferOwnership(caller, newOwner crypto.Address) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	r.owner = newOwner
	return nil
}

// AddProvider authorizes addr as a provider. Owner-only.
func (r *AccessRegistry) AddProvider(caller, addr crypto.Address) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	r.providers[addr.String()] = true
	return nil
}

// RemoveProvider revokes addr's provider authorization. Owner-only.
func (r *AccessRegistry) RemoveProvider(caller, addr crypto.Address) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	delete(r.providers, addr.String())
	return nil
}

// Pause sets the pause flag. Owner-only; fails if already paused.
func (r *AccessRegistry) Pause(caller crypto.Address) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if r.paused {
		return ErrAlreadyPaused
	}
	r.paused = true
	return nil
}

// Unpause clears the pause flag. Owner-only; fails if not paused.
func (r *AccessRegistry) Unpause(caller crypto.Address) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if !r.paused {
		return ErrNotPaused
	}
	r.paused = false
	return nil
}
