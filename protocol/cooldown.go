package protocol

import (
	"time"

	"github.com/AngelaRollins9561294/psiFHE-Tool/crypto"
)

// ActionClass discriminates rate-limited operation kinds. Cooldowns are
// tracked and enforced independently per class.
type ActionClass string

const (
	// ActionSubmit covers element submissions.
	ActionSubmit ActionClass = "submit"

	// ActionDecrypt covers intersection decryption requests.
	ActionDecrypt ActionClass = "decrypt"
)

// CooldownGuard throttles gated actions per (address, action class). The
// recorded timestamp for a pair is monotonically non-decreasing. Not safe
// for concurrent use; the Core serializes all access.
type CooldownGuard struct {
	cooldown   time.Duration
	lastAction map[string]time.Time
}

// NewCooldownGuard creates a guard with the given cooldown duration.
func NewCooldownGuard(cooldown time.Duration) *CooldownGuard {
	return &CooldownGuard{
		cooldown:   cooldown,
		lastAction: make(map[string]time.Time),
	}
}

// Cooldown returns the currently configured cooldown duration.
func (g *CooldownGuard) Cooldown() time.Duration {
	return g.cooldown
}

// SetCooldown updates the cooldown duration. Applies to all future checks;
// already-recorded timestamps are not re-validated.
func (g *CooldownGuard) SetCooldown(cooldown time.Duration) {
	g.cooldown = cooldown
}

func actionKey(addr crypto.Address, class ActionClass) string {
	return addr.String() + "/" + string(class)
}

// Check reports whether addr may perform an action of the given class at
// time now, without recording anything. The boundary is inclusive: an
// action exactly cooldown after the previous one passes.
func (g *CooldownGuard) Check(addr crypto.Address, class ActionClass, now time.Time) error {
	last, ok := g.lastAction[actionKey(addr, class)]
	if !ok {
		return nil
	}
	if now.Before(last.Add(g.cooldown)) {
		return ErrCooldownActive
	}
	return nil
}

// Record stores now as the last action time for (addr, class). Called only
// after the guarded operation has fully validated, so rejected operations
// never consume the cooldown.
func (g *CooldownGuard) Record(addr crypto.Address, class ActionClass, now time.Time) {
	g.lastAction[actionKey(addr, class)] = now
}

// CheckAndRecord validates the cooldown and, on success, records now as the
// new last-action timestamp.
func (g *CooldownGuard) CheckAndRecord(addr crypto.Address, class ActionClass, now time.Time) error {
	if err := g.Check(addr, class, now); err != nil {
		return err
	}
	g.Record(addr, class, now)
	return nil
}
