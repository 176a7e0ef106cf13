package domain

// Machine tracks the server-authoritative lifecycle of a single escrow.
// Status moves monotonically along the partial order defined by
// EscrowStatus.Rank; stale or duplicated pushes are absorbed as no-ops, which
// is what makes event application safe across reconnect boundaries.
type Machine struct {
	EscrowID string
	Status   EscrowStatus
	// Disputed is orthogonal to Status: a disputed escrow stays HELD until
	// the dispute resolves externally to RELEASED or REFUNDED.
	Disputed bool
}

// NewMachine creates a machine at the given starting status.
func NewMachine(escrowID string, status EscrowStatus) *Machine {
	return &Machine{EscrowID: escrowID, Status: status}
}

// Apply folds a server-reported status into the machine and reports whether
// the observable state changed. Statuses equal to or behind the current one
// are no-ops; a status never regresses.
func (m *Machine) Apply(incoming EscrowStatus) bool {
	if !incoming.Valid() {
		return false
	}

	if incoming == EscrowStatusDisputed {
		if m.Status.IsTerminal() {
			return false // stale dispute after resolution
		}
		changed := false
		if m.Status == EscrowStatusInitiated {
			m.Status = EscrowStatusHeld
			changed = true
		}
		if !m.Disputed {
			m.Disputed = true
			changed = true
		}
		return changed
	}

	switch {
	case incoming.Rank() < m.Status.Rank():
		return false
	case incoming.Rank() == m.Status.Rank():
		// Duplicate, or a conflicting terminal status; first one wins.
		return false
	}

	m.Status = incoming
	if incoming.IsTerminal() && m.Disputed {
		// External resolution of the dispute.
		m.Disputed = false
	}
	return true
}

// CanConfirm reports whether a local confirm action is permitted.
func (m *Machine) CanConfirm() bool {
	return !m.Disputed &&
		(m.Status == EscrowStatusInitiated || m.Status == EscrowStatusHeld)
}

// CanDispute reports whether a local dispute action is permitted.
func (m *Machine) CanDispute() bool {
	return m.CanConfirm()
}
