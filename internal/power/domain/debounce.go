package power

// DefaultConfirmations is the number of consecutive differing samples
// required before a raw reading is accepted as a transition.
const DefaultConfirmations = 3

// Detector debounces raw sensor readings into confirmed transitions.
// A reading that differs from the stable state must repeat for the
// configured number of consecutive samples before it is accepted;
// any reversal resets the pending count.
type Detector struct {
	confirmations int
	stable        bool
	pendingValue  bool
	pendingCount  int
}

// NewDetector creates a detector seeded with the known stable state.
func NewDetector(stable bool, confirmations int) *Detector {
	if confirmations < 1 {
		confirmations = DefaultConfirmations
	}
	return &Detector{confirmations: confirmations, stable: stable}
}

// Observe feeds one raw sample and reports whether it confirmed a
// transition. After a confirmed transition Stable reflects the new state.
func (d *Detector) Observe(value bool) bool {
	if value == d.stable {
		d.pendingCount = 0
		return false
	}
	if d.pendingCount == 0 || d.pendingValue != value {
		d.pendingValue = value
		d.pendingCount = 0
	}
	d.pendingCount++
	if d.pendingCount < d.confirmations {
		return false
	}
	d.stable = value
	d.pendingCount = 0
	return true
}

// Stable returns the current debounced state.
func (d *Detector) Stable() bool {
	return d.stable
}

// Reset re-seeds the stable state and clears any pending samples.
// Used when the durable current state is reloaded.
func (d *Detector) Reset(stable bool) {
	d.stable = stable
	d.pendingCount = 0
}
