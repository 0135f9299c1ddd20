package modem

import "time"

// SetClock replaces the time source used for the duty cycle.
func (m *Modem) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
