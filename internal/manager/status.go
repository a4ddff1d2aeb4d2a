package manager

import (
	"time"

	"inferd/pkg/types"
)

// Status builds a read-only snapshot of the service, including the log
// ring. Observers receive copies; only the Manager mutates this state.
func (m *Manager) Status() types.ServiceStatus {
	m.mu.RLock()
	state := m.state
	port := m.boundPort
	addr := m.boundAddr
	started := m.startTime
	loaded := m.rt != nil
	m.mu.RUnlock()

	st := types.ServiceStatus{
		State:             state,
		Running:           state == types.StateRunning,
		Busy:              m.gate.Busy(),
		ModelLoaded:       loaded,
		Port:              port,
		Address:           addr,
		RequestsProcessed: m.gate.Processed(),
		Logs:              m.ring.Snapshot(),
	}
	if st.Running && !started.IsZero() {
		st.UptimeSeconds = int64(time.Since(started).Seconds())
	}
	return st
}

// Subscribe returns a one-way status feed refreshed once per second while
// the server runs.
func (m *Manager) Subscribe() <-chan types.ServiceStatus {
	return m.feed.Subscribe()
}
