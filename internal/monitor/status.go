package monitor

import "time"

// Status is a point-in-time view of the poll loop for health reporting.
type Status struct {
	LastPoll    time.Time `json:"last_poll"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	Cycles      uint64    `json:"cycles"`
	Failures    uint64    `json:"failures"`
	// NotifiedCount is the number of battles this process handled as new.
	NotifiedCount int64 `json:"notified_count"`
	// SeenSize is the current size of the seen set, when the store can
	// report it cheaply.
	SeenSize *int   `json:"seen_size,omitempty"`
	Interval string `json:"interval"`
}

// sizer is implemented by seen stores that know their size.
type sizer interface {
	Len() int
}

// Status returns the current loop status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status
	st.Interval = m.cfg.Interval.String()
	if sz, ok := m.seen.(sizer); ok {
		n := sz.Len()
		st.SeenSize = &n
	}
	return st
}

func (m *Monitor) recordSuccess(r CycleResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.LastPoll = r.StartedAt
	m.status.LastSuccess = r.StartedAt
	m.status.LastError = ""
	m.status.Cycles++
	m.status.NotifiedCount += int64(r.New)
}

func (m *Monitor) recordFailure(at time.Time, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.LastPoll = at
	m.status.LastError = err.Error()
	m.status.Cycles++
	m.status.Failures++
}
