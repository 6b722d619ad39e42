package realtime

import "sync/atomic"

// Metrics tracks fan-out activity with lock-free counters. Snapshot is served
// on the internal metrics endpoint.
type Metrics struct {
	ActiveSessions  atomic.Int64
	TotalSessions   atomic.Int64
	BroadcastsTotal atomic.Int64
	FramesDelivered atomic.Int64
	FramesDropped   atomic.Int64
}

func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"active_sessions":  m.ActiveSessions.Load(),
		"total_sessions":   m.TotalSessions.Load(),
		"broadcasts_total": m.BroadcastsTotal.Load(),
		"frames_delivered": m.FramesDelivered.Load(),
		"frames_dropped":   m.FramesDropped.Load(),
	}
}
