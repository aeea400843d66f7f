package rtmpcast

import "rtmpcast/internal/monitor"

// MonitorSource adapts a Session to internal/monitor's StatsSource
// interface, so a caller can hand a Session straight to monitor.NewHub.
type MonitorSource struct {
	session *Session
}

// NewMonitorSource wraps session for use with monitor.NewHub.
func NewMonitorSource(session *Session) *MonitorSource {
	return &MonitorSource{session: session}
}

// Stats implements monitor.StatsSource.
func (m *MonitorSource) Stats() monitor.StatsSnapshot {
	s := m.session.Stats()
	return monitor.StatsSnapshot{
		State:           s.State,
		BytesSent:       s.BytesSent,
		BytesReceived:   s.BytesReceived,
		QueuedBytes:     s.QueuedBytes,
		InSaturation:    s.InSaturation,
		AppConnected:    s.AppConnected,
		PublishStreamID: s.PublishStreamID,
	}
}
