package ports

import "neurohub/internal/core/domain"

// Principal is the identity resolved from a credential token.
type Principal struct {
	UserID   domain.UserID
	Username string
	Role     domain.Role
}

// TokenVerifier is the identity collaborator consumed at connection
// authentication time only.
type TokenVerifier interface {
	Verify(token string) (*Principal, error)
}

// Sender delivers an event to a connection, fire-and-forget. It must not
// block: slow receivers drop messages rather than stall the coordinator.
type Sender interface {
	Send(to domain.ConnectionID, ev domain.Event)
}

// LivenessProbe reports whether a connection's underlying transport is
// still open. Consulted by the sweeper; never based on elapsed time.
type LivenessProbe func() bool

// MetricsCollector receives coordination-plane measurements.
type MetricsCollector interface {
	ConnectionOpened(role domain.Role)
	ConnectionClosed(role domain.Role)
	AuthFailure()
	PairingCreated()
	PairingRemoved()
	RoomCount(n int)
	SessionStarted()
	SessionEnded()
	FrameIngested()
	FramesEvicted(n int)
	EventsDelivered(n int)
	MessageDiscarded()
}

// NopMetrics is a MetricsCollector that drops everything. Used in tests
// and when monitoring is disabled.
type NopMetrics struct{}

func (NopMetrics) ConnectionOpened(domain.Role) {}
func (NopMetrics) ConnectionClosed(domain.Role) {}
func (NopMetrics) AuthFailure()                 {}
func (NopMetrics) PairingCreated()              {}
func (NopMetrics) PairingRemoved()              {}
func (NopMetrics) RoomCount(int)                {}
func (NopMetrics) SessionStarted()              {}
func (NopMetrics) SessionEnded()                {}
func (NopMetrics) FrameIngested()               {}
func (NopMetrics) FramesEvicted(int)            {}
func (NopMetrics) EventsDelivered(int)          {}
func (NopMetrics) MessageDiscarded()            {}
