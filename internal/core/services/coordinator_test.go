package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"neurohub/internal/core/domain"
	"neurohub/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// captureSender records every delivery so tests can assert on the exact
// fan-out of each coordinator step.
type captureSender struct {
	mu         sync.Mutex
	deliveries []domain.Delivery
}

func (s *captureSender) Send(to domain.ConnectionID, ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, domain.Delivery{To: to, Event: ev})
}

func (s *captureSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = nil
}

// ofType returns the events of the given type delivered to the connection.
func (s *captureSender) ofType(to domain.ConnectionID, t domain.EventType) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, d := range s.deliveries {
		if d.To == to && d.Event.Type == t {
			out = append(out, d.Event)
		}
	}
	return out
}

func (s *captureSender) countType(t domain.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.deliveries {
		if d.Event.Type == t {
			n++
		}
	}
	return n
}

func newTestCoordinator(t *testing.T) (*Coordinator, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	c := NewCoordinator(CoordinatorConfig{
		SweepInterval:     time.Hour,
		RetentionWindow:   time.Minute,
		PurgeInterval:     time.Hour,
		MaxBufferCapacity: 100,
		DefaultStream:     domain.StreamConfig{SampleRate: 250, ChannelCount: 8, BufferCapacity: 10},
	}, sender, nil, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
	return c, sender
}

func addConn(c *Coordinator, id domain.ConnectionID, role domain.Role, live ports.LivenessProbe) {
	conn := domain.NewConnection(id, domain.UserID("user-"+string(id)), role, "device "+string(id), domain.ClientMeta{})
	if live == nil {
		live = func() bool { return true }
	}
	c.Register(conn, live)
}

// inspect runs fn on the dispatch goroutine so tests can read coordinator
// state without racing the loop.
func inspect(c *Coordinator, fn func()) {
	c.dispatch(func() []domain.Delivery {
		fn()
		return nil
	})
}

func TestRegister_WelcomeAndAnnounce(t *testing.T) {
	c, sender := newTestCoordinator(t)

	addConn(c, "conn_a", domain.RoleController, nil)
	addConn(c, "conn_b", domain.RoleParticipant, nil)

	require.Len(t, sender.ofType("conn_a", domain.EventWelcome), 1)
	require.Len(t, sender.ofType("conn_b", domain.EventWelcome), 1)

	welcome := sender.ofType("conn_b", domain.EventWelcome)[0].Payload.(domain.WelcomePayload)
	assert.Equal(t, domain.ConnectionID("conn_b"), welcome.ConnectionID)
	assert.Equal(t, domain.RoleParticipant, welcome.Role)

	// The earlier connection learns about the newcomer, not itself.
	joined := sender.ofType("conn_a", domain.EventDeviceJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, domain.ConnectionID("conn_b"), joined[0].Payload.(domain.DeviceInfo).ConnectionID)
	assert.Empty(t, sender.ofType("conn_b", domain.EventDeviceJoined))

	assert.Equal(t, 2, c.ConnectionCount())
}

func TestDeviceScan_ExcludesRequester(t *testing.T) {
	c, sender := newTestCoordinator(t)
	addConn(c, "conn_a", domain.RoleController, nil)
	addConn(c, "conn_b", domain.RoleParticipant, nil)
	addConn(c, "conn_c", domain.RoleObserver, nil)
	sender.reset()

	c.DeviceScan("conn_a")

	lists := sender.ofType("conn_a", domain.EventDeviceList)
	require.Len(t, lists, 1)
	devices := lists[0].Payload.([]domain.DeviceInfo)
	require.Len(t, devices, 2)
	for _, d := range devices {
		assert.NotEqual(t, domain.ConnectionID("conn_a"), d.ConnectionID)
	}
}

func TestTouch_AnswersWithBothTimestamps(t *testing.T) {
	c, sender := newTestCoordinator(t)
	addConn(c, "conn_a", domain.RoleParticipant, nil)
	sender.reset()

	before := time.Now().UnixMilli()
	c.Touch("conn_a", 12345)

	pongs := sender.ofType("conn_a", domain.EventPong)
	require.Len(t, pongs, 1)
	pong := pongs[0].Payload.(domain.PongPayload)
	assert.Equal(t, int64(12345), pong.ClientTimestamp)
	assert.GreaterOrEqual(t, pong.ServerTimestamp, before)
}

func TestDeregister_AnnouncesDeparture(t *testing.T) {
	c, sender := newTestCoordinator(t)
	addConn(c, "conn_a", domain.RoleController, nil)
	addConn(c, "conn_b", domain.RoleParticipant, nil)
	sender.reset()

	c.Deregister("conn_b")

	left := sender.ofType("conn_a", domain.EventDeviceLeft)
	require.Len(t, left, 1)
	assert.Equal(t, domain.ConnectionID("conn_b"), left[0].Payload.(domain.DeviceInfo).ConnectionID)
	assert.Equal(t, 1, c.ConnectionCount())

	// Deregistering twice is a no-op.
	sender.reset()
	c.Deregister("conn_b")
	assert.Zero(t, sender.countType(domain.EventDeviceLeft))
}

func TestSweep_EvictsOnlyClosedTransports(t *testing.T) {
	c, sender := newTestCoordinator(t)
	addConn(c, "conn_live", domain.RoleController, func() bool { return true })
	addConn(c, "conn_dead1", domain.RoleParticipant, func() bool { return false })
	addConn(c, "conn_dead2", domain.RoleObserver, func() bool { return false })
	sender.reset()

	c.dispatch(func() []domain.Delivery { return c.sweepClosed() })

	assert.Equal(t, 1, c.ConnectionCount())
	devices := c.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, domain.ConnectionID("conn_live"), devices[0].ConnectionID)

	// The survivor heard about both departures.
	assert.Len(t, sender.ofType("conn_live", domain.EventDeviceLeft), 2)
}

func TestDispatch_ReturnsAfterShutdown(t *testing.T) {
	c := NewCoordinator(CoordinatorConfig{
		SweepInterval:     time.Hour,
		RetentionWindow:   time.Minute,
		PurgeInterval:     time.Hour,
		MaxBufferCapacity: 100,
		DefaultStream:     domain.StreamConfig{SampleRate: 250, ChannelCount: 8, BufferCapacity: 10},
	}, &captureSender{}, nil, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	// Occupy the loop with a step that blocks until released.
	entered := make(chan struct{})
	release := make(chan struct{})
	go c.dispatch(func() []domain.Delivery {
		close(entered)
		<-release
		return nil
	})
	<-entered

	// Queue another step behind the busy one, then shut down before it
	// can run. The caller must come back either way.
	returned := make(chan struct{})
	go func() {
		c.dispatch(func() []domain.Delivery { return nil })
		close(returned)
	}()

	cancel()
	close(release)

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked past shutdown")
	}
}

func TestSweep_NeverEvictsOnElapsedTime(t *testing.T) {
	c, _ := newTestCoordinator(t)
	addConn(c, "conn_idle", domain.RoleParticipant, func() bool { return true })

	// Backdate liveness far beyond any plausible interval; the open
	// transport must keep the connection registered.
	inspect(c, func() {
		c.connections["conn_idle"].conn.LastLivenessAt = time.Now().Add(-24 * time.Hour)
	})
	c.dispatch(func() []domain.Delivery { return c.sweepClosed() })

	assert.Equal(t, 1, c.ConnectionCount())
}
