package services

import (
	"context"
	"time"

	"neurohub/internal/core/domain"
	"neurohub/internal/core/ports"

	"go.uber.org/zap"
)

// CoordinatorConfig bounds the coordinator's resource usage and timing.
type CoordinatorConfig struct {
	SweepInterval     time.Duration
	RetentionWindow   time.Duration
	PurgeInterval     time.Duration
	MaxBufferCapacity int
	DefaultStream     domain.StreamConfig
}

type connEntry struct {
	conn *domain.Connection
	live ports.LivenessProbe
}

// Coordinator owns the registry, pairing table, room memberships and
// streaming sessions. All state is ephemeral and owned by the single
// goroutine running Run: every operation executes as one atomic dispatch
// step, so the maps need no locks. Operations return deliveries that are
// flushed fire-and-forget through the Sender; outbound delivery never
// blocks the dispatch loop.
type Coordinator struct {
	cfg     CoordinatorConfig
	sender  ports.Sender
	metrics ports.MetricsCollector
	logger  *zap.SugaredLogger

	cmds    chan func()
	stopped chan struct{}

	connections map[domain.ConnectionID]*connEntry
	pairings    map[domain.PairID]*domain.PairingRelationship
	pairByConn  map[domain.ConnectionID]domain.PairID
	rooms       map[domain.RoomID]map[domain.ConnectionID]struct{}
	sessions    map[domain.SessionID]*domain.StreamingSession
	byExp       map[domain.ExperimentID]domain.SessionID
	purgeAt     map[domain.SessionID]time.Time
}

func NewCoordinator(cfg CoordinatorConfig, sender ports.Sender, metrics ports.MetricsCollector, logger *zap.SugaredLogger) *Coordinator {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Coordinator{
		cfg:         cfg,
		sender:      sender,
		metrics:     metrics,
		logger:      logger,
		cmds:        make(chan func(), 64),
		stopped:     make(chan struct{}),
		connections: make(map[domain.ConnectionID]*connEntry),
		pairings:    make(map[domain.PairID]*domain.PairingRelationship),
		pairByConn:  make(map[domain.ConnectionID]domain.PairID),
		rooms:       make(map[domain.RoomID]map[domain.ConnectionID]struct{}),
		sessions:    make(map[domain.SessionID]*domain.StreamingSession),
		byExp:       make(map[domain.ExperimentID]domain.SessionID),
		purgeAt:     make(map[domain.SessionID]time.Time),
	}
}

// SetSender wires the outbound transport. The transport needs the
// coordinator to construct itself, so the sender is attached afterwards,
// before Run starts.
func (c *Coordinator) SetSender(sender ports.Sender) {
	c.sender = sender
}

// Run is the dispatch loop. Inbound operations, the liveness sweep and the
// retention purge all execute here, one step at a time, until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.stopped)

	sweep := time.NewTicker(c.cfg.SweepInterval)
	defer sweep.Stop()
	purge := time.NewTicker(c.cfg.PurgeInterval)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.cmds:
			cmd()
		case <-sweep.C:
			c.flush(c.sweepClosed())
		case <-purge.C:
			c.purgeExpired()
		}
	}
}

// dispatch runs fn as one atomic step on the coordinator goroutine and
// waits for it to complete, flushing any deliveries it produced. Once the
// loop has stopped, callers return without executing: a step queued behind
// shutdown must not strand its caller.
func (c *Coordinator) dispatch(fn func() []domain.Delivery) {
	done := make(chan struct{})
	step := func() {
		c.flush(fn())
		close(done)
	}
	select {
	case c.cmds <- step:
	case <-c.stopped:
		return
	}
	select {
	case <-done:
	case <-c.stopped:
	}
}

func (c *Coordinator) flush(deliveries []domain.Delivery) {
	if c.sender == nil {
		return
	}
	for _, d := range deliveries {
		c.sender.Send(d.To, d.Event)
	}
	if n := len(deliveries); n > 0 {
		c.metrics.EventsDelivered(n)
	}
}

// Register adds an authenticated connection to the registry and announces
// it to the other devices. The registry is the only writer of the
// connection map.
func (c *Coordinator) Register(conn *domain.Connection, live ports.LivenessProbe) {
	c.dispatch(func() []domain.Delivery {
		c.connections[conn.ID] = &connEntry{conn: conn, live: live}
		c.metrics.ConnectionOpened(conn.Role)
		c.logger.Infow("device registered",
			"connection_id", conn.ID,
			"user_id", conn.UserID,
			"role", conn.Role,
		)

		ds := []domain.Delivery{{
			To: conn.ID,
			Event: domain.Event{Type: domain.EventWelcome, Payload: domain.WelcomePayload{
				ConnectionID: conn.ID,
				UserID:       conn.UserID,
				Role:         conn.Role,
				ServerTime:   time.Now().UnixMilli(),
			}},
		}}
		return append(ds, c.broadcastToAll(conn.ID, domain.Event{
			Type:    domain.EventDeviceJoined,
			Payload: c.deviceInfo(conn),
		})...)
	})
}

// Deregister is the single teardown entry point: it cascades through
// pairing, rooms and owned sessions before removing the record, then
// announces the departure.
func (c *Coordinator) Deregister(id domain.ConnectionID) {
	c.dispatch(func() []domain.Delivery {
		return c.teardown(id, "disconnected")
	})
}

// Touch refreshes liveness from an application-level ping and answers
// with a pong carrying both timestamps.
func (c *Coordinator) Touch(id domain.ConnectionID, clientTimestamp int64) {
	c.dispatch(func() []domain.Delivery {
		entry, ok := c.connections[id]
		if !ok {
			return nil
		}
		entry.conn.LastLivenessAt = time.Now()
		return []domain.Delivery{{
			To: id,
			Event: domain.Event{Type: domain.EventPong, Payload: domain.PongPayload{
				ClientTimestamp: clientTimestamp,
				ServerTimestamp: time.Now().UnixMilli(),
			}},
		}}
	})
}

// DeviceScan answers with the other live connections, so a device can
// present pairing candidates.
func (c *Coordinator) DeviceScan(id domain.ConnectionID) {
	c.dispatch(func() []domain.Delivery {
		if _, ok := c.connections[id]; !ok {
			return nil
		}
		return []domain.Delivery{{
			To:    id,
			Event: domain.Event{Type: domain.EventDeviceList, Payload: c.listDevices(id)},
		}}
	})
}

// Devices returns a registry snapshot for the read-side HTTP API.
func (c *Coordinator) Devices() []domain.DeviceInfo {
	var out []domain.DeviceInfo
	c.dispatch(func() []domain.Delivery {
		out = c.listDevices("")
		return nil
	})
	return out
}

// ConnectionCount reports the current registry size.
func (c *Coordinator) ConnectionCount() int {
	n := 0
	c.dispatch(func() []domain.Delivery {
		n = len(c.connections)
		return nil
	})
	return n
}

func (c *Coordinator) listDevices(exclude domain.ConnectionID) []domain.DeviceInfo {
	out := make([]domain.DeviceInfo, 0, len(c.connections))
	for id, entry := range c.connections {
		if id == exclude {
			continue
		}
		out = append(out, c.deviceInfo(entry.conn))
	}
	return out
}

func (c *Coordinator) deviceInfo(conn *domain.Connection) domain.DeviceInfo {
	return domain.DeviceInfo{
		ConnectionID: conn.ID,
		UserID:       conn.UserID,
		DisplayName:  conn.DisplayName,
		Role:         conn.Role,
		Paired:       conn.Paired(),
	}
}

func (c *Coordinator) broadcastToAll(exclude domain.ConnectionID, ev domain.Event) []domain.Delivery {
	ds := make([]domain.Delivery, 0, len(c.connections))
	for id := range c.connections {
		if id == exclude {
			continue
		}
		ds = append(ds, domain.Delivery{To: id, Event: ev})
	}
	return ds
}

// teardown removes a connection and cascades across the pairing table,
// room memberships and owned sessions, in that order, so no stale
// references survive the step.
func (c *Coordinator) teardown(id domain.ConnectionID, reason string) []domain.Delivery {
	entry, ok := c.connections[id]
	if !ok {
		return nil
	}
	conn := entry.conn

	var ds []domain.Delivery

	ds = append(ds, c.breakPairing(conn, reason, domain.EventPairDisconnected)...)

	for roomID := range conn.Rooms {
		ds = append(ds, c.removeFromRoom(conn, roomID)...)
	}

	ds = append(ds, c.deactivateOwnedSessions(id)...)

	delete(c.connections, id)
	c.metrics.ConnectionClosed(conn.Role)

	ds = append(ds, c.broadcastToAll(id, domain.Event{
		Type:    domain.EventDeviceLeft,
		Payload: c.deviceInfo(conn),
	})...)

	c.logger.Infow("device deregistered",
		"connection_id", id,
		"reason", reason,
	)
	return ds
}

// sweepClosed evicts every connection whose transport reports closed. A
// connection with an open transport is never evicted on elapsed time.
func (c *Coordinator) sweepClosed() []domain.Delivery {
	var dead []domain.ConnectionID
	for id, entry := range c.connections {
		if entry.live != nil && !entry.live() {
			dead = append(dead, id)
		}
	}

	var ds []domain.Delivery
	for _, id := range dead {
		ds = append(ds, c.teardown(id, "transport closed")...)
	}
	if len(dead) > 0 {
		c.logger.Infow("liveness sweep evicted connections", "count", len(dead))
	}
	return ds
}

// purgeExpired drops finished sessions whose retention window elapsed.
func (c *Coordinator) purgeExpired() {
	now := time.Now()
	for sid, at := range c.purgeAt {
		if now.Before(at) {
			continue
		}
		if s, ok := c.sessions[sid]; ok && !s.Active {
			delete(c.sessions, sid)
			if c.byExp[s.ExperimentID] == sid {
				delete(c.byExp, s.ExperimentID)
			}
			c.logger.Infow("purged streaming session", "session_id", sid)
		}
		delete(c.purgeAt, sid)
	}
}
