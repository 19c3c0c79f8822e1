package services

import (
	"time"

	"neurohub/internal/core/domain"
	"neurohub/pkg/utils"
)

// SessionInfo is a read-only session summary for the HTTP API.
type SessionInfo struct {
	SessionID     domain.SessionID    `json:"sessionId"`
	ExperimentID  domain.ExperimentID `json:"experimentId"`
	Owner         domain.ConnectionID `json:"owner"`
	Active        bool                `json:"active"`
	StartedAt     time.Time           `json:"startedAt"`
	EndedAt       *time.Time          `json:"endedAt,omitempty"`
	FrameCount    int                 `json:"frameCount"`
	TotalAppended uint64              `json:"totalAppended"`
	Config        domain.StreamConfig `json:"config"`
}

// StartStream creates a streaming session for an experiment. Controller
// role only; one active session per experiment. The owner is joined to
// the experiment's observer room, and observers already there learn about
// the new session.
func (c *Coordinator) StartStream(owner domain.ConnectionID, experimentID domain.ExperimentID, cfg domain.StreamConfig) (domain.SessionID, error) {
	var (
		sid domain.SessionID
		err error
	)
	c.dispatch(func() []domain.Delivery {
		entry, ok := c.connections[owner]
		if !ok {
			err = domain.ErrNotFound
			return nil
		}
		if entry.conn.Role != domain.RoleController {
			err = domain.ErrUnauthorized
			return nil
		}
		if existing := c.activeSessionFor(experimentID); existing != nil {
			err = domain.ErrSessionActive
			return nil
		}

		cfg = c.normalizeConfig(cfg)
		s := &domain.StreamingSession{
			ID:           domain.SessionID(utils.GenerateSessionID()),
			ExperimentID: experimentID,
			Owner:        owner,
			Config:       cfg,
			StartedAt:    time.Now(),
			Active:       true,
			Buffer:       domain.NewFrameBuffer(cfg.BufferCapacity),
		}
		c.sessions[s.ID] = s
		c.byExp[experimentID] = s.ID
		sid = s.ID
		c.metrics.SessionStarted()

		room := domain.ObserverRoom(experimentID)
		ds := c.addToRoom(entry.conn, room)
		ds = append(ds, c.broadcastToRoom(room, "", domain.Event{
			Type: domain.EventStreamStarted,
			Payload: domain.StreamStartedPayload{
				SessionID:    s.ID,
				ExperimentID: experimentID,
				Config:       cfg,
				StartedAt:    s.StartedAt.UnixMilli(),
			},
		})...)

		c.logger.Infow("streaming session started",
			"session_id", s.ID,
			"experiment_id", experimentID,
			"owner", owner,
			"sample_rate", cfg.SampleRate,
			"channels", cfg.ChannelCount,
			"buffer_capacity", cfg.BufferCapacity,
		)
		return ds
	})
	return sid, err
}

// Ingest appends a frame to the experiment's active session, evicting
// oldest-first at capacity, then fans the frame out to the observer room.
// Only the session owner may ingest, and only through this serialized
// entry point.
func (c *Coordinator) Ingest(owner domain.ConnectionID, experimentID domain.ExperimentID, frame domain.TelemetryFrame) error {
	var err error
	c.dispatch(func() []domain.Delivery {
		s := c.activeSessionFor(experimentID)
		if s == nil {
			err = domain.ErrNotFound
			return nil
		}
		if s.Owner != owner {
			err = domain.ErrUnauthorized
			return nil
		}

		if evicted := s.Buffer.Append(frame); evicted > 0 {
			c.metrics.FramesEvicted(evicted)
		}
		c.metrics.FrameIngested()

		return c.broadcastToRoom(domain.ObserverRoom(experimentID), owner, domain.Event{
			Type: domain.EventStreamData,
			Payload: domain.StreamDataPayload{
				SessionID:    s.ID,
				ExperimentID: experimentID,
				Frame:        frame,
			},
		})
	})
	return err
}

// StopStream ends a session: owner-only. The buffer stays readable for
// the retention window; observers receive the closing summary.
func (c *Coordinator) StopStream(owner domain.ConnectionID, sessionID domain.SessionID) error {
	var err error
	c.dispatch(func() []domain.Delivery {
		s, ok := c.sessions[sessionID]
		if !ok || !s.Active {
			err = domain.ErrNotFound
			return nil
		}
		if s.Owner != owner {
			err = domain.ErrUnauthorized
			return nil
		}
		return c.endSession(s)
	})
	return err
}

// UpdateConfig merges a patch into the session config and rebroadcasts it
// to observers. A smaller buffer capacity only constrains future appends;
// buffered history is never truncated here.
func (c *Coordinator) UpdateConfig(owner domain.ConnectionID, sessionID domain.SessionID, patch domain.ConfigPatch) error {
	var err error
	c.dispatch(func() []domain.Delivery {
		s, ok := c.sessions[sessionID]
		if !ok {
			err = domain.ErrNotFound
			return nil
		}
		if s.Owner != owner {
			err = domain.ErrUnauthorized
			return nil
		}

		if patch.SampleRate != nil && *patch.SampleRate > 0 {
			s.Config.SampleRate = *patch.SampleRate
		}
		if patch.ChannelCount != nil && *patch.ChannelCount > 0 {
			s.Config.ChannelCount = *patch.ChannelCount
		}
		if patch.BufferCapacity != nil && *patch.BufferCapacity > 0 {
			capacity := *patch.BufferCapacity
			if capacity > c.cfg.MaxBufferCapacity {
				capacity = c.cfg.MaxBufferCapacity
			}
			s.Config.BufferCapacity = capacity
			s.Buffer.SetCapacity(capacity)
		}

		return c.broadcastToRoom(domain.ObserverRoom(s.ExperimentID), "", domain.Event{
			Type: domain.EventStreamConfig,
			Payload: domain.StreamConfigPayload{
				SessionID: s.ID,
				Config:    s.Config,
			},
		})
	})
	return err
}

// Snapshot answers an eeg-get-buffer request over the wire. Available to
// any connection while the session is active or within the retention
// window after it stops.
func (c *Coordinator) Snapshot(requester domain.ConnectionID, sessionID domain.SessionID, experimentID domain.ExperimentID, lastN int) error {
	var err error
	c.dispatch(func() []domain.Delivery {
		if _, ok := c.connections[requester]; !ok {
			return nil
		}
		payload, serr := c.snapshotPayload(sessionID, experimentID, lastN)
		if serr != nil {
			err = serr
			return nil
		}
		return []domain.Delivery{{
			To:    requester,
			Event: domain.Event{Type: domain.EventBufferSnapshot, Payload: *payload},
		}}
	})
	return err
}

// SnapshotInfo is the HTTP read-side variant of Snapshot.
func (c *Coordinator) SnapshotInfo(sessionID domain.SessionID, lastN int) (*domain.SnapshotPayload, error) {
	var (
		out *domain.SnapshotPayload
		err error
	)
	c.dispatch(func() []domain.Delivery {
		out, err = c.snapshotPayload(sessionID, "", lastN)
		return nil
	})
	return out, err
}

// Sessions returns summaries of every session still in memory.
func (c *Coordinator) Sessions() []SessionInfo {
	var out []SessionInfo
	c.dispatch(func() []domain.Delivery {
		out = make([]SessionInfo, 0, len(c.sessions))
		for _, s := range c.sessions {
			info := SessionInfo{
				SessionID:     s.ID,
				ExperimentID:  s.ExperimentID,
				Owner:         s.Owner,
				Active:        s.Active,
				StartedAt:     s.StartedAt,
				FrameCount:    s.Buffer.Len(),
				TotalAppended: s.Buffer.Appended(),
				Config:        s.Config,
			}
			if !s.EndedAt.IsZero() {
				ended := s.EndedAt
				info.EndedAt = &ended
			}
			out = append(out, info)
		}
		return nil
	})
	return out
}

func (c *Coordinator) snapshotPayload(sessionID domain.SessionID, experimentID domain.ExperimentID, lastN int) (*domain.SnapshotPayload, error) {
	s := c.resolveSession(sessionID, experimentID)
	if s == nil {
		return nil, domain.ErrNotFound
	}
	if lastN <= 0 {
		lastN = s.Buffer.Len()
	}
	return &domain.SnapshotPayload{
		SessionID:     s.ID,
		ExperimentID:  s.ExperimentID,
		Active:        s.Active,
		Frames:        s.Buffer.Last(lastN),
		TotalAppended: s.Buffer.Appended(),
		Config:        s.Config,
	}, nil
}

// resolveSession looks up by session ID first, then falls back to the
// experiment's most recent session (active or within retention).
func (c *Coordinator) resolveSession(sessionID domain.SessionID, experimentID domain.ExperimentID) *domain.StreamingSession {
	if sessionID != "" {
		return c.sessions[sessionID]
	}
	if experimentID != "" {
		if sid, ok := c.byExp[experimentID]; ok {
			return c.sessions[sid]
		}
	}
	return nil
}

func (c *Coordinator) activeSessionFor(experimentID domain.ExperimentID) *domain.StreamingSession {
	sid, ok := c.byExp[experimentID]
	if !ok {
		return nil
	}
	s := c.sessions[sid]
	if s == nil || !s.Active {
		return nil
	}
	return s
}

// endSession deactivates a session, schedules its purge after the
// retention window and sends the closing summary to observers.
func (c *Coordinator) endSession(s *domain.StreamingSession) []domain.Delivery {
	s.Active = false
	s.EndedAt = time.Now()
	c.purgeAt[s.ID] = s.EndedAt.Add(c.cfg.RetentionWindow)
	c.metrics.SessionEnded()

	summary := s.Summarize()
	c.logger.Infow("streaming session stopped",
		"session_id", s.ID,
		"experiment_id", s.ExperimentID,
		"frames_received", summary.FramesReceived,
		"frames_evicted", summary.FramesEvicted,
		"duration_ms", summary.DurationMillis,
	)

	return c.broadcastToRoom(domain.ObserverRoom(s.ExperimentID), "", domain.Event{
		Type:    domain.EventStreamStopped,
		Payload: summary,
	})
}

// deactivateOwnedSessions is the disconnect cascade for the streaming
// manager: every active session owned by the leaving connection stops.
func (c *Coordinator) deactivateOwnedSessions(owner domain.ConnectionID) []domain.Delivery {
	var ds []domain.Delivery
	for _, s := range c.sessions {
		if s.Owner == owner && s.Active {
			ds = append(ds, c.endSession(s)...)
		}
	}
	return ds
}

func (c *Coordinator) normalizeConfig(cfg domain.StreamConfig) domain.StreamConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = c.cfg.DefaultStream.SampleRate
	}
	if cfg.ChannelCount <= 0 {
		cfg.ChannelCount = c.cfg.DefaultStream.ChannelCount
	}
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = c.cfg.DefaultStream.BufferCapacity
	}
	if cfg.BufferCapacity > c.cfg.MaxBufferCapacity {
		cfg.BufferCapacity = c.cfg.MaxBufferCapacity
	}
	return cfg
}
