package domain

import "time"

type SessionID string

// StreamConfig describes a telemetry stream. BufferCapacity bounds the
// in-memory frame buffer; it never applies retroactively to frames already
// buffered.
type StreamConfig struct {
	SampleRate     int `json:"sampleRate"`
	ChannelCount   int `json:"channelCount"`
	BufferCapacity int `json:"bufferCapacity"`
}

// ConfigPatch is a partial StreamConfig; nil fields are left unchanged.
type ConfigPatch struct {
	SampleRate     *int `json:"sampleRate,omitempty"`
	ChannelCount   *int `json:"channelCount,omitempty"`
	BufferCapacity *int `json:"bufferCapacity,omitempty"`
}

// TelemetryFrame is one timestamped multi-channel sample batch. Frames are
// immutable once appended.
type TelemetryFrame struct {
	Timestamp    int64     `json:"timestamp"`
	ChannelCount int       `json:"channelCount"`
	Samples      []float64 `json:"samples"`
}

// StreamingSession is an owner-controlled bounded-buffer telemetry channel
// for one experiment. Only the owner may stop or reconfigure it.
type StreamingSession struct {
	ID           SessionID
	ExperimentID ExperimentID
	Owner        ConnectionID
	Config       StreamConfig
	StartedAt    time.Time
	EndedAt      time.Time
	Active       bool
	Buffer       *FrameBuffer
}

// Duration returns the session length, using now for active sessions.
func (s *StreamingSession) Duration() time.Duration {
	if s.Active || s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// StreamSummary is emitted to observers when a session stops.
type StreamSummary struct {
	SessionID           SessionID    `json:"sessionId"`
	ExperimentID        ExperimentID `json:"experimentId"`
	DurationMillis      int64        `json:"durationMillis"`
	FramesReceived      uint64       `json:"framesReceived"`
	FramesEvicted       uint64       `json:"framesEvicted"`
	EffectiveFrameRate  float64      `json:"effectiveFrameRate"`
	ConfiguredSampleHz  int          `json:"configuredSampleHz"`
	ConfiguredChannels  int          `json:"configuredChannels"`
}

// Summarize computes the session's closing statistics.
func (s *StreamingSession) Summarize() StreamSummary {
	d := s.Duration()
	rate := 0.0
	if d > 0 {
		rate = float64(s.Buffer.Appended()) / d.Seconds()
	}
	return StreamSummary{
		SessionID:          s.ID,
		ExperimentID:       s.ExperimentID,
		DurationMillis:     d.Milliseconds(),
		FramesReceived:     s.Buffer.Appended(),
		FramesEvicted:      s.Buffer.Evicted(),
		EffectiveFrameRate: rate,
		ConfiguredSampleHz: s.Config.SampleRate,
		ConfiguredChannels: s.Config.ChannelCount,
	}
}
