package signal

import (
	"encoding/json"
	"fmt"

	"neurohub/internal/core/domain"
)

type pairRequestPayload struct {
	TargetConnectionID domain.ConnectionID `json:"targetConnectionId"`
	PairingCode        string              `json:"pairingCode"`
}

type pairResponsePayload struct {
	TargetConnectionID domain.ConnectionID `json:"targetConnectionId"`
	Accepted           bool                `json:"accepted"`
	PairingCode        string              `json:"pairingCode"`
}

type unpairPayload struct {
	TargetConnectionID domain.ConnectionID `json:"targetConnectionId"`
}

type joinPayload struct {
	ExperimentID domain.ExperimentID `json:"experimentId"`
}

type controlPayload struct {
	ExperimentID domain.ExperimentID `json:"experimentId"`
	StepIndex    *int                `json:"stepIndex,omitempty"`
	TrialIndex   *int                `json:"trialIndex,omitempty"`
}

type streamStartPayload struct {
	ExperimentID domain.ExperimentID `json:"experimentId"`
	StreamConfig domain.StreamConfig `json:"streamConfig"`
}

type streamStopPayload struct {
	ExperimentID domain.ExperimentID `json:"experimentId"`
	SessionID    domain.SessionID    `json:"sessionId"`
}

type streamConfigPayload struct {
	SessionID domain.SessionID   `json:"sessionId"`
	Patch     domain.ConfigPatch `json:"patch"`
}

type streamDataPayload struct {
	ExperimentID domain.ExperimentID   `json:"experimentId"`
	Frame        domain.TelemetryFrame `json:"frame"`
}

type getBufferPayload struct {
	SessionID    domain.SessionID    `json:"sessionId"`
	ExperimentID domain.ExperimentID `json:"experimentId"`
	LastN        int                 `json:"lastN"`
}

type pingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func (s *WebSocketServer) handlePairRequest(c *client, msg InboundMessage) error {
	var p pairRequestPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.TargetConnectionID == "" {
		return fmt.Errorf("targetConnectionId is required")
	}
	return s.coordinator.RequestPairing(c.id, p.TargetConnectionID, p.PairingCode)
}

func (s *WebSocketServer) handlePairResponse(c *client, msg InboundMessage) error {
	var p pairResponsePayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.TargetConnectionID == "" {
		return fmt.Errorf("targetConnectionId is required")
	}
	return s.coordinator.RespondPairing(c.id, p.TargetConnectionID, p.Accepted, p.PairingCode)
}

func (s *WebSocketServer) handleUnpair(c *client, msg InboundMessage) error {
	var p unpairPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	return s.coordinator.Unpair(c.id, p.TargetConnectionID)
}

func (s *WebSocketServer) handleJoinAsController(c *client, msg InboundMessage) error {
	var p joinPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.ExperimentID == "" {
		return fmt.Errorf("experimentId is required")
	}
	return s.coordinator.JoinAsController(c.id, p.ExperimentID)
}

func (s *WebSocketServer) handleJoinAsParticipant(c *client, msg InboundMessage) error {
	var p joinPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.ExperimentID == "" {
		return fmt.Errorf("experimentId is required")
	}
	return s.coordinator.JoinAsParticipant(c.id, p.ExperimentID)
}

func (s *WebSocketServer) handleJoinAsObserver(c *client, msg InboundMessage) error {
	var p joinPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.ExperimentID == "" {
		return fmt.Errorf("experimentId is required")
	}
	return s.coordinator.JoinAsObserver(c.id, p.ExperimentID)
}

func (s *WebSocketServer) handleControlEvent(c *client, msg InboundMessage) error {
	var p controlPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.ExperimentID == "" {
		return fmt.Errorf("experimentId is required")
	}
	return s.coordinator.BroadcastControl(c.id, domain.EventType(msg.Type), p.ExperimentID, p.StepIndex, p.TrialIndex)
}

func (s *WebSocketServer) handleStreamStart(c *client, msg InboundMessage) error {
	var p streamStartPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.ExperimentID == "" {
		return fmt.Errorf("experimentId is required")
	}
	_, err := s.coordinator.StartStream(c.id, p.ExperimentID, p.StreamConfig)
	return err
}

func (s *WebSocketServer) handleStreamStop(c *client, msg InboundMessage) error {
	var p streamStopPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	return s.coordinator.StopStream(c.id, p.SessionID)
}

func (s *WebSocketServer) handleStreamConfig(c *client, msg InboundMessage) error {
	var p streamConfigPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	return s.coordinator.UpdateConfig(c.id, p.SessionID, p.Patch)
}

func (s *WebSocketServer) handleStreamData(c *client, msg InboundMessage) error {
	var p streamDataPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.ExperimentID == "" {
		return fmt.Errorf("experimentId is required")
	}
	return s.coordinator.Ingest(c.id, p.ExperimentID, p.Frame)
}

func (s *WebSocketServer) handleGetBuffer(c *client, msg InboundMessage) error {
	var p getBufferPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	if p.SessionID == "" && p.ExperimentID == "" {
		return fmt.Errorf("sessionId or experimentId is required")
	}
	return s.coordinator.Snapshot(c.id, p.SessionID, p.ExperimentID, p.LastN)
}

func (s *WebSocketServer) handleDeviceScan(c *client, _ InboundMessage) error {
	s.coordinator.DeviceScan(c.id)
	return nil
}

func (s *WebSocketServer) handlePing(c *client, msg InboundMessage) error {
	var p pingPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
	}
	s.coordinator.Touch(c.id, p.Timestamp)
	return nil
}
