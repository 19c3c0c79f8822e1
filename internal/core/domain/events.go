package domain

// EventType names an outbound wire event.
type EventType string

const (
	EventWelcome          EventType = "welcome"
	EventError            EventType = "error"
	EventDeviceJoined     EventType = "device-joined"
	EventDeviceLeft       EventType = "device-left"
	EventDeviceList       EventType = "device-list"
	EventPairRequest      EventType = "device-pair-request"
	EventPairResponse     EventType = "device-pair-response"
	EventPaired           EventType = "paired"
	EventUnpaired         EventType = "unpaired"
	EventPairDisconnected EventType = "pair-disconnected"
	EventRoomJoined       EventType = "room-member-joined"
	EventRoomLeft         EventType = "room-member-left"
	EventStreamStarted    EventType = "stream-started"
	EventStreamStopped    EventType = "stream-stopped"
	EventStreamConfig     EventType = "stream-config"
	EventStreamData       EventType = "eeg-data"
	EventBufferSnapshot   EventType = "eeg-buffer"
	EventPong             EventType = "pong"
)

// Control events relayed between experiment rooms. Event names double as
// inbound message types on the wire.
const (
	ControlExperimentStart EventType = "experiment-start"
	ControlExperimentStop  EventType = "experiment-stop"
	ControlExperimentPause EventType = "experiment-pause"
	ControlStepChange      EventType = "step-change"
	ControlStepComplete    EventType = "step-complete"
)

// IsControlEvent reports whether t is a recognized room-scoped control event.
func IsControlEvent(t EventType) bool {
	switch t {
	case ControlExperimentStart, ControlExperimentStop, ControlExperimentPause,
		ControlStepChange, ControlStepComplete:
		return true
	}
	return false
}

// Event is the outbound wire envelope.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Delivery pairs an event with its destination. Coordinator operations
// return deliveries instead of writing to sockets, leaving delivery
// mechanics to the transport layer.
type Delivery struct {
	To    ConnectionID
	Event Event
}

// DeviceInfo describes a live connection to its peers (device-scan,
// device-joined).
type DeviceInfo struct {
	ConnectionID ConnectionID `json:"connectionId"`
	UserID       UserID       `json:"userId"`
	DisplayName  string       `json:"displayName"`
	Role         Role         `json:"role"`
	Paired       bool         `json:"paired"`
}

// WelcomePayload is sent to a connection right after registration.
type WelcomePayload struct {
	ConnectionID ConnectionID `json:"connectionId"`
	UserID       UserID       `json:"userId"`
	Role         Role         `json:"role"`
	ServerTime   int64        `json:"serverTime"`
}

// ErrorPayload reports a failed operation back to its originator.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PairRequestPayload forwards a pairing offer to the target device.
type PairRequestPayload struct {
	FromConnectionID ConnectionID `json:"fromConnectionId"`
	FromDisplayName  string       `json:"fromDisplayName"`
	PairingCode      string       `json:"pairingCode"`
}

// PairResponsePayload forwards the target's decision to the requester.
type PairResponsePayload struct {
	FromConnectionID ConnectionID `json:"fromConnectionId"`
	Accepted         bool         `json:"accepted"`
	PairingCode      string       `json:"pairingCode"`
}

// PairedPayload announces an established pairing to both members.
type PairedPayload struct {
	PairID           PairID       `json:"pairId"`
	PeerConnectionID ConnectionID `json:"peerConnectionId"`
	PeerDisplayName  string       `json:"peerDisplayName"`
}

// UnpairedPayload announces a torn-down pairing to the remaining peer.
type UnpairedPayload struct {
	PeerConnectionID ConnectionID `json:"peerConnectionId"`
	Reason           string       `json:"reason"`
}

// RoomMemberPayload announces a membership change to room members.
type RoomMemberPayload struct {
	Room         string       `json:"room"`
	ConnectionID ConnectionID `json:"connectionId"`
	DisplayName  string       `json:"displayName"`
	Role         Role         `json:"role"`
}

// ControlPayload carries a relayed control event. Timestamp is stamped by
// the server at broadcast time, not at origination.
type ControlPayload struct {
	ExperimentID ExperimentID `json:"experimentId"`
	StepIndex    *int         `json:"stepIndex,omitempty"`
	TrialIndex   *int         `json:"trialIndex,omitempty"`
	From         ConnectionID `json:"from"`
	Timestamp    int64        `json:"timestamp"`
}

// StreamStartedPayload announces a new streaming session to observers.
type StreamStartedPayload struct {
	SessionID    SessionID    `json:"sessionId"`
	ExperimentID ExperimentID `json:"experimentId"`
	Config       StreamConfig `json:"config"`
	StartedAt    int64        `json:"startedAt"`
}

// StreamConfigPayload rebroadcasts an updated session config.
type StreamConfigPayload struct {
	SessionID SessionID    `json:"sessionId"`
	Config    StreamConfig `json:"config"`
}

// StreamDataPayload fans one telemetry frame out to observers.
type StreamDataPayload struct {
	SessionID    SessionID      `json:"sessionId"`
	ExperimentID ExperimentID   `json:"experimentId"`
	Frame        TelemetryFrame `json:"frame"`
}

// SnapshotPayload answers an eeg-get-buffer request.
type SnapshotPayload struct {
	SessionID     SessionID        `json:"sessionId"`
	ExperimentID  ExperimentID     `json:"experimentId"`
	Active        bool             `json:"active"`
	Frames        []TelemetryFrame `json:"frames"`
	TotalAppended uint64           `json:"totalAppended"`
	Config        StreamConfig     `json:"config"`
}

// PongPayload echoes the client timestamp alongside the server's.
type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}
