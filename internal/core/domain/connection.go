package domain

import "time"

type ConnectionID string

type UserID string

type ExperimentID string

// Role determines which hub actions a connection is authorized to perform.
type Role string

const (
	RoleController  Role = "controller"
	RoleParticipant Role = "participant"
	RoleObserver    Role = "observer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleController, RoleParticipant, RoleObserver:
		return true
	}
	return false
}

// ClientMeta carries transport-level details captured at connect time.
type ClientMeta struct {
	RemoteAddr string `json:"remoteAddr"`
	UserAgent  string `json:"userAgent"`
}

// Connection is one authenticated live transport session. The registry is
// the only writer; everyone else sees it through coordinator snapshots.
type Connection struct {
	ID             ConnectionID
	UserID         UserID
	Role           Role
	DisplayName    string
	ConnectedAt    time.Time
	LastLivenessAt time.Time
	Rooms          map[RoomID]struct{}
	PairedWith     ConnectionID // empty while unpaired
	Meta           ClientMeta
}

func NewConnection(id ConnectionID, userID UserID, role Role, displayName string, meta ClientMeta) *Connection {
	now := time.Now()
	return &Connection{
		ID:             id,
		UserID:         userID,
		Role:           role,
		DisplayName:    displayName,
		ConnectedAt:    now,
		LastLivenessAt: now,
		Rooms:          make(map[RoomID]struct{}),
		Meta:           meta,
	}
}

func (c *Connection) Paired() bool {
	return c.PairedWith != ""
}
