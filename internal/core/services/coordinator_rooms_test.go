package services

import (
	"testing"
	"time"

	"neurohub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinRoles_RoomMembership(t *testing.T) {
	c, sender := newTestCoordinator(t)
	addConn(c, "conn_ctrl", domain.RoleController, nil)
	addConn(c, "conn_part", domain.RoleParticipant, nil)
	sender.reset()

	require.NoError(t, c.JoinAsController("conn_ctrl", "exp1"))
	require.NoError(t, c.JoinAsParticipant("conn_part", "exp1"))

	inspect(c, func() {
		ctrl := c.connections["conn_ctrl"].conn
		part := c.connections["conn_part"].conn
		assert.Contains(t, ctrl.Rooms, domain.ControlRoom("exp1"))
		assert.Contains(t, ctrl.Rooms, domain.ControllerRoom("exp1"))
		assert.Contains(t, part.Rooms, domain.ControlRoom("exp1"))
		assert.NotContains(t, part.Rooms, domain.ControllerRoom("exp1"))
	})

	// The earlier member is told about the join.
	joined := sender.ofType("conn_ctrl", domain.EventRoomJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, domain.ConnectionID("conn_part"), joined[0].Payload.(domain.RoomMemberPayload).ConnectionID)

	// Rejoining is idempotent.
	sender.reset()
	require.NoError(t, c.JoinAsParticipant("conn_part", "exp1"))
	assert.Zero(t, sender.countType(domain.EventRoomJoined))
}

func TestJoin_UnknownConnection(t *testing.T) {
	c, _ := newTestCoordinator(t)

	assert.ErrorIs(t, c.JoinAsParticipant("conn_ghost", "exp1"), domain.ErrNotFound)
}

func TestControlBroadcast_ControlRoomExcludesSender(t *testing.T) {
	c, sender := newTestCoordinator(t)
	addConn(c, "conn_ctrl", domain.RoleController, nil)
	addConn(c, "conn_p1", domain.RoleParticipant, nil)
	addConn(c, "conn_p2", domain.RoleParticipant, nil)
	addConn(c, "conn_other", domain.RoleParticipant, nil)
	require.NoError(t, c.JoinAsController("conn_ctrl", "exp1"))
	require.NoError(t, c.JoinAsParticipant("conn_p1", "exp1"))
	require.NoError(t, c.JoinAsParticipant("conn_p2", "exp1"))
	require.NoError(t, c.JoinAsParticipant("conn_other", "exp2"))
	sender.reset()

	step := 3
	before := time.Now().UnixMilli()
	require.NoError(t, c.BroadcastControl("conn_ctrl", domain.ControlStepChange, "exp1", &step, nil))

	for _, id := range []domain.ConnectionID{"conn_p1", "conn_p2"} {
		evs := sender.ofType(id, domain.ControlStepChange)
		require.Len(t, evs, 1)
		payload := evs[0].Payload.(domain.ControlPayload)
		assert.Equal(t, domain.ExperimentID("exp1"), payload.ExperimentID)
		require.NotNil(t, payload.StepIndex)
		assert.Equal(t, 3, *payload.StepIndex)
		assert.Equal(t, domain.ConnectionID("conn_ctrl"), payload.From)
		assert.GreaterOrEqual(t, payload.Timestamp, before)
	}

	assert.Empty(t, sender.ofType("conn_ctrl", domain.ControlStepChange))
	assert.Empty(t, sender.ofType("conn_other", domain.ControlStepChange))
}

func TestControlBroadcast_StepCompleteRoutesToControllersOnly(t *testing.T) {
	c, sender := newTestCoordinator(t)
	addConn(c, "conn_c1", domain.RoleController, nil)
	addConn(c, "conn_c2", domain.RoleController, nil)
	addConn(c, "conn_part", domain.RoleParticipant, nil)
	require.NoError(t, c.JoinAsController("conn_c1", "exp1"))
	require.NoError(t, c.JoinAsController("conn_c2", "exp1"))
	require.NoError(t, c.JoinAsParticipant("conn_part", "exp1"))
	sender.reset()

	step := 1
	require.NoError(t, c.BroadcastControl("conn_part", domain.ControlStepComplete, "exp1", &step, nil))

	assert.Len(t, sender.ofType("conn_c1", domain.ControlStepComplete), 1)
	assert.Len(t, sender.ofType("conn_c2", domain.ControlStepComplete), 1)
	assert.Empty(t, sender.ofType("conn_part", domain.ControlStepComplete))
}

func TestControlBroadcast_UnrecognizedEvent(t *testing.T) {
	c, _ := newTestCoordinator(t)
	addConn(c, "conn_a", domain.RoleController, nil)

	assert.Error(t, c.BroadcastControl("conn_a", domain.EventType("experiment-reboot"), "exp1", nil, nil))
}

func TestLeave_EmptyRoomsAreCollected(t *testing.T) {
	c, sender := newTestCoordinator(t)
	addConn(c, "conn_a", domain.RoleParticipant, nil)
	addConn(c, "conn_b", domain.RoleParticipant, nil)
	require.NoError(t, c.JoinAsParticipant("conn_a", "exp1"))
	require.NoError(t, c.JoinAsParticipant("conn_b", "exp1"))
	sender.reset()

	room := domain.ControlRoom("exp1")
	require.NoError(t, c.Leave("conn_a", room))

	left := sender.ofType("conn_b", domain.EventRoomLeft)
	require.Len(t, left, 1)
	assert.Equal(t, domain.ConnectionID("conn_a"), left[0].Payload.(domain.RoomMemberPayload).ConnectionID)

	require.NoError(t, c.Leave("conn_b", room))
	inspect(c, func() {
		assert.NotContains(t, c.rooms, room)
	})
}

func TestDisconnect_RemovesRoomMemberships(t *testing.T) {
	c, sender := newTestCoordinator(t)
	addConn(c, "conn_a", domain.RoleParticipant, nil)
	addConn(c, "conn_b", domain.RoleParticipant, nil)
	require.NoError(t, c.JoinAsParticipant("conn_a", "exp1"))
	require.NoError(t, c.JoinAsParticipant("conn_b", "exp1"))
	sender.reset()

	c.Deregister("conn_a")

	assert.Len(t, sender.ofType("conn_b", domain.EventRoomLeft), 1)
	inspect(c, func() {
		members := c.rooms[domain.ControlRoom("exp1")]
		assert.NotContains(t, members, domain.ConnectionID("conn_a"))
	})
}
