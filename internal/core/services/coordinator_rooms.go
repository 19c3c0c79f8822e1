package services

import (
	"fmt"
	"time"

	"neurohub/internal/core/domain"
)

// JoinAsController joins a connection to the experiment's shared control
// room and to the controller-only room that receives participant progress.
func (c *Coordinator) JoinAsController(id domain.ConnectionID, experimentID domain.ExperimentID) error {
	return c.joinRooms(id, domain.ControlRoom(experimentID), domain.ControllerRoom(experimentID))
}

// JoinAsParticipant joins a connection to the experiment's shared control room.
func (c *Coordinator) JoinAsParticipant(id domain.ConnectionID, experimentID domain.ExperimentID) error {
	return c.joinRooms(id, domain.ControlRoom(experimentID))
}

// JoinAsObserver joins a connection to the experiment's telemetry room.
func (c *Coordinator) JoinAsObserver(id domain.ConnectionID, experimentID domain.ExperimentID) error {
	return c.joinRooms(id, domain.ObserverRoom(experimentID))
}

func (c *Coordinator) joinRooms(id domain.ConnectionID, rooms ...domain.RoomID) error {
	var err error
	c.dispatch(func() []domain.Delivery {
		entry, ok := c.connections[id]
		if !ok {
			err = domain.ErrNotFound
			return nil
		}
		var ds []domain.Delivery
		for _, room := range rooms {
			ds = append(ds, c.addToRoom(entry.conn, room)...)
		}
		return ds
	})
	return err
}

// Leave removes a connection from one room.
func (c *Coordinator) Leave(id domain.ConnectionID, room domain.RoomID) error {
	var err error
	c.dispatch(func() []domain.Delivery {
		entry, ok := c.connections[id]
		if !ok {
			err = domain.ErrNotFound
			return nil
		}
		return c.removeFromRoom(entry.conn, room)
	})
	return err
}

// BroadcastControl relays a recognized control event to its experiment
// room, excluding the sender. step-complete routes to the controller-only
// room; everything else goes to the shared control room. The timestamp is
// stamped here, at broadcast time. Delivery is best-effort.
func (c *Coordinator) BroadcastControl(from domain.ConnectionID, event domain.EventType, experimentID domain.ExperimentID, stepIndex, trialIndex *int) error {
	var err error
	c.dispatch(func() []domain.Delivery {
		if _, ok := c.connections[from]; !ok {
			return nil
		}
		if !domain.IsControlEvent(event) {
			err = fmt.Errorf("unrecognized control event %q", event)
			return nil
		}

		room := domain.ControlRoom(experimentID)
		if event == domain.ControlStepComplete {
			room = domain.ControllerRoom(experimentID)
		}

		payload := domain.ControlPayload{
			ExperimentID: experimentID,
			StepIndex:    stepIndex,
			TrialIndex:   trialIndex,
			From:         from,
			Timestamp:    time.Now().UnixMilli(),
		}
		return c.broadcastToRoom(room, from, domain.Event{Type: event, Payload: payload})
	})
	return err
}

// addToRoom is idempotent; joining an occupied room notifies the members
// already present.
func (c *Coordinator) addToRoom(conn *domain.Connection, room domain.RoomID) []domain.Delivery {
	members, ok := c.rooms[room]
	if !ok {
		members = make(map[domain.ConnectionID]struct{})
		c.rooms[room] = members
		c.metrics.RoomCount(len(c.rooms))
	}
	if _, already := members[conn.ID]; already {
		return nil
	}

	ds := c.broadcastToRoom(room, conn.ID, domain.Event{
		Type: domain.EventRoomJoined,
		Payload: domain.RoomMemberPayload{
			Room:         room.String(),
			ConnectionID: conn.ID,
			DisplayName:  conn.DisplayName,
			Role:         conn.Role,
		},
	})

	members[conn.ID] = struct{}{}
	conn.Rooms[room] = struct{}{}
	return ds
}

// removeFromRoom drops the membership and garbage-collects empty rooms.
func (c *Coordinator) removeFromRoom(conn *domain.Connection, room domain.RoomID) []domain.Delivery {
	members, ok := c.rooms[room]
	if !ok {
		return nil
	}
	if _, member := members[conn.ID]; !member {
		return nil
	}

	delete(members, conn.ID)
	delete(conn.Rooms, room)
	if len(members) == 0 {
		delete(c.rooms, room)
		c.metrics.RoomCount(len(c.rooms))
		return nil
	}

	return c.broadcastToRoom(room, conn.ID, domain.Event{
		Type: domain.EventRoomLeft,
		Payload: domain.RoomMemberPayload{
			Room:         room.String(),
			ConnectionID: conn.ID,
			DisplayName:  conn.DisplayName,
			Role:         conn.Role,
		},
	})
}

func (c *Coordinator) broadcastToRoom(room domain.RoomID, exclude domain.ConnectionID, ev domain.Event) []domain.Delivery {
	members, ok := c.rooms[room]
	if !ok {
		return nil
	}
	ds := make([]domain.Delivery, 0, len(members))
	for id := range members {
		if id == exclude {
			continue
		}
		ds = append(ds, domain.Delivery{To: id, Event: ev})
	}
	return ds
}
