package services

import (
	"neurohub/internal/core/domain"
)

// RequestPairing forwards a pairing offer to the target connection. No
// state changes until the target accepts. The pairing code travels
// verbatim; matching it is a concern of the humans at both screens.
func (c *Coordinator) RequestPairing(from, to domain.ConnectionID, pairingCode string) error {
	var err error
	c.dispatch(func() []domain.Delivery {
		requester, ok := c.connections[from]
		if !ok {
			return nil
		}
		// A connection is never its own pairing candidate.
		if from == to {
			err = domain.ErrNotFound
			return nil
		}
		target, ok := c.connections[to]
		if !ok {
			err = domain.ErrNotFound
			return nil
		}
		if target.conn.Paired() || requester.conn.Paired() {
			err = domain.ErrAlreadyPaired
			return nil
		}

		c.logger.Infow("pairing requested",
			"from", from,
			"to", to,
		)
		return []domain.Delivery{{
			To: to,
			Event: domain.Event{Type: domain.EventPairRequest, Payload: domain.PairRequestPayload{
				FromConnectionID: from,
				FromDisplayName:  requester.conn.DisplayName,
				PairingCode:      pairingCode,
			}},
		}}
	})
	return err
}

// RespondPairing forwards the decision to the original requester. On
// acceptance it atomically re-verifies both sides, creates the canonical
// relationship, links the connections and joins them to a shared room. A
// lost race leaves no partial pairing behind.
func (c *Coordinator) RespondPairing(from, to domain.ConnectionID, accepted bool, pairingCode string) error {
	var err error
	c.dispatch(func() []domain.Delivery {
		responder, ok := c.connections[from]
		if !ok {
			return nil
		}
		if from == to {
			err = domain.ErrNotFound
			return nil
		}
		requester, ok := c.connections[to]
		if !ok {
			err = domain.ErrNotFound
			return nil
		}

		response := domain.Delivery{
			To: to,
			Event: domain.Event{Type: domain.EventPairResponse, Payload: domain.PairResponsePayload{
				FromConnectionID: from,
				Accepted:         accepted,
				PairingCode:      pairingCode,
			}},
		}
		if !accepted {
			return []domain.Delivery{response}
		}

		if responder.conn.Paired() || requester.conn.Paired() {
			err = domain.ErrStaleState
			return nil
		}

		rel := domain.NewPairingRelationship(to, from)
		c.pairings[rel.ID] = rel
		c.pairByConn[from] = rel.ID
		c.pairByConn[to] = rel.ID
		responder.conn.PairedWith = to
		requester.conn.PairedWith = from
		c.metrics.PairingCreated()

		ds := []domain.Delivery{response}
		room := domain.PairRoom(rel.ID)
		ds = append(ds, c.addToRoom(requester.conn, room)...)
		ds = append(ds, c.addToRoom(responder.conn, room)...)

		ds = append(ds,
			domain.Delivery{To: to, Event: domain.Event{Type: domain.EventPaired, Payload: domain.PairedPayload{
				PairID:           rel.ID,
				PeerConnectionID: from,
				PeerDisplayName:  responder.conn.DisplayName,
			}}},
			domain.Delivery{To: from, Event: domain.Event{Type: domain.EventPaired, Payload: domain.PairedPayload{
				PairID:           rel.ID,
				PeerConnectionID: to,
				PeerDisplayName:  requester.conn.DisplayName,
			}}},
		)

		c.logger.Infow("pairing established",
			"pair_id", rel.ID,
			"member_a", rel.MemberA,
			"member_b", rel.MemberB,
		)
		return ds
	})
	return err
}

// Unpair tears down an existing relationship between the two connections
// and notifies the peer.
func (c *Coordinator) Unpair(from, to domain.ConnectionID) error {
	var err error
	c.dispatch(func() []domain.Delivery {
		entry, ok := c.connections[from]
		if !ok {
			return nil
		}
		pairID, ok := c.pairByConn[from]
		if !ok || !c.pairings[pairID].Has(to) {
			err = domain.ErrNotPaired
			return nil
		}
		return c.breakPairing(entry.conn, "unpaired by peer", domain.EventUnpaired)
	})
	return err
}

// breakPairing removes conn's relationship, clears both pairedWith
// pointers, dissolves the shared room and notifies the peer with the
// given event. Shared by explicit unpair and the disconnect cascade.
func (c *Coordinator) breakPairing(conn *domain.Connection, reason string, peerEvent domain.EventType) []domain.Delivery {
	pairID, ok := c.pairByConn[conn.ID]
	if !ok {
		return nil
	}
	rel := c.pairings[pairID]
	peerID := rel.Other(conn.ID)

	delete(c.pairings, pairID)
	delete(c.pairByConn, conn.ID)
	delete(c.pairByConn, peerID)
	conn.PairedWith = ""
	c.metrics.PairingRemoved()

	var ds []domain.Delivery
	room := domain.PairRoom(pairID)
	ds = append(ds, c.removeFromRoom(conn, room)...)

	if peer, ok := c.connections[peerID]; ok {
		peer.conn.PairedWith = ""
		ds = append(ds, c.removeFromRoom(peer.conn, room)...)
		ds = append(ds, domain.Delivery{
			To: peerID,
			Event: domain.Event{Type: peerEvent, Payload: domain.UnpairedPayload{
				PeerConnectionID: conn.ID,
				Reason:           reason,
			}},
		})
	}

	c.logger.Infow("pairing removed",
		"pair_id", pairID,
		"reason", reason,
	)
	return ds
}
