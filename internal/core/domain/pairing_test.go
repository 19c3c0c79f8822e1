package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPairID_SymmetricAcrossInitiators(t *testing.T) {
	a := ConnectionID("conn_aaa")
	b := ConnectionID("conn_bbb")

	assert.Equal(t, CanonicalPairID(a, b), CanonicalPairID(b, a))
}

func TestNewPairingRelationship_Other(t *testing.T) {
	a := ConnectionID("conn_aaa")
	b := ConnectionID("conn_bbb")
	rel := NewPairingRelationship(b, a)

	assert.Equal(t, CanonicalPairID(a, b), rel.ID)
	assert.Equal(t, b, rel.Other(a))
	assert.Equal(t, a, rel.Other(b))
	assert.Equal(t, ConnectionID(""), rel.Other("conn_ccc"))
	assert.True(t, rel.Has(a))
	assert.True(t, rel.Has(b))
	assert.False(t, rel.Has("conn_ccc"))
}

func TestRoomID_Builders(t *testing.T) {
	exp := ExperimentID("exp1")

	assert.Equal(t, RoomID{Scope: "exp1", Purpose: PurposeControl}, ControlRoom(exp))
	assert.Equal(t, RoomID{Scope: "exp1", Purpose: PurposeObserver}, ObserverRoom(exp))
	assert.NotEqual(t, ControlRoom(exp), ControllerRoom(exp))
	assert.Equal(t, "exp1/control", ControlRoom(exp).String())
}
