package domain

import "fmt"

// RoomPurpose distinguishes the broadcast groups that share an experiment.
type RoomPurpose string

const (
	// PurposeControl is the shared room for a controller and its
	// participants; control events flow here.
	PurposeControl RoomPurpose = "control"
	// PurposeController holds only controller connections; participant
	// progress reports (step-complete) route here.
	PurposeController RoomPurpose = "controller"
	// PurposeObserver holds telemetry watchers for an experiment.
	PurposeObserver RoomPurpose = "observer"
	// PurposePair is the private room shared by a paired couple. Its
	// scope field carries the pair ID instead of an experiment ID.
	PurposePair RoomPurpose = "pair"
)

// RoomID is a typed broadcast-group key. Rooms are created implicitly on
// first join and garbage-collected once empty.
type RoomID struct {
	Scope   string      // experiment ID, or pair ID for pair rooms
	Purpose RoomPurpose
}

func ControlRoom(experimentID ExperimentID) RoomID {
	return RoomID{Scope: string(experimentID), Purpose: PurposeControl}
}

func ControllerRoom(experimentID ExperimentID) RoomID {
	return RoomID{Scope: string(experimentID), Purpose: PurposeController}
}

func ObserverRoom(experimentID ExperimentID) RoomID {
	return RoomID{Scope: string(experimentID), Purpose: PurposeObserver}
}

func PairRoom(pairID PairID) RoomID {
	return RoomID{Scope: string(pairID), Purpose: PurposePair}
}

func (r RoomID) String() string {
	return fmt.Sprintf("%s/%s", r.Scope, r.Purpose)
}
