package submission

type State int

const (
	StateIdle State = iota
	StateBuildingObservations
	StateResolvingTime
	StateClosingPriorVisits
	StateCreatingVisit
	StateCreatingEncounter
	StateClosingVisit
	StateRetrying
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                 "idle",
	StateBuildingObservations: "building_observations",
	StateResolvingTime:        "resolving_time",
	StateClosingPriorVisits:   "closing_prior_visits",
	StateCreatingVisit:        "creating_visit",
	StateCreatingEncounter:    "creating_encounter",
	StateClosingVisit:         "closing_visit",
	StateRetrying:             "retrying",
	StateDone:                 "done",
	StateFailed:               "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
