package services

// MatchPolicy selects between a free-size roster composed after creation and
// full fixed-size teams required when the match is created.
type MatchPolicy struct {
	RosterCapacity             int
	RequireFullTeamsAtCreation bool
}

func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{RosterCapacity: DefaultRosterCapacity}
}

func (p MatchPolicy) capacity() int {
	if p.RosterCapacity <= 0 {
		return DefaultRosterCapacity
	}
	return p.RosterCapacity
}

func (p MatchPolicy) teamSize() int {
	return p.capacity() / 2
}
