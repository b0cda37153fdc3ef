package domain

import "time"

// Statistics is an aggregate snapshot of the registry and its users.
type Statistics struct {
	TotalEvents          int       `json:"total_events"`
	ActiveEvents         int       `json:"active_events"`
	DistinctParticipants int       `json:"distinct_participants"`
	TotalRegistrations   int       `json:"total_registrations"`
	TotalUsers           int       `json:"total_users"`
	ActiveSessions       int       `json:"active_sessions"`
	ComputedAt           time.Time `json:"computed_at"`
}

// ComputeEventStatistics fills the event-derived fields. Events dated after now are active.
func ComputeEventStatistics(events []*Event, now time.Time) Statistics {
	st := Statistics{
		TotalEvents:          len(events),
		DistinctParticipants: len(DistinctParticipants(events)),
		ComputedAt:           now,
	}
	for _, e := range events {
		if e.Date().After(now) {
			st.ActiveEvents++
		}
		st.TotalRegistrations += e.ParticipantCount()
	}
	return st
}
