package room

import "time"

// Join window boundaries around the scheduled interview time.
const (
	// JoinOpensBefore is how early participants may enter the room.
	JoinOpensBefore = 15 * time.Minute
	// JoinGrace is how long after the scheduled start a participant may
	// still join, and how long past the scheduled end the room stays open.
	JoinGrace = 20 * time.Minute
)

// Window is the joinable interval for one interview.
type Window struct {
	OpensAt      time.Time // scheduled - JoinOpensBefore
	JoinDeadline time.Time // scheduled + JoinGrace; last moment to join
	ClosesAt     time.Time // scheduled + duration + JoinGrace
}

// WindowFor computes the join window from the scheduled start and the
// interview duration in minutes.
func WindowFor(scheduled time.Time, durationMinutes int) Window {
	return Window{
		OpensAt:      scheduled.Add(-JoinOpensBefore),
		JoinDeadline: scheduled.Add(JoinGrace),
		ClosesAt:     scheduled.Add(time.Duration(durationMinutes) * time.Minute).Add(JoinGrace),
	}
}

// Contains reports whether joining is allowed at the given moment. The window
// is closed-open: opening instant joinable, closing instant not.
func (w Window) Contains(now time.Time) bool {
	return !now.Before(w.OpensAt) && now.Before(w.ClosesAt)
}

// Expired reports whether the whole window has passed.
func (w Window) Expired(now time.Time) bool {
	return now.After(w.ClosesAt)
}

// DeadlinePassed reports whether the last moment to join has passed.
func (w Window) DeadlinePassed(now time.Time) bool {
	return !now.Before(w.JoinDeadline)
}

// Window phases as shown to clients.
const (
	PhaseTooEarly = "too_early"
	PhaseJoinable = "joinable"
	PhaseTooLate  = "too_late"
)

// PhaseAt names where the given moment falls relative to the window.
func (w Window) PhaseAt(now time.Time) string {
	switch {
	case now.Before(w.OpensAt):
		return PhaseTooEarly
	case now.Before(w.ClosesAt):
		return PhaseJoinable
	default:
		return PhaseTooLate
	}
}
