package contestdomain

import "time"

// IsNew reports that the contest starts more than lead from now.
func IsNew(c *Contest, lead time.Duration, now time.Time) bool {
	return now.Before(c.BeginAt.Add(-lead))
}

// IsUpcoming reports that the contest starts within lead.
func IsUpcoming(c *Contest, lead time.Duration, now time.Time) bool {
	return !now.Before(c.BeginAt.Add(-lead)) && now.Before(c.BeginAt)
}

// IsNotStarted reports now < beginAt.
func IsNotStarted(c *Contest, now time.Time) bool {
	return now.Before(c.BeginAt)
}

// IsOngoing reports beginAt <= now < endAt.
func IsOngoing(c *Contest, now time.Time) bool {
	return !now.Before(c.BeginAt) && now.Before(c.EndAt)
}

// IsDone reports now >= endAt.
func IsDone(c *Contest, now time.Time) bool {
	return !now.Before(c.EndAt)
}

// IsExtended reports that a homework is past penaltySince but still open.
func IsExtended(c *Contest, now time.Time) bool {
	if c.PenaltySince == nil {
		return false
	}
	return !now.Before(*c.PenaltySince) && now.Before(c.EndAt)
}

// Phase names the state of a contest.
type Phase string

const (
	PhaseNew      Phase = "New"
	PhaseUpcoming Phase = "Ready"
	PhaseOngoing  Phase = "Live"
	PhaseExtended Phase = "Extended"
	PhaseDone     Phase = "Done"
)

// StatusText returns the phase of c at now.
func StatusText(c *Contest, lead time.Duration, now time.Time) Phase {
	switch {
	case IsNew(c, lead, now):
		return PhaseNew
	case IsUpcoming(c, lead, now):
		return PhaseUpcoming
	case IsExtended(c, now):
		return PhaseExtended
	case IsOngoing(c, now):
		return PhaseOngoing
	}
	return PhaseDone
}
