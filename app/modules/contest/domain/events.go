package contestdomain

import (
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// Event topics.
const (
	ContestAttendedV1      = "contest.attended.v1"
	ContestStatusUpdatedV1 = "contest.status.updated.v1"
	ContestRecalculatedV1  = "contest.recalculated.v1"
	ContestEditedV1        = "contest.edited.v1"
)

// ContestRef identifies the contest an event is about.
type ContestRef struct {
	DomainID  string                 `json:"domain_id"`
	DocType   documentdomain.DocType `json:"doc_type"`
	ContestID documentdomain.DocID   `json:"contest_id"`
}

// RefOf builds a ContestRef from a document key.
func RefOf(k documentdomain.DocKey) ContestRef {
	return ContestRef{DomainID: k.DomainID, DocType: k.DocType, ContestID: k.DocID}
}

// Key returns the document key of the referenced contest.
func (r ContestRef) Key() documentdomain.DocKey {
	return documentdomain.DocKey{DomainID: r.DomainID, DocType: r.DocType, DocID: r.ContestID}
}

// ContestAttendedPayload is published after a user attends.
type ContestAttendedPayload struct {
	ContestRef
	UID        int64     `json:"uid"`
	AttendedAt time.Time `json:"attended_at"`
}

// ContestStatusUpdatedPayload is published after a journal entry is appended.
type ContestStatusUpdatedPayload struct {
	ContestRef
	UID    int64   `json:"uid"`
	RID    string  `json:"rid"`
	PID    int64   `json:"pid"`
	Accept bool    `json:"accept"`
	Score  float64 `json:"score"`
	Rev    int64   `json:"rev"`
	// Applied is false when a concurrent writer won the aggregate update.
	Applied bool `json:"applied"`
}

// ContestRecalculatedPayload is published after a full recalculation.
type ContestRecalculatedPayload struct {
	ContestRef
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// ContestEditedPayload is published after a contest is edited.
type ContestEditedPayload struct {
	ContestRef
	Changed []string `json:"changed"`
	Recalc  bool     `json:"recalc"`
}
