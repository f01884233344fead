package contestqueue

import (
	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// QueueName is the River queue contest jobs run on.
const QueueName = "contest"

// RecalcContestArgs asks a worker to recompute every status of one contest.
type RecalcContestArgs struct {
	DomainID  string `json:"domain_id"`
	DocType   int    `json:"doc_type"`
	ContestID string `json:"contest_id"`
}

// Kind returns the job type identifier for River
func (RecalcContestArgs) Kind() string { return "contest_recalc" }

// Ref returns the contest the job is about.
func (a RecalcContestArgs) Ref() contestdomain.ContestRef {
	return contestdomain.ContestRef{
		DomainID:  a.DomainID,
		DocType:   documentdomain.DocType(a.DocType),
		ContestID: documentdomain.DocID(a.ContestID),
	}
}

func argsFor(ref contestdomain.ContestRef) RecalcContestArgs {
	return RecalcContestArgs{
		DomainID:  ref.DomainID,
		DocType:   int(ref.DocType),
		ContestID: string(ref.ContestID),
	}
}

// JobInfo describes a queued recalculation (for debugging/monitoring)
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	ContestID   string `json:"contest_id"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
	CreatedAt   string `json:"created_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
