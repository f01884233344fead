package contestservice

import (
	"fmt"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// ContestNotFoundError is returned when the contest does not exist.
type ContestNotFoundError struct {
	Key documentdomain.DocKey
}

func (e *ContestNotFoundError) Error() string {
	return fmt.Sprintf("contest %s not found", e.Key)
}

// ContestAlreadyAttendedError is returned by a second Attend.
type ContestAlreadyAttendedError struct {
	Key documentdomain.DocKey
	UID int64
}

func (e *ContestAlreadyAttendedError) Error() string {
	return fmt.Sprintf("user %d already attended contest %s", e.UID, e.Key)
}

// ContestNotAttendedError is returned when a journal entry arrives for a user
// who never attended.
type ContestNotAttendedError struct {
	Key documentdomain.DocKey
	UID int64
}

func (e *ContestNotAttendedError) Error() string {
	return fmt.Sprintf("user %d has not attended contest %s", e.UID, e.Key)
}

// ContestScoreboardHiddenError is returned when the rule hides the scoreboard.
type ContestScoreboardHiddenError struct {
	Key documentdomain.DocKey
}

func (e *ContestScoreboardHiddenError) Error() string {
	return fmt.Sprintf("scoreboard of contest %s is hidden", e.Key)
}
