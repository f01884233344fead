package contestdomain

import (
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	problemdomain "github.com/Black-And-White-Club/hydro/app/modules/problem/domain"
	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
)

// Translate maps a label to the viewer's language.
type Translate func(string) string

// Identity is the Translate that returns labels unchanged.
func Identity(s string) string { return s }

// Participant is one attended user with the aggregate stored on the status.
type Participant struct {
	UID  int64 `json:"uid"`
	Stat Stat  `json:"stat"`
}

// Ranked is a participant with its place.
type Ranked struct {
	Rank int `json:"rank"`
	Participant
}

// ContestRule is a scoring strategy.
type ContestRule interface {
	Name() string
	Text() string
	// Check validates rule-specific contest fields.
	Check(c *Contest) error
	// Stat derives the aggregate from the full journal. It must be a pure
	// function of its inputs.
	Stat(c *Contest, journal []JournalEntry) Stat
	ShowScoreboard(c *Contest, now time.Time) bool
	ShowRecord(c *Contest, now time.Time) bool
	// SortKey is the status order used when loading a scoreboard.
	SortKey() []documentdomain.SortField
	// Rank orders participants and assigns dense ranks.
	Rank(participants []Participant) []Ranked
	Scoreboard(isExport bool, tr Translate, c *Contest, ranked []Ranked, udict map[int64]*userdomain.User, pdict map[int64]*problemdomain.Problem) Table
}
