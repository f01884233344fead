package contestdomain

import (
	"sort"
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JournalField is the status array holding journal entries.
const JournalField = "journal"

// JournalEntry is one judged submission. RID is an ObjectID hex string whose
// timestamp is the submission second.
type JournalEntry struct {
	RID    string  `json:"rid"`
	PID    int64   `json:"pid"`
	Accept bool    `json:"accept"`
	Score  float64 `json:"score"`
}

// Time returns the submission time carried by the record id.
func (e JournalEntry) Time() time.Time {
	oid, err := primitive.ObjectIDFromHex(e.RID)
	if err != nil {
		return time.Time{}
	}
	return oid.Timestamp().UTC()
}

// NewRecordID returns a record id stamped with t.
func NewRecordID(t time.Time) string {
	return primitive.NewObjectIDFromTimestamp(t).Hex()
}

// DecodeJournal reads the journal array out of a status payload.
func DecodeJournal(fields documentdomain.Fields) ([]JournalEntry, error) {
	var holder struct {
		Journal []JournalEntry `json:"journal"`
	}
	if err := fields.Decode(&holder); err != nil {
		return nil, err
	}
	return holder.Journal, nil
}

// CompactJournal drops all but the last entry of each record id. A rejudged
// record is appended again, so its latest verdict takes the later position.
func CompactJournal(journal []JournalEntry) []JournalEntry {
	last := make(map[string]int, len(journal))
	for i, e := range journal {
		last[e.RID] = i
	}
	out := make([]JournalEntry, 0, len(last))
	for i, e := range journal {
		if last[e.RID] == i {
			out = append(out, e)
		}
	}
	return out
}

// SortJournal orders entries by submission time. Record ids from the same
// second keep their lexical order, which for ObjectIDs is creation order.
func SortJournal(journal []JournalEntry) {
	sort.SliceStable(journal, func(i, j int) bool {
		ti, tj := journal[i].Time(), journal[j].Time()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return journal[i].RID < journal[j].RID
	})
}

// filterJournal compacts the journal, keeps the entries whose problem belongs
// to c and returns them in submission order. Judging order is irrelevant: a
// late verdict or a rejudge is folded where the submission happened.
func filterJournal(c *Contest, journal []JournalEntry) []JournalEntry {
	compact := CompactJournal(journal)
	out := make([]JournalEntry, 0, len(compact))
	for _, e := range compact {
		if c.HasProblem(e.PID) {
			out = append(out, e)
		}
	}
	SortJournal(out)
	return out
}

// secondsSince is the whole-second offset of the entry from t.
func secondsSince(e JournalEntry, t time.Time) int64 {
	return e.Time().Unix() - t.Unix()
}
