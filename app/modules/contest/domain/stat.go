package contestdomain

import documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"

// ProblemDetail is the per-problem part of a Stat.
type ProblemDetail struct {
	PID          int64   `json:"pid"`
	RID          string  `json:"rid"`
	Accept       bool    `json:"accept"`
	Rejected     int64   `json:"rejected"`
	Time         int64   `json:"time"`
	Score        float64 `json:"score"`
	PenaltyScore float64 `json:"penaltyScore"`
	TimeSpent    int64   `json:"timeSpent"`
}

// Stat is the aggregate a rule derives from a journal. It is stored on the
// contest status next to the journal.
type Stat struct {
	Accept       int64           `json:"accept"`
	Time         int64           `json:"time"`
	Score        float64         `json:"score"`
	PenaltyScore float64         `json:"penaltyScore"`
	Detail       []ProblemDetail `json:"detail"`
}

// Fields returns the status payload for the aggregate.
func (s Stat) Fields() documentdomain.Fields {
	if s.Detail == nil {
		s.Detail = []ProblemDetail{}
	}
	return documentdomain.MustNormalize(s)
}

// DetailFor returns the detail of pid.
func (s Stat) DetailFor(pid int64) (ProblemDetail, bool) {
	for _, d := range s.Detail {
		if d.PID == pid {
			return d, true
		}
	}
	return ProblemDetail{}, false
}

// DecodeStat reads the aggregate out of a status payload.
func DecodeStat(fields documentdomain.Fields) (Stat, error) {
	var s Stat
	if err := fields.Decode(&s); err != nil {
		return Stat{}, err
	}
	return s, nil
}

// Status is one user's contest status.
type Status struct {
	DomainID string                 `json:"domainId"`
	DocType  documentdomain.DocType `json:"docType"`
	DocID    documentdomain.DocID   `json:"docId"`
	UID      int64                  `json:"uid"`
	Rev      int64                  `json:"rev"`
	Attend   bool                   `json:"attend"`
	Journal  []JournalEntry         `json:"journal"`
	Stat     Stat                   `json:"stat"`
}

// Attended reports whether the status records an attendance.
func Attended(st *documentdomain.Status) bool {
	return st != nil && st.Fields.Int64("attend") == 1
}

// DecodeStatus reads a stored contest status.
func DecodeStatus(st *documentdomain.Status) (*Status, error) {
	journal, err := DecodeJournal(st.Fields)
	if err != nil {
		return nil, err
	}
	stat, err := DecodeStat(st.Fields)
	if err != nil {
		return nil, err
	}
	if journal == nil {
		journal = []JournalEntry{}
	}
	return &Status{
		DomainID: st.DomainID,
		DocType:  st.DocType,
		DocID:    st.DocID,
		UID:      st.UID,
		Rev:      st.Rev,
		Attend:   Attended(st),
		Journal:  journal,
		Stat:     stat,
	}, nil
}
