// Package contestdomain holds the contest model, phase predicates, the scoring
// rules and the scoreboard table they render.
package contestdomain

import (
	"sort"
	"strconv"
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// Contest is a contest or homework document (tdoc).
type Contest struct {
	DomainID string                 `json:"-"`
	DocType  documentdomain.DocType `json:"-"`
	DocID    documentdomain.DocID   `json:"-"`
	Owner    int64                  `json:"-"`
	Content  string                 `json:"-"`

	Title   string    `json:"title"`
	Rule    string    `json:"rule"`
	BeginAt time.Time `json:"beginAt"`
	EndAt   time.Time `json:"endAt"`
	PIDs    []int64   `json:"pids"`
	Attend  int64     `json:"attend"`
	Rated   bool      `json:"rated"`

	// Homework only.
	PenaltySince *time.Time   `json:"penaltySince,omitempty"`
	PenaltyRules PenaltyRules `json:"penaltyRules,omitempty"`
}

// PenaltyRules maps hours past penaltySince (as decimal strings) to a score multiplier.
type PenaltyRules map[string]float64

// Breakpoint is one parsed penalty rule.
type Breakpoint struct {
	Hours      float64
	Multiplier float64
}

// Breakpoints returns the rules sorted by hours. Keys that do not parse are skipped.
func (p PenaltyRules) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, 0, len(p))
	for k, v := range p {
		h, err := strconv.ParseFloat(k, 64)
		if err != nil {
			continue
		}
		out = append(out, Breakpoint{Hours: h, Multiplier: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hours < out[j].Hours })
	return out
}

// Multiplier returns the multiplier of the highest breakpoint reached after
// secondsLate seconds, or 1 before any breakpoint.
func (p PenaltyRules) Multiplier(secondsLate int64) float64 {
	m := 1.0
	for _, bp := range p.Breakpoints() {
		if int64(bp.Hours*3600) <= secondsLate {
			m = bp.Multiplier
		}
	}
	return m
}

// Key returns the document address of the contest.
func (c *Contest) Key() documentdomain.DocKey {
	return documentdomain.DocKey{DomainID: c.DomainID, DocType: c.DocType, DocID: c.DocID}
}

// HasProblem reports whether pid belongs to the contest.
func (c *Contest) HasProblem(pid int64) bool {
	for _, p := range c.PIDs {
		if p == pid {
			return true
		}
	}
	return false
}

// Fields returns the stored payload.
func (c *Contest) Fields() documentdomain.Fields {
	return documentdomain.MustNormalize(c)
}

// FromDocument decodes a contest document.
func FromDocument(doc *documentdomain.Document) (*Contest, error) {
	var c Contest
	if err := doc.Fields.Decode(&c); err != nil {
		return nil, err
	}
	c.DomainID = doc.DomainID
	c.DocType = doc.DocType
	c.DocID = doc.DocID
	c.Owner = doc.Owner
	c.Content = doc.Content
	if c.PIDs == nil {
		c.PIDs = []int64{}
	}
	return &c, nil
}

// NormalizeTime is how contest times are stored: UTC, whole seconds.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
