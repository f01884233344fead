package contestdomain

import (
	"strconv"
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	problemdomain "github.com/Black-And-White-Club/hydro/app/modules/problem/domain"
	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
)

// ACMPenaltySeconds is added per rejected attempt before the first accept.
const ACMPenaltySeconds = 20 * 60

// ACMRule ranks by solved count, then penalty time.
type ACMRule struct{}

func (ACMRule) Name() string { return "acm" }
func (ACMRule) Text() string { return "ACM/ICPC" }

func (ACMRule) Check(*Contest) error { return nil }

// Stat counts each problem once, at its first accept. Later submissions to a
// solved problem are ignored.
func (ACMRule) Stat(c *Contest, journal []JournalEntry) Stat {
	details := map[int64]*ProblemDetail{}
	for _, e := range filterJournal(c, journal) {
		d, ok := details[e.PID]
		if !ok {
			d = &ProblemDetail{PID: e.PID}
			details[e.PID] = d
		}
		if d.Accept {
			continue
		}
		d.RID = e.RID
		if !e.Accept {
			d.Rejected++
			continue
		}
		d.Accept = true
		d.TimeSpent = secondsSince(e, c.BeginAt)
		d.Time = d.TimeSpent + ACMPenaltySeconds*d.Rejected
		d.Score = e.Score
	}

	stat := Stat{Detail: []ProblemDetail{}}
	for _, pid := range c.PIDs {
		d, ok := details[pid]
		if !ok {
			continue
		}
		if d.Accept {
			stat.Accept++
			stat.Time += d.Time
		}
		stat.Detail = append(stat.Detail, *d)
	}
	return stat
}

func (ACMRule) ShowScoreboard(*Contest, time.Time) bool { return true }

func (ACMRule) ShowRecord(c *Contest, now time.Time) bool { return IsDone(c, now) }

func (ACMRule) SortKey() []documentdomain.SortField {
	return []documentdomain.SortField{{Field: "accept", Desc: true}, {Field: "time"}}
}

func acmLess(a, b Stat) bool {
	if a.Accept != b.Accept {
		return a.Accept > b.Accept
	}
	return a.Time < b.Time
}

func acmTie(a, b Stat) bool { return a.Accept == b.Accept && a.Time == b.Time }

func (ACMRule) Rank(participants []Participant) []Ranked {
	return rankDense(participants, acmLess, acmTie)
}

func (r ACMRule) Scoreboard(isExport bool, tr Translate, c *Contest, ranked []Ranked, udict map[int64]*userdomain.User, pdict map[int64]*problemdomain.Problem) Table {
	header := Row{
		{Type: CellRank, Value: tr("Rank")},
		{Type: CellUser, Value: tr("User")},
	}
	if isExport {
		header = append(header, Cell{Type: CellString, Value: tr("Display Name")})
	}
	header = append(header,
		Cell{Type: CellTotalScore, Value: tr("Solved")},
		Cell{Type: CellTotalTime, Value: tr("Penalty")},
	)
	header = append(header, problemHeader(c, pdict)...)

	rows := make([]Row, 0, len(ranked))
	for _, p := range ranked {
		row := Row{
			{Type: CellString, Value: strconv.Itoa(p.Rank)},
			userCell(p.UID, udict),
		}
		if isExport {
			row = append(row, Cell{Type: CellString, Value: displayName(p.UID, udict)})
		}
		row = append(row,
			Cell{Type: CellString, Value: strconv.FormatInt(p.Stat.Accept, 10), Raw: p.Stat.Accept},
			timeCell(p.Stat.Time, isExport),
		)
		for _, pid := range c.PIDs {
			d, ok := p.Stat.DetailFor(pid)
			if !ok {
				row = append(row, Cell{Type: CellRecord})
				continue
			}
			row = append(row, acmProblemCell(d, isExport))
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

func acmProblemCell(d ProblemDetail, isExport bool) Cell {
	var value string
	switch {
	case d.Accept && d.Rejected > 0:
		value = "+" + strconv.FormatInt(d.Rejected, 10)
	case d.Accept:
		value = "+"
	default:
		value = "-" + strconv.FormatInt(d.Rejected, 10)
	}
	cell := Cell{Type: CellRecord, Value: value, Raw: d.RID}
	if d.Accept {
		if isExport {
			cell.Value += " (" + FormatDuration(d.TimeSpent) + ")"
		} else {
			cell.Hover = FormatDuration(d.TimeSpent)
		}
		cell.Style = StyleAccepted
	} else {
		cell.Style = StyleRejected
	}
	return cell
}
