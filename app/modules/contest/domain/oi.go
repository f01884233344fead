package contestdomain

import (
	"strconv"
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	problemdomain "github.com/Black-And-White-Club/hydro/app/modules/problem/domain"
	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
)

// OIRule ranks by the sum of the last score on each problem.
type OIRule struct{}

func (OIRule) Name() string { return "oi" }
func (OIRule) Text() string { return "OI" }

func (OIRule) Check(*Contest) error { return nil }

func (OIRule) Stat(c *Contest, journal []JournalEntry) Stat {
	last := map[int64]JournalEntry{}
	for _, e := range filterJournal(c, journal) {
		last[e.PID] = e
	}
	stat := Stat{Detail: []ProblemDetail{}}
	for _, pid := range c.PIDs {
		e, ok := last[pid]
		if !ok {
			continue
		}
		d := ProblemDetail{
			PID:       pid,
			RID:       e.RID,
			Accept:    e.Accept,
			Score:     e.Score,
			TimeSpent: secondsSince(e, c.BeginAt),
		}
		if e.Accept {
			stat.Accept++
		}
		stat.Score += e.Score
		stat.Detail = append(stat.Detail, d)
	}
	return stat
}

func (OIRule) ShowScoreboard(c *Contest, now time.Time) bool { return IsDone(c, now) }

func (OIRule) ShowRecord(c *Contest, now time.Time) bool { return IsDone(c, now) }

func (OIRule) SortKey() []documentdomain.SortField {
	return []documentdomain.SortField{{Field: "score", Desc: true}}
}

func (OIRule) Rank(participants []Participant) []Ranked {
	return rankDense(participants,
		func(a, b Stat) bool { return a.Score > b.Score },
		func(a, b Stat) bool { return a.Score == b.Score },
	)
}

func (OIRule) Scoreboard(isExport bool, tr Translate, c *Contest, ranked []Ranked, udict map[int64]*userdomain.User, pdict map[int64]*problemdomain.Problem) Table {
	header := Row{
		{Type: CellRank, Value: tr("Rank")},
		{Type: CellUser, Value: tr("User")},
	}
	if isExport {
		header = append(header, Cell{Type: CellString, Value: tr("Display Name")})
	}
	header = append(header, Cell{Type: CellTotalScore, Value: tr("Total Score")})
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
		row = append(row, Cell{Type: CellString, Value: FormatScore(p.Stat.Score), Raw: p.Stat.Score})
		for _, pid := range c.PIDs {
			d, ok := p.Stat.DetailFor(pid)
			if !ok {
				row = append(row, Cell{Type: CellRecord})
				continue
			}
			cell := Cell{Type: CellRecord, Value: FormatScore(d.Score), Raw: d.RID}
			if d.Accept {
				cell.Style = StyleAccepted
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}
