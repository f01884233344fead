package contestdomain

import (
	"strconv"
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	problemdomain "github.com/Black-And-White-Club/hydro/app/modules/problem/domain"
	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
	"github.com/Black-And-White-Club/hydro/internal/validation"
)

// HomeworkRule scores each problem by its first accepted submission, or the
// last one when nothing was accepted, scaled by the late-submission penalty.
type HomeworkRule struct{}

func (HomeworkRule) Name() string { return "homework" }
func (HomeworkRule) Text() string { return "Assignment" }

func (HomeworkRule) Check(c *Contest) error {
	if c.PenaltySince == nil {
		return validation.NewError("penaltySince", "required")
	}
	if c.PenaltySince.Before(c.BeginAt) || c.PenaltySince.After(c.EndAt) {
		return validation.NewError("penaltySince", "must be within [beginAt, endAt]")
	}
	for k, v := range c.PenaltyRules {
		h, err := strconv.ParseFloat(k, 64)
		if err != nil || h < 0 {
			return validation.NewError("penaltyRules", "hours must be non-negative numbers")
		}
		if v < 0 || v > 1 {
			return validation.NewError("penaltyRules", "multiplier must be within [0, 1]")
		}
	}
	return nil
}

func (HomeworkRule) penaltyScore(c *Contest, e JournalEntry) float64 {
	if c.PenaltySince == nil {
		return e.Score
	}
	late := secondsSince(e, *c.PenaltySince)
	if late < 0 {
		return e.Score
	}
	return e.Score * c.PenaltyRules.Multiplier(late)
}

func (r HomeworkRule) Stat(c *Contest, journal []JournalEntry) Stat {
	effective := map[int64]JournalEntry{}
	for _, e := range filterJournal(c, journal) {
		if prev, ok := effective[e.PID]; ok && prev.Accept {
			continue
		}
		effective[e.PID] = e
	}
	stat := Stat{Detail: []ProblemDetail{}}
	for _, pid := range c.PIDs {
		e, ok := effective[pid]
		if !ok {
			continue
		}
		d := ProblemDetail{
			PID:          pid,
			RID:          e.RID,
			Accept:       e.Accept,
			Score:        e.Score,
			PenaltyScore: r.penaltyScore(c, e),
			TimeSpent:    secondsSince(e, c.BeginAt),
		}
		d.Time = d.TimeSpent
		if d.Accept {
			stat.Accept++
		}
		stat.Score += d.Score
		stat.PenaltyScore += d.PenaltyScore
		stat.Time += d.TimeSpent
		stat.Detail = append(stat.Detail, d)
	}
	return stat
}

func (HomeworkRule) ShowScoreboard(*Contest, time.Time) bool { return true }

func (HomeworkRule) ShowRecord(c *Contest, now time.Time) bool { return IsDone(c, now) }

func (HomeworkRule) SortKey() []documentdomain.SortField {
	return []documentdomain.SortField{{Field: "penaltyScore", Desc: true}, {Field: "time"}}
}

func (HomeworkRule) Rank(participants []Participant) []Ranked {
	return rankDense(participants,
		func(a, b Stat) bool {
			if a.PenaltyScore != b.PenaltyScore {
				return a.PenaltyScore > b.PenaltyScore
			}
			return a.Time < b.Time
		},
		func(a, b Stat) bool { return a.PenaltyScore == b.PenaltyScore },
	)
}

func (HomeworkRule) Scoreboard(isExport bool, tr Translate, c *Contest, ranked []Ranked, udict map[int64]*userdomain.User, pdict map[int64]*problemdomain.Problem) Table {
	header := Row{
		{Type: CellRank, Value: tr("Rank")},
		{Type: CellUser, Value: tr("User")},
	}
	if isExport {
		header = append(header, Cell{Type: CellString, Value: tr("Display Name")})
	}
	header = append(header,
		Cell{Type: CellTotalScore, Value: tr("Score")},
		Cell{Type: CellTotalScore, Value: tr("Original Score")},
		Cell{Type: CellTotalTime, Value: tr("Total Time")},
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
			Cell{Type: CellString, Value: FormatScore(p.Stat.PenaltyScore), Raw: p.Stat.PenaltyScore},
			Cell{Type: CellString, Value: FormatScore(p.Stat.Score), Raw: p.Stat.Score},
			timeCell(p.Stat.Time, isExport),
		)
		for _, pid := range c.PIDs {
			d, ok := p.Stat.DetailFor(pid)
			if !ok {
				row = append(row, Cell{Type: CellRecord})
				continue
			}
			cell := Cell{Type: CellRecord, Value: FormatScore(d.PenaltyScore), Raw: d.RID}
			if d.PenaltyScore != d.Score {
				if isExport {
					cell.Value += " (" + FormatScore(d.Score) + ")"
				} else {
					cell.Hover = FormatScore(d.Score)
				}
			}
			if d.Accept {
				cell.Style = StyleAccepted
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}
