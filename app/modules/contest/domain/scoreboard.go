package contestdomain

import (
	"fmt"
	"strconv"

	problemdomain "github.com/Black-And-White-Club/hydro/app/modules/problem/domain"
	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
)

// CellType tells renderers how to present a cell.
type CellType string

const (
	CellRank       CellType = "rank"
	CellUser       CellType = "user"
	CellString     CellType = "string"
	CellTime       CellType = "time"
	CellRecord     CellType = "record"
	CellProblem    CellType = "problem"
	CellTotalScore CellType = "total_score"
	CellTotalTime  CellType = "total_time"
)

const (
	StyleAccepted = "accepted"
	StyleRejected = "rejected"
)

// Cell is one scoreboard cell. Raw carries the machine value behind Value
// (a uid, a pid, a record id or a number).
type Cell struct {
	Type  CellType `json:"type"`
	Value string   `json:"value"`
	Raw   any      `json:"raw,omitempty"`
	Hover string   `json:"hover,omitempty"`
	Style string   `json:"style,omitempty"`
}

// Row is a scoreboard row.
type Row []Cell

// Table is a rendered scoreboard.
type Table struct {
	Header Row   `json:"header"`
	Rows   []Row `json:"rows"`
}

// FormatDuration renders seconds as h:mm:ss.
func FormatDuration(sec int64) string {
	sign := ""
	if sec < 0 {
		sign = "-"
		sec = -sec
	}
	return fmt.Sprintf("%s%d:%02d:%02d", sign, sec/3600, sec/60%60, sec%60)
}

// FormatScore renders a score without trailing zeros.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ProblemLabel names the i-th contest problem: A..Z, then #27 onwards.
func ProblemLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return "#" + strconv.Itoa(i+1)
}

func problemHeader(c *Contest, pdict map[int64]*problemdomain.Problem) Row {
	out := make(Row, 0, len(c.PIDs))
	for i, pid := range c.PIDs {
		cell := Cell{Type: CellProblem, Value: ProblemLabel(i), Raw: pid}
		if p, ok := pdict[pid]; ok && p != nil {
			cell.Hover = p.Title
		}
		out = append(out, cell)
	}
	return out
}

func userCell(uid int64, udict map[int64]*userdomain.User) Cell {
	u, ok := udict[uid]
	if !ok || u == nil {
		u = userdomain.PlaceholderUser(uid)
	}
	return Cell{Type: CellUser, Value: u.Uname, Raw: uid}
}

func displayName(uid int64, udict map[int64]*userdomain.User) string {
	if u, ok := udict[uid]; ok && u != nil {
		return u.DisplayName
	}
	return ""
}

func timeCell(sec int64, isExport bool) Cell {
	if isExport {
		return Cell{Type: CellTime, Value: strconv.FormatInt(sec, 10), Raw: sec}
	}
	return Cell{Type: CellTime, Value: FormatDuration(sec), Raw: sec}
}
