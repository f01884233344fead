package contestexport

import (
	"bytes"
	"strconv"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// maxBars caps the participants drawn in a chart.
const maxBars = 50

var (
	barColor   = drawing.ColorFromHex("2f6f4e")
	background = drawing.ColorWhite
	textColor  = drawing.ColorFromHex("222222")
)

// scoreColumn is the first total score column, which every rule puts first.
func scoreColumn(header contestdomain.Row) int {
	for i, c := range header {
		if c.Type == contestdomain.CellTotalScore {
			return i
		}
	}
	return -1
}

func userColumn(header contestdomain.Row) int {
	for i, c := range header {
		if c.Type == contestdomain.CellUser {
			return i
		}
	}
	return -1
}

// exportPNG draws the primary score of each ranked participant.
func exportPNG(table *contestdomain.Table) ([]byte, error) {
	col, user := scoreColumn(table.Header), userColumn(table.Header)
	if col < 0 || len(table.Rows) == 0 {
		return renderPlaceholder("No participants yet")
	}

	bars := make([]chart.Value, 0, min(len(table.Rows), maxBars))
	top := 0.0
	for _, row := range table.Rows {
		if len(bars) == maxBars {
			break
		}
		if col >= len(row) {
			continue
		}
		v, err := strconv.ParseFloat(row[col].Value, 64)
		if err != nil {
			continue
		}
		label := ""
		if user >= 0 && user < len(row) {
			label = row[user].Value
		}
		top = max(top, v)
		bars = append(bars, chart.Value{
			Value: v,
			Label: label,
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor},
		})
	}
	if len(bars) == 0 {
		return renderPlaceholder("No participants yet")
	}
	if top == 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title:    table.Header[col].Value,
		Width:    max(400, 40*len(bars)+120),
		Height:   400,
		BarWidth: 24,
		Background: chart.Style{
			FillColor: background,
		},
		Canvas: chart.Style{
			FillColor: background,
		},
		XAxis: chart.Style{
			FontColor:           textColor,
			TextRotationDegrees: 45,
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: textColor},
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// renderPlaceholder draws an empty chart titled msg.
func renderPlaceholder(msg string) ([]byte, error) {
	graph := chart.BarChart{
		Title:  msg,
		Width:  400,
		Height: 200,
		Background: chart.Style{
			FillColor: background,
		},
		Canvas: chart.Style{
			FillColor: background,
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: textColor},
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Bars: []chart.Value{{Value: 0, Style: chart.Style{FillColor: background, StrokeColor: background}}},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
