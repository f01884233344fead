package contestexport

import (
	"bytes"
	"encoding/csv"
	"testing"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func sampleTable() *contestdomain.Table {
	return &contestdomain.Table{
		Header: contestdomain.Row{
			{Type: contestdomain.CellRank, Value: "Rank"},
			{Type: contestdomain.CellUser, Value: "User"},
			{Type: contestdomain.CellTotalScore, Value: "Solved"},
			{Type: contestdomain.CellTotalTime, Value: "Penalty"},
			{Type: contestdomain.CellProblem, Value: "A", Raw: int64(1)},
		},
		Rows: []contestdomain.Row{
			{
				{Type: contestdomain.CellString, Value: "1"},
				{Type: contestdomain.CellUser, Value: "alice", Raw: int64(2)},
				{Type: contestdomain.CellString, Value: "2"},
				{Type: contestdomain.CellString, Value: "5400"},
				{Type: contestdomain.CellRecord, Value: "+1 (0:50:00)"},
			},
			{
				{Type: contestdomain.CellString, Value: "2"},
				{Type: contestdomain.CellUser, Value: "bob, jr", Raw: int64(3)},
				{Type: contestdomain.CellString, Value: "1"},
				{Type: contestdomain.CellString, Value: "600"},
				{Type: contestdomain.CellRecord},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"xlsx", "csv", "png"} {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		assert.NotEqual(t, "application/octet-stream", f.ContentType())
	}
	_, err := ParseFormat("pdf")
	require.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	out, err := Export(sampleTable(), FormatCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Rank", "User", "Solved", "Penalty", "A"}, records[0])
	assert.Equal(t, "bob, jr", records[2][1])
	assert.Equal(t, "", records[2][4])
}

func TestExportXLSX(t *testing.T) {
	out, err := Export(sampleTable(), FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Solved", rows[0][2])
	assert.Equal(t, "alice", rows[1][1])
	assert.Equal(t, "5400", rows[1][3])
	assert.Equal(t, "+1 (0:50:00)", rows[1][4])
}

func TestExportPNG(t *testing.T) {
	out, err := Export(sampleTable(), FormatPNG)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, pngMagic))

	empty := &contestdomain.Table{Header: sampleTable().Header}
	out, err = Export(empty, FormatPNG)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, pngMagic), "empty boards render a placeholder")
}

func TestScoreColumn(t *testing.T) {
	assert.Equal(t, 2, scoreColumn(sampleTable().Header))
	assert.Equal(t, -1, scoreColumn(contestdomain.Row{{Type: contestdomain.CellRank}}))
}
