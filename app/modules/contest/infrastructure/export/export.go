// Package contestexport renders scoreboard tables as files.
package contestexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPNG  Format = "png"
)

// SheetName is the worksheet holding an xlsx export.
const SheetName = "Scoreboard"

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatXLSX, FormatCSV, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// Export renders table in format.
func Export(table *contestdomain.Table, format Format) ([]byte, error) {
	switch format {
	case FormatXLSX:
		return exportXLSX(table)
	case FormatCSV:
		return exportCSV(table)
	case FormatPNG:
		return exportPNG(table)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

func values(row contestdomain.Row) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.Value
	}
	return out
}

func exportCSV(table *contestdomain.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(values(table.Header)); err != nil {
		return nil, err
	}
	for _, row := range table.Rows {
		if err := w.Write(values(row)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue keeps numeric columns numeric in the sheet.
func cellValue(c contestdomain.Cell) any {
	switch c.Type {
	case contestdomain.CellTotalScore, contestdomain.CellTotalTime, contestdomain.CellTime:
		if f, err := strconv.ParseFloat(c.Value, 64); err == nil {
			return f
		}
	}
	return c.Value
}

func exportXLSX(table *contestdomain.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	write := func(idx int, row contestdomain.Row, header bool) error {
		axis, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(row))
		for i, c := range row {
			if header {
				cells[i] = c.Value
			} else {
				cells[i] = cellValue(c)
			}
		}
		return f.SetSheetRow(SheetName, axis, &cells)
	}

	if err := write(0, table.Header, true); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if len(table.Header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(table.Header), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
	}
	for i, row := range table.Rows {
		if err := write(i+1, row, false); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
