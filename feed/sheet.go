package feed

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/aluiziolira/okawa-catalog/parser"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic = []byte("PK\x03\x04")
)

// ParseSheet reads the first worksheet of the spreadsheet called name and
// returns its data rows keyed by the header row. Missing cells are "" and
// fully blank rows are dropped. The format is sniffed from the content; the
// extension of name is only consulted when the content is inconclusive.
func ParseSheet(name string, data []byte) ([]parser.Row, error) {
	var (
		grid [][]string
		err  error
	)
	switch sheetFormat(name, data) {
	case "xls":
		grid, err = readXLS(data)
	case "xlsx":
		grid, err = readXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSheet, name)
	}
	if err != nil {
		return nil, err
	}
	return rowsFromGrid(grid)
}

func sheetFormat(name string, data []byte) string {
	switch {
	case bytes.HasPrefix(data, oleMagic):
		return "xls"
	case bytes.HasPrefix(data, zipMagic):
		return "xlsx"
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".xls":
		return "xls"
	case ".xlsx", ".xlsm":
		return "xlsx"
	}
	return ""
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrEmptySheet
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptySheet
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, row.LastCol()+1)
		for col := row.FirstCol(); col <= row.LastCol(); col++ {
			cells[col] = row.Col(col)
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return grid, nil
}

func rowsFromGrid(grid [][]string) ([]parser.Row, error) {
	headerAt := -1
	for i, cells := range grid {
		if !blank(cells) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrEmptySheet
	}

	header := grid[headerAt]
	rows := make([]parser.Row, 0, len(grid)-headerAt-1)
	for _, cells := range grid[headerAt+1:] {
		if blank(cells) {
			continue
		}
		rows = append(rows, parser.NewRow(header, cells))
	}
	return rows, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
