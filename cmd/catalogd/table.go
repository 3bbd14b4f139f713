package main

import (
	"strconv"
	"strings"

	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/mattn/go-runewidth"
)

const maxDescriptionWidth = 48

var tableHeader = []string{"CODIGO", "DESCRIPCION", "PRECIO", "STOCK", "RUBRO", "MARCA"}

// renderTable lays articles out in aligned columns. Widths are measured in
// terminal cells so accented descriptions stay aligned.
func renderTable(articles []models.Article) string {
	rows := make([][]string, 0, len(articles)+1)
	rows = append(rows, tableHeader)
	for _, a := range articles {
		stock := string(a.Availability)
		if !a.Availability.Valid() {
			stock = "-"
		}
		rows = append(rows, []string{
			a.Code,
			runewidth.Truncate(a.Description, maxDescriptionWidth, "…"),
			strconv.FormatFloat(a.Price, 'f', 2, 64),
			stock,
			a.Category,
			a.Brand,
		})
	}

	widths := make([]int, len(tableHeader))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(row)-1 {
				b.WriteString(cell)
				continue
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		b.WriteString("\n")
	}
	return b.String()
}
