// Package export renders filtered vaccination and infection records as CSV and PDF downloads.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jo-hoe/healthdash/internal/backend/database"
)

const (
	VaccinationTitle = "Vaccination Data Export"
	InfectionTitle   = "Infection Data Export"
)

// Column describes one table column. PDFHeader and Width are used by the PDF writer only,
// MaxChars > 0 truncates long PDF cell values.
type Column struct {
	Header    string
	PDFHeader string
	Width     float64
	MaxChars  int
}

// Table is the format independent view of an export.
type Table struct {
	Title   string
	Filters []string
	Columns []Column
	Rows    [][]string
}

// FilterLine renders the applied filters, e.g. "Filters Applied: Country: Kenya; From: 2010".
func (t Table) FilterLine() string {
	return "Filters Applied: " + strings.Join(t.Filters, "; ")
}

func (t Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	return headers
}

var vaccinationColumns = []Column{
	{Header: "Year", PDFHeader: "Year", Width: 40},
	{Header: "Country", PDFHeader: "Country", Width: 80, MaxChars: 12},
	{Header: "Antigen", PDFHeader: "Antigen", Width: 80, MaxChars: 12},
	{Header: "Coverage (%)", PDFHeader: "Coverage%", Width: 60},
	{Header: "Target Population", PDFHeader: "Target Pop", Width: 70},
	{Header: "Doses Administered", PDFHeader: "Doses", Width: 60},
}

var infectionColumns = []Column{
	{Header: "Year", PDFHeader: "Year", Width: 40},
	{Header: "Country", PDFHeader: "Country", Width: 80, MaxChars: 12},
	{Header: "Economic Status", PDFHeader: "Economic Status", Width: 100, MaxChars: 15},
	{Header: "Infection Type", PDFHeader: "Infection Type", Width: 100, MaxChars: 15},
	{Header: "Cases", PDFHeader: "Cases", Width: 60},
}

func VaccinationTable(records []database.VaccinationRecord, filters []string) Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.Year),
			r.Country,
			r.Antigen,
			fmt.Sprintf("%.2f", r.Coverage),
			fmt.Sprintf("%.0f", r.TargetNum),
			fmt.Sprintf("%.0f", r.Doses),
		})
	}
	return Table{Title: VaccinationTitle, Filters: filters, Columns: vaccinationColumns, Rows: rows}
}

func InfectionTable(records []database.InfectionRecord, filters []string) Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.Year),
			r.Country,
			r.EconomicStatus,
			r.InfectionType,
			fmt.Sprintf("%.0f", r.Cases),
		})
	}
	return Table{Title: InfectionTitle, Filters: filters, Columns: infectionColumns, Rows: rows}
}

// truncate shortens s to max runes followed by "...".
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
