package export

import (
	"encoding/csv"
	"io"
	"strconv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the title, filter line, column headers, one row per record and a record count.
// The BOM makes spreadsheet applications detect UTF-8.
func WriteCSV(w io.Writer, t Table, withBOM bool) error {
	if withBOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(w)
	records := make([][]string, 0, len(t.Rows)+6)
	records = append(records,
		[]string{t.Title},
		[]string{t.FilterLine()},
		[]string{""},
		t.Headers(),
	)
	records = append(records, t.Rows...)
	records = append(records,
		[]string{""},
		[]string{"Total Records:", strconv.Itoa(len(t.Rows))},
	)
	// WriteAll flushes.
	return cw.WriteAll(records)
}
