package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cleared-dev/envelope/internal/money"
)

// SimpleParser reads CSV files with a header naming date, payee, memo and
// amount columns in any order. Dates are YYYY-MM-DD; memo is optional.
type SimpleParser struct{}

// Format returns the parser name.
func (p *SimpleParser) Format() string { return "simple" }

// Parse reads the CSV and returns its rows.
func (p *SimpleParser) Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := map[string]int{"memo": -1}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "payee", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		date, err := time.Parse(time.DateOnly, rec[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", line, rec[cols["date"]], err)
		}
		amount, err := money.Parse(rec[cols["amount"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		row := Row{Date: date, Payee: rec[cols["payee"]], Amount: amount}
		if i := cols["memo"]; i >= 0 {
			row.Memo = rec[i]
		}
		rows = append(rows, row)
	}
}
