package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"library-desk/library"
)

// catalogColumns is the expected header of an import sheet. Publisher and
// the columns after it may be left empty.
var catalogColumns = []string{
	"isbn", "title", "author", "publisher", "year", "category", "shelf", "price", "copies",
}

// CatalogRow is one parsed line of an import sheet.
type CatalogRow struct {
	Line   int
	Book   library.NewBook
	Copies int
}

// ReadCatalog parses the first sheet of the workbook in r. Malformed lines are
// reported in the error slice and skipped; the rest are returned.
func ReadCatalog(r io.Reader) ([]CatalogRow, []error, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range catalogColumns[:3] {
		if _, ok := index[required]; !ok {
			return nil, nil, fmt.Errorf("sheet %s has no %q column", sheet, required)
		}
	}

	var (
		out  []CatalogRow
		errs []error
	)
	for i, row := range rows[1:] {
		line := i + 2
		cell := func(name string) string {
			col, ok := index[name]
			if !ok || col >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[col])
		}
		if cell("isbn") == "" && cell("title") == "" {
			continue
		}

		parsed, err := parseCatalogRow(line, cell)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, parsed)
	}
	return out, errs, nil
}

func parseCatalogRow(line int, cell func(string) string) (CatalogRow, error) {
	row := CatalogRow{
		Line: line,
		Book: library.NewBook{
			ISBN:          cell("isbn"),
			Title:         cell("title"),
			Author:        cell("author"),
			Publisher:     cell("publisher"),
			Category:      cell("category"),
			ShelfLocation: cell("shelf"),
			Price:         decimal.Zero,
		},
		Copies: 1,
	}
	if v := cell("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return row, fmt.Errorf("line %d: year %q: %w", line, v, err)
		}
		row.Book.PublicationYear = year
	}
	if v := cell("price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return row, fmt.Errorf("line %d: price %q: %w", line, v, err)
		}
		row.Book.Price = price
	}
	if v := cell("copies"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return row, fmt.Errorf("line %d: copies %q must be a positive number", line, v)
		}
		row.Copies = n
	}
	return row, nil
}
