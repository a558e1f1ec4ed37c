package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// Column aliases per RawTransaction field. Header matching is case-insensitive.
var columnAliases = map[string][]string{
	"original_customer_id": {"original_customer_id", "customer_id", "customer id", "customer_code", "account"},
	"customer_name":        {"customer_name", "customer name", "customer", "name"},
	"entity_key":           {"entity_key", "sku", "item_code", "item code", "product_code"},
	"category":             {"category", "product_category", "item_group"},
	"invoice_id":           {"invoice_id", "invoice", "invoice no", "invoice_number", "document"},
	"order_date":           {"order_date", "date", "invoice_date", "invoice date"},
	"quantity":             {"quantity", "qty"},
	"unit_price":           {"unit_price", "price", "unit price"},
	"region":               {"region", "branch", "warehouse"},
}

var requiredColumns = []string{"entity_key", "order_date", "quantity", "unit_price"}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"02/01/2006",
	"01-02-06",
}

// ReadXLSX reads transactions from the first sheet (or sheet, if set) of an xlsx file.
// Rows that fail to parse come back as MalformedRecordError, not as a fatal error.
func ReadXLSX(path, sheet string) ([]contracts.RawTransaction, []error, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	return parseRows(rows[0], rows[1:])
}

// ReadCSV reads transactions from a CSV stream with a header row
func ReadCSV(r io.Reader) ([]contracts.RawTransaction, []error, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}

	return parseRows(header, records)
}

// parseRows maps header names to fields, then parses each row
func parseRows(header []string, rows [][]string) ([]contracts.RawTransaction, []error, error) {
	index, err := resolveColumns(header)
	if err != nil {
		return nil, nil, err
	}

	txns := make([]contracts.RawTransaction, 0, len(rows))
	var bad []error

	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		// 데이터 행 번호는 헤더 다음부터 (1-based, 스프레드시트 기준 +1)
		t, err := parseRow(i+2, row, index)
		if err != nil {
			bad = append(bad, err)
			continue
		}
		txns = append(txns, t)
	}

	return txns, bad, nil
}

func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for col, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for field, aliases := range columnAliases {
			if _, done := index[field]; done {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					index[field] = col
					break
				}
			}
		}
	}

	var missing []string
	for _, field := range requiredColumns {
		if _, ok := index[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func parseRow(rowNum int, row []string, index map[string]int) (contracts.RawTransaction, error) {
	cell := func(field string) string {
		col, ok := index[field]
		if !ok || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	t := contracts.RawTransaction{
		OriginalCustomerID: cell("original_customer_id"),
		CustomerName:       cell("customer_name"),
		EntityKey:          cell("entity_key"),
		Category:           cell("category"),
		InvoiceID:          cell("invoice_id"),
		Region:             strings.ToUpper(cell("region")),
	}

	date, err := parseDate(cell("order_date"))
	if err != nil {
		return t, &contracts.MalformedRecordError{Row: rowNum, Field: "order_date", Reason: err.Error()}
	}
	t.OrderDate = date

	if t.Quantity, err = parseNumber(cell("quantity")); err != nil {
		return t, &contracts.MalformedRecordError{Row: rowNum, Field: "quantity", Reason: err.Error()}
	}
	if t.UnitPrice, err = parseNumber(cell("unit_price")); err != nil {
		return t, &contracts.MalformedRecordError{Row: rowNum, Field: "unit_price", Reason: err.Error()}
	}

	return t, nil
}

// parseDate accepts ISO-like strings and Excel serial day numbers
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseNumber tolerates thousands separators ("1,250.50")
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number %q", s)
	}
	return v, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
