// Package pricefile turns uploaded price lists (CSV/TSV/TXT in any common
// Cyrillic encoding, or XLSX workbooks) into identifier/price rows.
package pricefile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatText Format = "text"
	FormatXLSX Format = "xlsx"

	DefaultMaxBytes = 10 << 20

	ReasonInvalidRow = "invalid row"
)

var zipMagic = []byte("PK\x03\x04")

var textTypes = map[string]bool{
	"text/csv":                  true,
	"text/plain":                true,
	"text/tab-separated-values": true,
	"application/csv":           true,
}

var spreadsheetTypes = map[string]bool{
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// Row is one data line of a price file. Invalid rows keep their position so
// they can be reported; Problem says what was wrong with them.
type Row struct {
	Line       int
	Identifier string
	Name       string
	Price      decimal.Decimal
	SalePrice  decimal.NullDecimal
	Invalid    bool
	Problem    string
}

type Document struct {
	Format    Format
	Encoding  string
	Delimiter rune
	HasHeader bool
	Rows      []Row
}

// DetectFormat decides how to read a file from its name, falling back to the
// declared content type.
func DetectFormat(fileName, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt", ".tsv":
		return FormatText, nil
	case ".xlsx", ".xls":
		return FormatXLSX, nil
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	switch {
	case textTypes[contentType]:
		return FormatText, nil
	case spreadsheetTypes[contentType]:
		return FormatXLSX, nil
	}

	return "", fmt.Errorf("%w: use a CSV or Excel file", errs.ErrUnsupportedMediaType)
}

// Parse reads every data row. It fails only when the file as a whole cannot
// be read or holds no data rows; bad lines come back as invalid rows.
func Parse(data []byte, format Format) (doc Document, err error) {
	doc.Format = format

	var records [][]string
	switch format {
	case FormatText:
		var text string
		text, doc.Encoding = DecodeText(data)
		doc.Delimiter = DetectDelimiter(text)
		records, err = readDelimited(text, doc.Delimiter)
	case FormatXLSX:
		records, err = readWorkbook(data)
	default:
		err = fmt.Errorf("%w: unknown price file format %q", errs.ErrUnsupportedMediaType, format)
	}
	if err != nil {
		log.Error().Err(err).Str("component", "Parse").Msg("")
		return doc, err
	}

	doc.Rows, doc.HasHeader = buildRows(records, format == FormatXLSX)
	if len(doc.Rows) == 0 {
		return doc, fmt.Errorf("%w: no price rows found, expected columns: identifier, price", errs.ErrMalformedFile)
	}

	return doc, nil
}

// DetectDelimiter picks the most frequent of ';', tab and ',' on the first
// non-empty line. Ties go to that same order.
func DetectDelimiter(text string) rune {
	line := ""
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	best, bestCount := ',', 0
	for _, d := range []rune{';', '\t', ','} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readDelimited(text string, delimiter rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedFile, err)
	}
	return records, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	if !bytes.HasPrefix(data, zipMagic) {
		return nil, fmt.Errorf("%w: only .xlsx workbooks are supported, save legacy .xls files as .xlsx", errs.ErrMalformedFile)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open workbook: %v", errs.ErrMalformedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", errs.ErrMalformedFile)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read sheet %q: %v", errs.ErrMalformedFile, sheets[0], err)
	}
	return rows, nil
}

type columns struct {
	identifier int
	name       int
	price      int
	salePrice  int
}

var headerAliases = map[string]string{
	"sku":             "identifier",
	"id":              "identifier",
	"identifier":      "identifier",
	"article":         "identifier",
	"product_id":      "identifier",
	"артикул":         "identifier",
	"код":             "identifier",
	"name":            "name",
	"product":         "name",
	"название":        "name",
	"наименование":    "name",
	"товар":           "name",
	"price":           "price",
	"base_price":      "price",
	"new_price":       "price",
	"цена":            "price",
	"sale_price":      "sale_price",
	"new_sale_price":  "sale_price",
	"цена со скидкой": "sale_price",
	"акция":           "sale_price",
}

var positional = columns{identifier: 0, name: -1, price: 1, salePrice: 2}

func headerColumns(record []string) (columns, bool) {
	cols := columns{identifier: -1, name: -1, price: -1, salePrice: -1}
	found := false

	for i, raw := range record {
		key := strings.ToLower(strings.TrimSpace(strings.Trim(raw, "\"'")))
		key = strings.TrimSuffix(key, " *")
		switch headerAliases[key] {
		case "identifier":
			if cols.identifier < 0 {
				cols.identifier = i
			}
		case "name":
			if cols.name < 0 {
				cols.name = i
			}
		case "price":
			if cols.price < 0 {
				cols.price = i
			}
		case "sale_price":
			if cols.salePrice < 0 {
				cols.salePrice = i
			}
		default:
			continue
		}
		found = true
	}

	if !found {
		return positional, false
	}
	if cols.identifier < 0 && cols.name < 0 {
		cols.identifier = 0
	}
	if cols.price < 0 {
		cols.price = 1
	}
	return cols, true
}

// buildRows maps records onto rows. With joinNames set, a row that carries
// only a label and no price extends the label of the row above it, the way
// spreadsheets wrap long product names; a blank row ends the chain.
func buildRows(records [][]string, joinNames bool) ([]Row, bool) {
	var (
		rows      []Row
		cols      = positional
		hasHeader bool
		seenFirst bool
		chained   bool
	)

	for i, record := range records {
		if isBlank(record) {
			chained = false
			continue
		}

		if !seenFirst {
			seenFirst = true
			if c, ok := headerColumns(record); ok {
				cols, hasHeader = c, true
				continue
			}
		}

		if joinNames && chained && isContinuation(record, cols) {
			extendLabel(&rows[len(rows)-1], record, cols)
			continue
		}

		row := buildRow(i+1, record, cols)
		rows = append(rows, row)
		chained = !row.Invalid
	}

	return rows, hasHeader
}

func labelColumn(cols columns) int {
	if cols.name >= 0 {
		return cols.name
	}
	return cols.identifier
}

func isContinuation(record []string, cols columns) bool {
	label := labelColumn(cols)
	for i := range record {
		if i != label && cell(record, i) != "" {
			return false
		}
	}
	return cell(record, label) != ""
}

func extendLabel(row *Row, record []string, cols columns) {
	text := cell(record, labelColumn(cols))
	if cols.name >= 0 {
		if row.Identifier == row.Name {
			row.Identifier += " " + text
		}
		row.Name += " " + text
		return
	}
	row.Identifier += " " + text
}

func buildRow(line int, record []string, cols columns) Row {
	row := Row{
		Line:       line,
		Identifier: cell(record, cols.identifier),
		Name:       cell(record, cols.name),
	}
	if row.Identifier == "" {
		row.Identifier = row.Name
	}

	if row.Identifier == "" {
		return invalid(row, "identifier is missing")
	}

	price, err := ParsePrice(cell(record, cols.price))
	if err != nil {
		return invalid(row, err.Error())
	}
	row.Price = price

	if raw := cell(record, cols.salePrice); raw != "" {
		sale, err := ParsePrice(raw)
		if err != nil && !errors.Is(err, ErrEmptyPrice) {
			return invalid(row, "sale "+err.Error())
		}
		if err == nil {
			row.SalePrice = decimal.NewNullDecimal(sale)
		}
	}

	return row
}

func invalid(row Row, problem string) Row {
	row.Invalid = true
	row.Problem = problem
	return row
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(record[i]), "\"'"))
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
