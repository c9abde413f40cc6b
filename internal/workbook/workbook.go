// Package workbook reads the trip, check-in and demographic sheets of an xlsx
// workbook into normalized rows.
package workbook

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/ridewise/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// SheetNames are the configured names of the three logical sheets.
type SheetNames struct {
	Trips        string
	CheckIns     string
	Demographics string
}

// DefaultSheetNames returns the sheet names used by the standard export.
func DefaultSheetNames() SheetNames {
	return SheetNames{
		Trips:        "Trip Data",
		CheckIns:     "Checked in User ID's",
		Demographics: "Customer Demographics",
	}
}

// Workbook holds the rows of the three logical sheets. A sheet that was not
// found has no rows and is listed in Missing.
type Workbook struct {
	Trips        []*models.Record
	CheckIns     []*models.Record
	Demographics []*models.Record
	Missing      []string
}

// Parser reads workbooks.
type Parser struct {
	names  SheetNames
	logger *zap.Logger
}

// NewParser returns a parser that looks up sheets by names. logger may be nil.
func NewParser(names SheetNames, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{names: names, logger: logger}
}

// Parse reads an xlsx workbook from r.
func (p *Parser) Parse(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	wb := &Workbook{}
	targets := []struct {
		name string
		rows *[]*models.Record
	}{
		{p.names.Trips, &wb.Trips},
		{p.names.CheckIns, &wb.CheckIns},
		{p.names.Demographics, &wb.Demographics},
	}
	for _, target := range targets {
		sheet, ok := FindSheet(sheets, target.name)
		if !ok {
			p.logger.Warn("workbook sheet not found; its rows are treated as empty",
				zap.String("sheet", target.name),
				zap.Strings("available", sheets))
			wb.Missing = append(wb.Missing, target.name)
			continue
		}
		rows, err := ReadSheet(f, sheet)
		if err != nil {
			return nil, err
		}
		*target.rows = rows
	}
	return wb, nil
}

// FindSheet returns the sheet in sheets whose name equals name ignoring case.
func FindSheet(sheets []string, name string) (string, bool) {
	for _, s := range sheets {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}

// NormalizeKey trims a column name and replaces each internal whitespace run with "_".
func NormalizeKey(key string) string {
	return strings.Join(strings.Fields(key), "_")
}

// ReadSheet converts a sheet into records keyed by normalized header names.
// The first non-empty row is the header. Rows with no values are skipped and
// empty cells are left out of the record.
func ReadSheet(f *excelize.File, sheet string) ([]*models.Record, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	headerRow := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerRow = i
			break
		}
	}
	if headerRow < 0 {
		return nil, nil
	}
	keys := headerKeys(rows[headerRow])

	records := make([]*models.Record, 0, len(rows)-headerRow-1)
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		rec := models.NewRecord(len(keys))
		for col, raw := range row {
			if col >= len(keys) || raw == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+1)
			if err != nil {
				return nil, fmt.Errorf("sheet %q: %w", sheet, err)
			}
			cellType, err := f.GetCellType(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("sheet %q cell %s: %w", sheet, cell, err)
			}
			rec.Set(keys[col], cellValue(cellType, raw))
		}
		if rec.Len() > 0 {
			records = append(records, rec)
		}
	}
	return records, nil
}

// headerKeys names every header column: blanks become __EMPTY, repeats get a
// _1, _2 suffix, then each name is normalized.
func headerKeys(header []string) []string {
	seen := make(map[string]int, len(header))
	keys := make([]string, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = "__EMPTY"
		}
		n := seen[name]
		seen[name] = n + 1
		if n > 0 {
			name = name + "_" + strconv.Itoa(n)
		}
		keys[i] = NormalizeKey(name)
	}
	return keys
}

func cellValue(cellType excelize.CellType, raw string) interface{} {
	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return raw
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	}
	// NaN and Inf stay text so every record remains JSON encodable.
	if n, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return n
	}
	return raw
}

func blankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
