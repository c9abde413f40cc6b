// Package fixtures builds in-memory xlsx workbooks for tests.
package fixtures

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet: Rows[0] is the header row.
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// Workbook renders sheets into xlsx bytes. Sheets are created in order.
func Workbook(sheets ...Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return nil, fmt.Errorf("new sheet %q: %w", s.Name, err)
		}
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			values := row
			if err := f.SetSheetRow(s.Name, cell, &values); err != nil {
				return nil, fmt.Errorf("sheet %q row %d: %w", s.Name, r+1, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Reader is Workbook wrapped in a reader.
func Reader(sheets ...Sheet) (*bytes.Reader, error) {
	data, err := Workbook(sheets...)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// TripSheet returns a "Trip Data" sheet with the standard export headers.
func TripSheet(rows ...[]interface{}) Sheet {
	header := []interface{}{"Trip ID", "Booking User ID", "Pick Up Latitude", "Pick Up Longitude",
		"Drop Off Latitude", "Drop Off Longitude", "Pick Up Address", "Drop Off Address",
		"Trip Date and Time", "Total Passengers"}
	return Sheet{Name: "Trip Data", Rows: append([][]interface{}{header}, rows...)}
}

// CheckInSheet returns a "Checked in User ID's" sheet.
func CheckInSheet(rows ...[]interface{}) Sheet {
	header := []interface{}{"Trip ID", "User ID"}
	return Sheet{Name: "Checked in User ID's", Rows: append([][]interface{}{header}, rows...)}
}

// DemographicsSheet returns a "Customer Demographics" sheet.
func DemographicsSheet(rows ...[]interface{}) Sheet {
	header := []interface{}{"User ID", "Age"}
	return Sheet{Name: "Customer Demographics", Rows: append([][]interface{}{header}, rows...)}
}

// Trip is a shorthand row for TripSheet.
func Trip(id string, date interface{}, passengers int, pickup, dropoff string) []interface{} {
	return []interface{}{id, 1000, 30.2672, -97.7431, 30.2849, -97.7341, pickup, dropoff, date, passengers}
}
