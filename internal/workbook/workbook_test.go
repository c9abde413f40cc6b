package workbook

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/hyperjump/ridewise/test/fixtures"
	"github.com/xuri/excelize/v2"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Trip ID", "Trip_ID"},
		{" Trip  ID ", "Trip_ID"},
		{"Trip\tID", "Trip_ID"},
		{"Trip_ID", "Trip_ID"},
		{"User ID", "User_ID"},
		{"Age", "Age"},
		{"  Trip Date and Time", "Trip_Date_and_Time"},
		{"", ""},
	}
	for _, tt := range tests {
		got := NormalizeKey(tt.in)
		if got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := NormalizeKey(got); again != got {
			t.Errorf("NormalizeKey not idempotent: %q -> %q", got, again)
		}
	}
}

func TestFindSheet(t *testing.T) {
	sheets := []string{"TRIP DATA", "checked in user id's", "Other"}
	if got, ok := FindSheet(sheets, "Trip Data"); !ok || got != "TRIP DATA" {
		t.Errorf("FindSheet(Trip Data) = %q, %v", got, ok)
	}
	if got, ok := FindSheet(sheets, "Checked in User ID's"); !ok || got != "checked in user id's" {
		t.Errorf("FindSheet(checkins) = %q, %v", got, ok)
	}
	if _, ok := FindSheet(sheets, "Customer Demographics"); ok {
		t.Error("expected demographics sheet to be missing")
	}
}

func TestHeaderKeys(t *testing.T) {
	got := headerKeys([]string{"Trip ID", " Trip  ID ", "", "Age", "", "Age"})
	want := []string{"Trip_ID", "Trip_ID", "__EMPTY", "Age", "__EMPTY_1", "Age_1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("headerKeys = %v, want %v", got, want)
	}
}

func TestParser_Parse(t *testing.T) {
	data, err := fixtures.Workbook(
		fixtures.TripSheet(
			fixtures.Trip("T1", 44927, 2, "Airport", "Downtown"),
			fixtures.Trip("T2", "2023-02-03 18:15", 1, "Campus", "Stadium"),
		),
		fixtures.CheckInSheet([]interface{}{"T1", "U1"}),
		fixtures.DemographicsSheet([]interface{}{"U1", 30}),
	)
	if err != nil {
		t.Fatal(err)
	}
	wb, err := NewParser(DefaultSheetNames(), nil).Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(wb.Trips) != 2 || len(wb.CheckIns) != 1 || len(wb.Demographics) != 1 {
		t.Fatalf("rows: trips=%d checkins=%d demographics=%d", len(wb.Trips), len(wb.CheckIns), len(wb.Demographics))
	}
	if len(wb.Missing) != 0 {
		t.Errorf("unexpected missing sheets: %v", wb.Missing)
	}

	trip := wb.Trips[0]
	if v := trip.Value("Trip_ID"); v != "T1" {
		t.Errorf("Trip_ID = %#v, want \"T1\"", v)
	}
	if v := trip.Value("Trip_Date_and_Time"); v != 44927.0 {
		t.Errorf("date serial = %#v, want 44927", v)
	}
	if v := trip.Value("Total_Passengers"); v != 2.0 {
		t.Errorf("Total_Passengers = %#v, want 2", v)
	}
	if keys := trip.Keys(); keys[0] != "Trip_ID" || keys[len(keys)-1] != "Total_Passengers" {
		t.Errorf("key order = %v", keys)
	}
	if v := wb.Trips[1].Value("Trip_Date_and_Time"); v != "2023-02-03 18:15" {
		t.Errorf("string date = %#v", v)
	}
	if v := wb.Demographics[0].Value("Age"); v != 30.0 {
		t.Errorf("Age = %#v, want 30", v)
	}
}

func TestParser_CaseInsensitiveAndMissingSheets(t *testing.T) {
	trips := fixtures.TripSheet(fixtures.Trip("T1", 44927, 1, "A", "B"))
	trips.Name = "TRIP DATA"
	checkins := fixtures.CheckInSheet([]interface{}{"T1", "U1"})
	checkins.Name = "checked IN user id's"

	data, err := fixtures.Workbook(trips, checkins)
	if err != nil {
		t.Fatal(err)
	}
	wb, err := NewParser(DefaultSheetNames(), nil).Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(wb.Trips) != 1 || len(wb.CheckIns) != 1 {
		t.Errorf("case-insensitive lookup failed: trips=%d checkins=%d", len(wb.Trips), len(wb.CheckIns))
	}
	if wb.Demographics != nil {
		t.Errorf("demographics should be empty, got %d rows", len(wb.Demographics))
	}
	if len(wb.Missing) != 1 || wb.Missing[0] != "Customer Demographics" {
		t.Errorf("Missing = %v", wb.Missing)
	}
}

func TestParser_SkipsBlankRowsAndCells(t *testing.T) {
	data, err := fixtures.Workbook(fixtures.Sheet{
		Name: "Trip Data",
		Rows: [][]interface{}{
			{},
			{" Trip  ID ", "Notes", "Shared"},
			{"T1", nil, true},
			{},
			{"T2", "late", false},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	wb, err := NewParser(DefaultSheetNames(), nil).Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(wb.Trips) != 2 {
		t.Fatalf("expected 2 trips, got %d", len(wb.Trips))
	}
	first := wb.Trips[0]
	if _, ok := first.Get("Notes"); ok {
		t.Error("empty cell should be absent from the record")
	}
	if v := first.Value("Trip_ID"); v != "T1" {
		t.Errorf("normalized header lookup failed: %#v", v)
	}
	if v := first.Value("Shared"); v != true {
		t.Errorf("bool cell = %#v, want true", v)
	}
	if v := wb.Trips[1].Value("Shared"); v != false {
		t.Errorf("bool cell = %#v, want false", v)
	}
}

func TestParser_InvalidWorkbook(t *testing.T) {
	_, err := NewParser(DefaultSheetNames(), nil).Parse(strings.NewReader("not a spreadsheet"))
	if err == nil {
		t.Error("expected error for invalid workbook")
	}
}

func TestCellValue_NonFiniteStaysText(t *testing.T) {
	tests := []struct {
		raw  string
		want interface{}
	}{
		{"30.5", 30.5},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{"-infinity", "-infinity"},
		{"1e400", "1e400"},
	}
	for _, tt := range tests {
		if got := cellValue(excelize.CellTypeNumber, tt.raw); got != tt.want {
			t.Errorf("cellValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
		}
	}
}

func TestParser_NaNCellKeepsRecordEncodable(t *testing.T) {
	row := fixtures.Trip("T1", 44927, 2, "Airport", "Downtown")
	row[2] = math.NaN()
	data, err := fixtures.Workbook(fixtures.TripSheet(row))
	if err != nil {
		t.Fatal(err)
	}
	wb, err := NewParser(DefaultSheetNames(), nil).Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(wb.Trips) != 1 {
		t.Fatalf("expected 1 trip, got %d", len(wb.Trips))
	}
	if f, ok := wb.Trips[0].Value("Pick_Up_Latitude").(float64); ok && math.IsNaN(f) {
		t.Fatal("NaN cell parsed as a float")
	}
	if _, err := json.Marshal(wb.Trips[0]); err != nil {
		t.Errorf("record with NaN cell should encode: %v", err)
	}
}
