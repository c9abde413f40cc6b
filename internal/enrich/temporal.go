package enrich

import (
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hyperjump/ridewise/internal/models"
)

// Derived calendar fields. They are either all set or all nil on a record.
const (
	FieldTripDateISO   = "TripDateISO"
	FieldTripEpoch     = "TripEpoch"
	FieldTripYear      = "TripYear"
	FieldTripMonth     = "TripMonth"
	FieldTripDay       = "TripDay"
	FieldTripDayOfWeek = "TripDayOfWeek"
	FieldTripHour      = "TripHour"
)

// TimeFields lists the derived calendar fields in the order they are added.
var TimeFields = []string{
	FieldTripDateISO, FieldTripEpoch, FieldTripYear, FieldTripMonth,
	FieldTripDay, FieldTripDayOfWeek, FieldTripHour,
}

const (
	// serialUnixEpoch is the spreadsheet serial of 1970-01-01 (serial 0 is 1899-12-30).
	serialUnixEpoch = 25569
	msPerDay        = 86400000
	// maxEpochMs is the largest magnitude a calendar instant may have.
	maxEpochMs = 8.64e15

	isoLayout = "2006-01-02T15:04:05.000Z"
)

// Calendar is the set of fields derived from one trip timestamp.
type Calendar struct {
	ISO       string
	Epoch     int64
	Year      int
	Month     int
	Day       int
	DayOfWeek int
	Hour      int
}

// DeriveTime resolves raw into a calendar instant. Numbers are spreadsheet
// serial days; strings are parsed as free-form dates, reading zone-less values
// in loc. Calendar parts are computed in loc, ISO is UTC. ok is false when raw
// is nil or cannot be resolved.
func DeriveTime(raw interface{}, loc *time.Location) (cal Calendar, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	var instant time.Time
	switch v := raw.(type) {
	case nil:
		return Calendar{}, false
	case float64:
		if instant, ok = fromSerial(v); !ok {
			return Calendar{}, false
		}
	case int:
		instant, ok = fromSerial(float64(v))
	case int64:
		instant, ok = fromSerial(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return Calendar{}, false
		}
		t, err := dateparse.ParseIn(s, loc)
		if err != nil {
			return Calendar{}, false
		}
		instant, ok = t, true
	default:
		return Calendar{}, false
	}
	if !ok {
		return Calendar{}, false
	}

	local := instant.In(loc)
	return Calendar{
		ISO:       instant.UTC().Format(isoLayout),
		Epoch:     instant.UnixMilli(),
		Year:      local.Year(),
		Month:     int(local.Month()),
		Day:       local.Day(),
		DayOfWeek: int(local.Weekday()),
		Hour:      local.Hour(),
	}, true
}

func fromSerial(serial float64) (time.Time, bool) {
	ms := (serial - serialUnixEpoch) * msPerDay
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMs {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

// Apply writes the calendar fields onto rec.
func (c Calendar) Apply(rec *models.Record) {
	rec.Set(FieldTripDateISO, c.ISO)
	rec.Set(FieldTripEpoch, c.Epoch)
	rec.Set(FieldTripYear, c.Year)
	rec.Set(FieldTripMonth, c.Month)
	rec.Set(FieldTripDay, c.Day)
	rec.Set(FieldTripDayOfWeek, c.DayOfWeek)
	rec.Set(FieldTripHour, c.Hour)
}

// ApplyNull sets every calendar field on rec to nil.
func ApplyNull(rec *models.Record) {
	for _, f := range TimeFields {
		rec.Set(f, nil)
	}
}
