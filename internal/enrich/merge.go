// Package enrich joins trips with check-ins and demographics and derives calendar fields.
package enrich

import "github.com/hyperjump/ridewise/internal/models"

// Column names used by the join and the fields the enrichment adds.
const (
	FieldTripID          = "Trip_ID"
	FieldUserID          = "User_ID"
	FieldAge             = "Age"
	FieldCheckedInUserID = "checkedInUserID"
)

// Merge returns one enriched record per trip, in trip order. Each trip gets the
// User_ID of the first check-in row with the same Trip_ID, and the Age of the
// first demographic row whose User_ID equals that check-in user. Unmatched
// lookups yield nil. Inputs are not modified.
func Merge(trips, checkins, demographics []*models.Record) []*models.Record {
	out := make([]*models.Record, len(trips))
	for i, trip := range trips {
		rec := trip.Clone()

		checkin := findFirst(checkins, FieldTripID, trip.Value(FieldTripID))
		userID := checkin.Value(FieldUserID)
		rec.Set(FieldCheckedInUserID, userID)

		demo := findFirst(demographics, FieldUserID, userID)
		rec.Set(FieldAge, demo.Value(FieldAge))

		out[i] = rec
	}
	return out
}

// findFirst returns the first row whose key equals want. A nil want never matches.
func findFirst(rows []*models.Record, key string, want interface{}) *models.Record {
	if want == nil {
		return nil
	}
	for _, row := range rows {
		if v, ok := row.Get(key); ok && v == want {
			return row
		}
	}
	return nil
}
