package enrich

import (
	"time"

	"github.com/hyperjump/ridewise/internal/models"
	"github.com/hyperjump/ridewise/internal/workbook"
	"go.uber.org/zap"
)

// Stats summarizes one enrichment run.
type Stats struct {
	Trips       int `json:"trips"`
	WithCheckIn int `json:"with_checkin"`
	WithAge     int `json:"with_age"`
	WithDate    int `json:"with_date"`
	MissingDate int `json:"missing_date"`
	InvalidDate int `json:"invalid_date"`
}

// Enricher merges a workbook and derives calendar fields from the trip date column.
type Enricher struct {
	dateField string
	loc       *time.Location
	logger    *zap.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithLocation sets the zone used for calendar fields (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(e *Enricher) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLogger sets a logger for unparseable dates.
func WithLogger(l *zap.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEnricher creates an enricher that reads trip dates from dateField.
func NewEnricher(dateField string, opts ...Option) *Enricher {
	e := &Enricher{
		dateField: dateField,
		loc:       time.Local,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich merges wb and adds calendar fields. The result is a fresh slice; a
// trip whose date is missing or unparseable gets nil calendar fields and, for
// unparseable values, a warning log entry.
func (e *Enricher) Enrich(wb *workbook.Workbook) ([]*models.Record, Stats) {
	records := Merge(wb.Trips, wb.CheckIns, wb.Demographics)
	stats := Stats{Trips: len(records)}
	for _, rec := range records {
		if rec.Value(FieldCheckedInUserID) != nil {
			stats.WithCheckIn++
		}
		if rec.Value(FieldAge) != nil {
			stats.WithAge++
		}

		raw, present := rec.Get(e.dateField)
		cal, ok := DeriveTime(raw, e.loc)
		switch {
		case ok:
			cal.Apply(rec)
			stats.WithDate++
		case !present || raw == nil:
			ApplyNull(rec)
			stats.MissingDate++
		default:
			ApplyNull(rec)
			stats.InvalidDate++
			e.logger.Warn("trip date could not be parsed; calendar fields left empty",
				zap.String("field", e.dateField),
				zap.Any("value", raw),
				zap.Any("trip_id", rec.Value(FieldTripID)))
		}
	}
	return records, stats
}
