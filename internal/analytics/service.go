// Package analytics serves the back-office revenue and occupancy
// aggregates with a short-lived Redis cache in front of Postgres.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/amarastays/backend-villa/internal/store"
)

// Querier is the subset of the store the analytics service depends on.
type Querier interface {
	RevenueByDay(ctx context.Context, from, to time.Time) ([]store.RevenueByDayRow, error)
	OccupancyByVilla(ctx context.Context, from, to time.Time) ([]store.OccupancyRow, error)
}

// Service computes aggregates and caches them per window.
type Service struct {
	Q      Querier
	Redis  *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
}

// RevenuePoint is one day of booked revenue.
type RevenuePoint struct {
	Day      string `json:"day"`
	Bookings int64  `json:"bookings"`
	Revenue  int64  `json:"revenue"`
	Nights   int64  `json:"nights"`
}

// RevenueReport is the revenue aggregate for a window.
type RevenueReport struct {
	From   string         `json:"from"`
	To     string         `json:"to"`
	Total  int64          `json:"total"`
	Points []RevenuePoint `json:"points"`
}

// Revenue aggregates non-cancelled booking revenue per day.
func (s *Service) Revenue(ctx context.Context, from, to time.Time) (RevenueReport, error) {
	key := cacheKey("revenue", from, to)
	var cached RevenueReport
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.Q.RevenueByDay(ctx, from, to)
	if err != nil {
		return RevenueReport{}, fmt.Errorf("revenue by day: %w", err)
	}

	report := RevenueReport{
		From:   from.Format("2006-01-02"),
		To:     to.Format("2006-01-02"),
		Points: make([]RevenuePoint, 0, len(rows)),
	}
	for _, row := range rows {
		report.Total += row.Revenue
		report.Points = append(report.Points, RevenuePoint{
			Day:      row.Day.Time.Format("2006-01-02"),
			Bookings: row.Bookings,
			Revenue:  row.Revenue,
			Nights:   row.Nights,
		})
	}
	s.setCached(ctx, key, report)
	return report, nil
}

// OccupancyEntry is the booked-night aggregate for one villa.
type OccupancyEntry struct {
	VillaID   string `json:"villa_id"`
	VillaName string `json:"villa_name"`
	Nights    int64  `json:"nights"`
	Bookings  int64  `json:"bookings"`
}

// OccupancyReport ranks villas by booked nights inside a window.
type OccupancyReport struct {
	From    string           `json:"from"`
	To      string           `json:"to"`
	Entries []OccupancyEntry `json:"entries"`
}

// Occupancy aggregates booked nights per villa.
func (s *Service) Occupancy(ctx context.Context, from, to time.Time) (OccupancyReport, error) {
	key := cacheKey("occupancy", from, to)
	var cached OccupancyReport
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.Q.OccupancyByVilla(ctx, from, to)
	if err != nil {
		return OccupancyReport{}, fmt.Errorf("occupancy by villa: %w", err)
	}

	report := OccupancyReport{
		From:    from.Format("2006-01-02"),
		To:      to.Format("2006-01-02"),
		Entries: make([]OccupancyEntry, 0, len(rows)),
	}
	for _, row := range rows {
		report.Entries = append(report.Entries, OccupancyEntry{
			VillaID:   store.UUIDString(row.VillaID),
			VillaName: row.VillaName,
			Nights:    row.Nights,
			Bookings:  row.Bookings,
		})
	}
	s.setCached(ctx, key, report)
	return report, nil
}

func cacheKey(kind string, from, to time.Time) string {
	return fmt.Sprintf("analytics:%s:%s:%s", kind, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func (s *Service) getCached(ctx context.Context, key string, dest any) bool {
	if s.Redis == nil {
		return false
	}
	raw, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (s *Service) setCached(ctx context.Context, key string, value any) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, raw, s.TTL).Err(); err != nil {
		s.Logger.Debug().Err(err).Str("key", key).Msg("analytics cache write failed")
	}
}
