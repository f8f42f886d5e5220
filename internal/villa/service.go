// Package villa implements the public catalogue and the back-office CMS
// for rental properties.
package villa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/pricing"
	"github.com/amarastays/backend-villa/internal/store"
)

// Querier is the subset of the store the villa service depends on.
type Querier interface {
	CreateVilla(ctx context.Context, arg store.CreateVillaParams) (store.Villa, error)
	UpdateVilla(ctx context.Context, arg store.UpdateVillaParams) (store.Villa, error)
	GetVillaBySlug(ctx context.Context, slug string) (store.Villa, error)
	GetVillaByID(ctx context.Context, id pgtype.UUID) (store.Villa, error)
	ListVillas(ctx context.Context, arg store.ListVillasParams) ([]store.Villa, error)
	CountVillas(ctx context.Context, arg store.ListVillasParams) (int64, error)
	ListVillaBookedRanges(ctx context.Context, villaID pgtype.UUID, from, to time.Time) ([]store.Booking, error)
}

// Service serves catalogue reads and CMS writes.
type Service struct {
	Q      Querier
	Cache  *Cache
	Logger zerolog.Logger
	Now    func() time.Time
}

func NewService(q Querier, cache *Cache, logger zerolog.Logger) *Service {
	return &Service{Q: q, Cache: cache, Logger: logger, Now: time.Now}
}

// ListParams are the parsed catalogue filters.
type ListParams struct {
	Query    string
	Bedrooms *int32
	HasPool  *bool
	MinRate  *int64
	MaxRate  *int64
	Sort     string
	Page     int
	PerPage  int
}

// ParseListParams reads catalogue filters from the query string.
func ParseListParams(r *http.Request) ListParams {
	q := r.URL.Query()
	p := ListParams{
		Query: strings.TrimSpace(q.Get("q")),
		Sort:  q.Get("sort"),
	}
	p.Page, p.PerPage = common.ParsePagination(r, 20)
	if v, err := strconv.ParseInt(q.Get("bedrooms"), 10, 32); err == nil && v > 0 {
		b := int32(v)
		p.Bedrooms = &b
	}
	if raw := q.Get("pool"); raw != "" {
		b := raw == "true" || raw == "1"
		p.HasPool = &b
	}
	if v, err := strconv.ParseInt(q.Get("minRate"), 10, 64); err == nil && v >= 0 {
		p.MinRate = &v
	}
	if v, err := strconv.ParseInt(q.Get("maxRate"), 10, 64); err == nil && v > 0 {
		p.MaxRate = &v
	}
	return p
}

func (p ListParams) fingerprint() string {
	values := url.Values{}
	values.Set("q", p.Query)
	values.Set("sort", p.Sort)
	values.Set("page", strconv.Itoa(p.Page))
	values.Set("per_page", strconv.Itoa(p.PerPage))
	if p.Bedrooms != nil {
		values.Set("bedrooms", strconv.FormatInt(int64(*p.Bedrooms), 10))
	}
	if p.HasPool != nil {
		values.Set("pool", strconv.FormatBool(*p.HasPool))
	}
	if p.MinRate != nil {
		values.Set("min", strconv.FormatInt(*p.MinRate, 10))
	}
	if p.MaxRate != nil {
		values.Set("max", strconv.FormatInt(*p.MaxRate, 10))
	}
	return values.Encode()
}

// Summary is the catalogue list entry.
type Summary struct {
	ID        string   `json:"id"`
	Slug      string   `json:"slug"`
	Name      string   `json:"name"`
	BaseRate  int64    `json:"base_rate"`
	RateToday int64    `json:"rate_today"`
	Bedrooms  int32    `json:"bedrooms"`
	Bathrooms int32    `json:"bathrooms"`
	HasPool   bool     `json:"has_pool"`
	Images    []string `json:"images"`
}

// ListResult is one catalogue page plus its total.
type ListResult struct {
	Villas  []Summary `json:"villas"`
	Total   int64     `json:"total"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
}

// List returns one catalogue page, served from cache when possible.
func (s *Service) List(ctx context.Context, p ListParams) (ListResult, error) {
	key := listKey(p.fingerprint())
	var cached ListResult
	if s.Cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	arg := store.ListVillasParams{
		Query:    p.Query,
		Bedrooms: p.Bedrooms,
		HasPool:  p.HasPool,
		MinRate:  p.MinRate,
		MaxRate:  p.MaxRate,
		Sort:     p.Sort,
		Limit:    int32(p.PerPage),
		Offset:   int32((p.Page - 1) * p.PerPage),
	}
	rows, err := s.Q.ListVillas(ctx, arg)
	if err != nil {
		return ListResult{}, fmt.Errorf("list villas: %w", err)
	}
	total, err := s.Q.CountVillas(ctx, arg)
	if err != nil {
		return ListResult{}, fmt.Errorf("count villas: %w", err)
	}

	today := s.Now()
	result := ListResult{Villas: make([]Summary, 0, len(rows)), Total: total, Page: p.Page, PerPage: p.PerPage}
	for _, row := range rows {
		result.Villas = append(result.Villas, Summary{
			ID:        store.UUIDString(row.ID),
			Slug:      row.Slug,
			Name:      row.Name,
			BaseRate:  row.BaseRate,
			RateToday: pricing.SeasonalRate(row.BaseRate, today),
			Bedrooms:  row.Bedrooms,
			Bathrooms: row.Bathrooms,
			HasPool:   row.HasPool,
			Images:    row.Images,
		})
	}
	s.Cache.SetJSON(ctx, key, result)
	return result, nil
}

// Detail is the full public villa representation.
type Detail struct {
	Summary
	Description string         `json:"description"`
	Available   bool           `json:"available"`
	I18n        map[string]any `json:"i18n,omitempty"`
}

// GetBySlug returns the public detail view for one villa.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Detail, error) {
	key := villaKey(slug)
	var cached Detail
	if s.Cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	row, err := s.Q.GetVillaBySlug(ctx, slug)
	if err != nil {
		return Detail{}, err
	}
	detail := toDetail(row, s.Now())
	s.Cache.SetJSON(ctx, key, detail)
	return detail, nil
}

// BookedRange is one unavailable window in the availability calendar.
type BookedRange struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

// Availability lists booked ranges for a villa inside [from, to).
func (s *Service) Availability(ctx context.Context, slug string, from, to time.Time) ([]BookedRange, error) {
	row, err := s.Q.GetVillaBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	bookings, err := s.Q.ListVillaBookedRanges(ctx, row.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list booked ranges: %w", err)
	}
	out := make([]BookedRange, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookedRange{
			CheckIn:  b.CheckIn.Time.Format("2006-01-02"),
			CheckOut: b.CheckOut.Time.Format("2006-01-02"),
		})
	}
	return out, nil
}

func toDetail(row store.Villa, today time.Time) Detail {
	return Detail{
		Summary: Summary{
			ID:        store.UUIDString(row.ID),
			Slug:      row.Slug,
			Name:      row.Name,
			BaseRate:  row.BaseRate,
			RateToday: pricing.SeasonalRate(row.BaseRate, today),
			Bedrooms:  row.Bedrooms,
			Bathrooms: row.Bathrooms,
			HasPool:   row.HasPool,
			Images:    row.Images,
		},
		Description: row.Description,
		Available:   row.Available,
		I18n:        decodeI18n(row.I18n),
	}
}

func decodeI18n(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
