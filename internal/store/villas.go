package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Villa mirrors a row of the villas table.
type Villa struct {
	ID          pgtype.UUID
	Slug        string
	Name        string
	Description string
	BaseRate    int64
	Bedrooms    int32
	Bathrooms   int32
	HasPool     bool
	Available   bool
	Images      []string
	I18n        []byte
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

const villaColumns = `id, slug, name, description, base_rate, bedrooms, bathrooms, has_pool, available, images, i18n, created_at, updated_at`

func scanVilla(row pgx.Row) (Villa, error) {
	var v Villa
	err := row.Scan(&v.ID, &v.Slug, &v.Name, &v.Description, &v.BaseRate, &v.Bedrooms, &v.Bathrooms,
		&v.HasPool, &v.Available, &v.Images, &v.I18n, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Villa{}, ErrNotFound
	}
	return v, err
}

// CreateVillaParams holds the insertable villa fields.
type CreateVillaParams struct {
	Slug        string
	Name        string
	Description string
	BaseRate    int64
	Bedrooms    int32
	Bathrooms   int32
	HasPool     bool
	Available   bool
	Images      []string
	I18n        map[string]any
}

// CreateVilla inserts a villa and returns the stored row.
func (s *Store) CreateVilla(ctx context.Context, arg CreateVillaParams) (Villa, error) {
	i18n, err := encodeI18n(arg.I18n)
	if err != nil {
		return Villa{}, err
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO villas (slug, name, description, base_rate, bedrooms, bathrooms, has_pool, available, images, i18n)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+villaColumns,
		arg.Slug, arg.Name, arg.Description, arg.BaseRate, arg.Bedrooms, arg.Bathrooms,
		arg.HasPool, arg.Available, arg.Images, i18n)
	return scanVilla(row)
}

// UpdateVillaParams holds the updatable villa fields.
type UpdateVillaParams struct {
	ID          pgtype.UUID
	Name        string
	Description string
	BaseRate    int64
	Bedrooms    int32
	Bathrooms   int32
	HasPool     bool
	Available   bool
	Images      []string
	I18n        map[string]any
}

// UpdateVilla replaces the editable fields of a villa.
func (s *Store) UpdateVilla(ctx context.Context, arg UpdateVillaParams) (Villa, error) {
	i18n, err := encodeI18n(arg.I18n)
	if err != nil {
		return Villa{}, err
	}
	row := s.Pool.QueryRow(ctx, `
		UPDATE villas
		SET name = $2, description = $3, base_rate = $4, bedrooms = $5, bathrooms = $6,
		    has_pool = $7, available = $8, images = $9, i18n = $10, updated_at = now()
		WHERE id = $1
		RETURNING `+villaColumns,
		arg.ID, arg.Name, arg.Description, arg.BaseRate, arg.Bedrooms, arg.Bathrooms,
		arg.HasPool, arg.Available, arg.Images, i18n)
	return scanVilla(row)
}

// GetVillaBySlug returns a villa by its public slug.
func (s *Store) GetVillaBySlug(ctx context.Context, slug string) (Villa, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+villaColumns+` FROM villas WHERE slug = $1`, slug)
	return scanVilla(row)
}

// GetVillaByID returns a villa by primary key.
func (s *Store) GetVillaByID(ctx context.Context, id pgtype.UUID) (Villa, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+villaColumns+` FROM villas WHERE id = $1`, id)
	return scanVilla(row)
}

// ListVillasParams captures catalogue filters.
type ListVillasParams struct {
	Query    string
	Bedrooms *int32
	HasPool  *bool
	MinRate  *int64
	MaxRate  *int64
	Sort     string
	Limit    int32
	Offset   int32
}

// ListVillas returns available villas matching the filters.
func (s *Store) ListVillas(ctx context.Context, arg ListVillasParams) ([]Villa, error) {
	where, args := villaFilters(arg)
	order := villaOrder(arg.Sort)
	args = append(args, arg.Limit, arg.Offset)
	query := fmt.Sprintf(`SELECT %s FROM villas %s %s LIMIT $%d OFFSET $%d`,
		villaColumns, where, order, len(args)-1, len(args))
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Villa
	for rows.Next() {
		v, err := scanVilla(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountVillas counts villas matching the filters.
func (s *Store) CountVillas(ctx context.Context, arg ListVillasParams) (int64, error) {
	where, args := villaFilters(arg)
	var total int64
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM villas `+where, args...).Scan(&total)
	return total, err
}

func villaFilters(arg ListVillasParams) (string, []any) {
	clauses := []string{"available = true"}
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if q := strings.TrimSpace(arg.Query); q != "" {
		add("(name ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%[1]d || '%%')", q)
	}
	if arg.Bedrooms != nil {
		add("bedrooms >= $%d", *arg.Bedrooms)
	}
	if arg.HasPool != nil {
		add("has_pool = $%d", *arg.HasPool)
	}
	if arg.MinRate != nil {
		add("base_rate >= $%d", *arg.MinRate)
	}
	if arg.MaxRate != nil {
		add("base_rate <= $%d", *arg.MaxRate)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func villaOrder(sort string) string {
	switch sort {
	case "rate_asc":
		return "ORDER BY base_rate ASC"
	case "rate_desc":
		return "ORDER BY base_rate DESC"
	case "newest":
		return "ORDER BY created_at DESC"
	default:
		return "ORDER BY name ASC"
	}
}

func encodeI18n(v map[string]any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}
