package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Guest mirrors a row of the guests table.
type Guest struct {
	ID           pgtype.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Roles        []string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

const guestColumns = `id, email, password_hash, first_name, last_name, roles, created_at, updated_at`

func scanGuest(row pgx.Row) (Guest, error) {
	var g Guest
	err := row.Scan(&g.ID, &g.Email, &g.PasswordHash, &g.FirstName, &g.LastName,
		&g.Roles, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Guest{}, ErrNotFound
	}
	return g, err
}

// CreateGuestParams holds the insertable guest fields.
type CreateGuestParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

// CreateGuest inserts a guest account.
func (s *Store) CreateGuest(ctx context.Context, arg CreateGuestParams) (Guest, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO guests (email, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		RETURNING `+guestColumns,
		arg.Email, arg.PasswordHash, arg.FirstName, arg.LastName)
	return scanGuest(row)
}

// GetGuestByEmail loads a guest by login email.
func (s *Store) GetGuestByEmail(ctx context.Context, email string) (Guest, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guests WHERE email = $1`, email)
	return scanGuest(row)
}

// GetGuestByID loads a guest by primary key.
func (s *Store) GetGuestByID(ctx context.Context, id pgtype.UUID) (Guest, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = $1`, id)
	return scanGuest(row)
}

// RefreshToken mirrors a row of the refresh_tokens table.
type RefreshToken struct {
	ID        pgtype.UUID
	GuestID   pgtype.UUID
	TokenHash string
	ExpiresAt pgtype.Timestamptz
	RevokedAt pgtype.Timestamptz
	CreatedAt pgtype.Timestamptz
}

// InsertRefreshToken stores a hashed refresh token.
func (s *Store) InsertRefreshToken(ctx context.Context, guestID pgtype.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO refresh_tokens (guest_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`,
		guestID, tokenHash, pgtype.Timestamptz{Time: expiresAt, Valid: true})
	return err
}

// GetRefreshToken loads a refresh token by its hash.
func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (RefreshToken, error) {
	var t RefreshToken
	err := s.Pool.QueryRow(ctx, `
		SELECT id, guest_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens WHERE token_hash = $1`, tokenHash).
		Scan(&t.ID, &t.GuestID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshToken{}, ErrNotFound
	}
	return t, err
}

// RevokeRefreshToken marks a refresh token as revoked.
func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL`, tokenHash)
	return err
}
