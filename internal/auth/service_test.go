package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/store"
)

type stubQuerier struct {
	guests map[string]store.Guest
	tokens map[string]store.RefreshToken
}

func newStubQuerier() *stubQuerier {
	return &stubQuerier{guests: map[string]store.Guest{}, tokens: map[string]store.RefreshToken{}}
}

func (s *stubQuerier) CreateGuest(_ context.Context, arg store.CreateGuestParams) (store.Guest, error) {
	if _, exists := s.guests[arg.Email]; exists {
		return store.Guest{}, &pgconn.PgError{Code: "23505"}
	}
	id, _ := store.ParseUUID(uuid.NewString())
	g := store.Guest{ID: id, Email: arg.Email, PasswordHash: arg.PasswordHash,
		FirstName: arg.FirstName, LastName: arg.LastName, Roles: []string{"guest"}}
	s.guests[arg.Email] = g
	return g, nil
}

func (s *stubQuerier) GetGuestByEmail(_ context.Context, email string) (store.Guest, error) {
	g, ok := s.guests[email]
	if !ok {
		return store.Guest{}, store.ErrNotFound
	}
	return g, nil
}

func (s *stubQuerier) GetGuestByID(_ context.Context, id pgtype.UUID) (store.Guest, error) {
	for _, g := range s.guests {
		if store.UUIDEqual(g.ID, id) {
			return g, nil
		}
	}
	return store.Guest{}, store.ErrNotFound
}

func (s *stubQuerier) InsertRefreshToken(_ context.Context, guestID pgtype.UUID, tokenHash string, expiresAt time.Time) error {
	s.tokens[tokenHash] = store.RefreshToken{GuestID: guestID, TokenHash: tokenHash,
		ExpiresAt: pgtype.Timestamptz{Time: expiresAt, Valid: true}}
	return nil
}

func (s *stubQuerier) GetRefreshToken(_ context.Context, tokenHash string) (store.RefreshToken, error) {
	t, ok := s.tokens[tokenHash]
	if !ok {
		return store.RefreshToken{}, store.ErrNotFound
	}
	return t, nil
}

func (s *stubQuerier) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	if t, ok := s.tokens[tokenHash]; ok {
		t.RevokedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
		s.tokens[tokenHash] = t
	}
	return nil
}

func newTestService(t *testing.T, q Querier) *Service {
	t.Helper()
	svc, err := NewService(Config{Queries: q, Secret: "test-secret"})
	require.NoError(t, err)
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(t, q)

	guest, err := svc.Register(context.Background(), "Maria@Example.com", "correct-horse", "Maria", "Santos")
	require.NoError(t, err)
	require.Equal(t, "maria@example.com", guest.Email)

	result, err := svc.Login(context.Background(), "maria@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	identity, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, guest.ID, identity.GuestID)
	require.Contains(t, identity.Roles, "guest")
}

func TestLoginWrongPassword(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(t, q)
	_, err := svc.Register(context.Background(), "maria@example.com", "correct-horse", "Maria", "")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "maria@example.com", "wrong")
	require.True(t, common.IsAppError(err))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(t, q)
	_, err := svc.Register(context.Background(), "maria@example.com", "correct-horse", "Maria", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "maria@example.com", "other-password", "Maria", "")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMAIL_ALREADY_USED", appErr.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(t, q)
	_, err := svc.Register(context.Background(), "maria@example.com", "correct-horse", "Maria", "")
	require.NoError(t, err)
	login, err := svc.Login(context.Background(), "maria@example.com", "correct-horse")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The consumed token cannot be replayed.
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.True(t, common.IsAppError(err))
}

func TestRefreshExpiredToken(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(t, q)
	_, err := svc.Register(context.Background(), "maria@example.com", "correct-horse", "Maria", "")
	require.NoError(t, err)
	login, err := svc.Login(context.Background(), "maria@example.com", "correct-horse")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return time.Now().Add(defaultRefreshTTL + time.Hour) })
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.True(t, common.IsAppError(err))
}

func TestParseAccessTokenExpired(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(t, q)
	_, err := svc.Register(context.Background(), "maria@example.com", "correct-horse", "Maria", "")
	require.NoError(t, err)
	login, err := svc.Login(context.Background(), "maria@example.com", "correct-horse")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return time.Now().Add(defaultAccessTTL + time.Hour) })
	_, err = svc.ParseAccessToken(login.AccessToken)
	require.True(t, common.IsAppError(err))
}

func TestParseAccessTokenGarbage(t *testing.T) {
	svc := newTestService(t, newStubQuerier())
	_, err := svc.ParseAccessToken("not-a-token")
	require.True(t, common.IsAppError(err))
}
