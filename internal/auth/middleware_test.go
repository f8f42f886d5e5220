package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amarastays/backend-villa/internal/common"
)

func loginAs(t *testing.T, svc *Service, q *stubQuerier, email string, roles []string) string {
	t.Helper()
	_, err := svc.Register(context.Background(), email, "correct-horse", "Maria", "")
	require.NoError(t, err)
	g := q.guests[email]
	g.Roles = roles
	q.guests[email] = g

	result, err := svc.Login(context.Background(), email, "correct-horse")
	require.NoError(t, err)
	return result.AccessToken
}

func TestRequireAuth(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(t, q)
	token := loginAs(t, svc, q, "maria@example.com", []string{"guest"})
	mw := Middleware{Service: svc}

	var gotGuestID string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotGuestID, _ = common.GuestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, gotGuestID)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/bookings", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(t, q)
	adminToken := loginAs(t, svc, q, "admin@example.com", []string{"guest", RoleAdmin})
	guestToken := loginAs(t, svc, q, "maria@example.com", []string{"guest"})
	mw := Middleware{Service: svc}

	handler := mw.RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/villas", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/admin/villas", nil)
	req.Header.Set("Authorization", "Bearer "+guestToken)
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthenticateLetsAnonymousThrough(t *testing.T) {
	svc := newTestService(t, newStubQuerier())
	mw := Middleware{Service: svc}

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := common.GuestID(r.Context())
		require.False(t, ok)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/baskets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
