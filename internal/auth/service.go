// Package auth handles guest accounts: registration, login, token
// issuance and refresh token rotation.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/store"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour

	// RoleAdmin gates the back-office surface.
	RoleAdmin = "admin"

	rolesClaim = "roles"
)

// Querier is the subset of the store the auth service depends on.
type Querier interface {
	CreateGuest(ctx context.Context, arg store.CreateGuestParams) (store.Guest, error)
	GetGuestByEmail(ctx context.Context, email string) (store.Guest, error)
	GetGuestByID(ctx context.Context, id pgtype.UUID) (store.Guest, error)
	InsertRefreshToken(ctx context.Context, guestID pgtype.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (store.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

// Service coordinates guest authentication and session persistence.
type Service struct {
	queries    Querier
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	signer     jwa.SignatureAlgorithm
	validator  TokenValidator
	issuer     string
	audience   string
}

// Config configures the auth service.
type Config struct {
	Queries         Querier
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
	Audience        string
	ClockSkew       time.Duration
}

// Guest is the public shape of an account.
type Guest struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

// LoginResult bundles the token material issued after login.
type LoginResult struct {
	Guest         Guest     `json:"guest"`
	AccessToken   string    `json:"access_token"`
	RefreshToken  string    `json:"refresh_token"`
	AccessExpiry  time.Time `json:"access_expires_at"`
	RefreshExpiry time.Time `json:"refresh_expires_at"`
}

// RefreshResult is the outcome of a refresh token rotation.
type RefreshResult struct {
	AccessToken   string    `json:"access_token"`
	AccessExpiry  time.Time `json:"access_expires_at"`
	RefreshToken  string    `json:"refresh_token"`
	RefreshExpiry time.Time `json:"refresh_expires_at"`
}

// Identity is the authenticated principal carried through middleware.
type Identity struct {
	GuestID string
	Roles   []string
}

// NewService constructs a Service with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("auth: queries is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-villa"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "amarastays-web"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}

	return &Service{
		queries:    cfg.Queries,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		signer:     jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:   issuer,
		audience: audience,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Register creates a new guest account.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (Guest, error) {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" {
		return Guest{}, common.NewAppError("VALIDATION_ERROR", "email is required", http.StatusBadRequest, nil)
	}
	if strings.TrimSpace(firstName) == "" {
		return Guest{}, common.NewAppError("VALIDATION_ERROR", "first name is required", http.StatusBadRequest, nil)
	}
	if len(password) < 8 {
		return Guest{}, common.NewAppError("VALIDATION_ERROR", "password must be at least 8 characters", http.StatusBadRequest, nil)
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return Guest{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.queries.CreateGuest(ctx, store.CreateGuestParams{
		Email:        normalized,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Guest{}, common.NewAppError("EMAIL_ALREADY_USED", "email is already registered", http.StatusConflict, err)
		}
		return Guest{}, fmt.Errorf("create guest: %w", err)
	}
	return toGuest(created), nil
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" || password == "" {
		return LoginResult{}, invalidCredentials(nil)
	}
	guest, err := s.queries.GetGuestByEmail(ctx, normalized)
	if err != nil {
		return LoginResult{}, invalidCredentials(nil)
	}
	ok, err := argon2id.ComparePasswordAndHash(password, guest.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, invalidCredentials(err)
	}

	accessToken, accessExpiry, err := s.signAccessToken(store.UUIDString(guest.ID), guest.Roles)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, refreshExpiry, err := s.issueRefreshToken(ctx, guest.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return LoginResult{
		Guest:         toGuest(guest),
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpiry:  accessExpiry,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// Refresh rotates a refresh token and mints a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return RefreshResult{}, invalidRefresh(nil)
	}

	hashed := hashRefreshToken(token)
	session, err := s.queries.GetRefreshToken(ctx, hashed)
	if err != nil {
		return RefreshResult{}, invalidRefresh(err)
	}
	if session.RevokedAt.Valid || !session.ExpiresAt.Valid || s.now().After(session.ExpiresAt.Time) {
		_ = s.queries.RevokeRefreshToken(ctx, hashed)
		return RefreshResult{}, invalidRefresh(nil)
	}

	guest, err := s.queries.GetGuestByID(ctx, session.GuestID)
	if err != nil {
		_ = s.queries.RevokeRefreshToken(ctx, hashed)
		return RefreshResult{}, invalidRefresh(err)
	}

	accessToken, accessExpiry, err := s.signAccessToken(store.UUIDString(guest.ID), guest.Roles)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("sign access token: %w", err)
	}

	if err := s.queries.RevokeRefreshToken(ctx, hashed); err != nil {
		return RefreshResult{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	newToken, refreshExpiry, err := s.issueRefreshToken(ctx, guest.ID)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return RefreshResult{
		AccessToken:   accessToken,
		AccessExpiry:  accessExpiry,
		RefreshToken:  newToken,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// Logout revokes the refresh token; an unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return nil
	}
	return s.queries.RevokeRefreshToken(ctx, hashRefreshToken(token))
}

// Me loads the authenticated guest's account.
func (s *Service) Me(ctx context.Context, guestID string) (Guest, error) {
	id, err := store.ParseUUID(guestID)
	if err != nil {
		return Guest{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, err)
	}
	guest, err := s.queries.GetGuestByID(ctx, id)
	if err != nil {
		return Guest{}, common.NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized, err)
	}
	return toGuest(guest), nil
}

// ParseAccessToken validates a token and returns the caller's identity.
func (s *Service) ParseAccessToken(token string) (Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized,
			fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret))
	if err != nil {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}

	identity := Identity{GuestID: parsed.Subject()}
	if raw, ok := parsed.Get(rolesClaim); ok {
		if values, ok := raw.([]any); ok {
			for _, v := range values {
				if role, ok := v.(string); ok {
					identity.Roles = append(identity.Roles, role)
				}
			}
		}
	}
	return identity, nil
}

func (s *Service) signAccessToken(guestID string, roles []string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	builder := jwt.NewBuilder().
		Subject(guestID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.validator.ClockSkew)).
		Expiration(expiresAt).
		Claim(rolesClaim, roles)
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func (s *Service) issueRefreshToken(ctx context.Context, guestID pgtype.UUID) (string, time.Time, error) {
	token, err := generateToken(48)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := s.now().Add(s.refreshTTL)
	if err := s.queries.InsertRefreshToken(ctx, guestID, hashRefreshToken(token), expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func invalidCredentials(err error) error {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, err)
}

func invalidRefresh(err error) error {
	return common.NewAppError("UNAUTHORIZED", "invalid refresh token", http.StatusUnauthorized, err)
}

func toGuest(g store.Guest) Guest {
	return Guest{
		ID:        store.UUIDString(g.ID),
		Email:     g.Email,
		FirstName: g.FirstName,
		LastName:  g.LastName,
		Roles:     g.Roles,
	}
}
