package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"emri-dispatch/internal/domain"
	"emri-dispatch/internal/repository"
	"emri-dispatch/internal/store"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session invalid or expired")
)

// LoginResult is the issued token plus the account it belongs to.
type LoginResult struct {
	Token string
	User  *domain.User
}

// AuthService issues and verifies operator sessions. Tokens are HS256 JWTs;
// each carries a jti that is also written server-side with a TTL, so logout
// revokes a token before its exp.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	users    repository.UsersRepository
	sessions store.KV
	secret   []byte
	ttl      time.Duration
	logger   *zap.Logger
}

func NewAuthService(users repository.UsersRepository, sessions store.KV, secret string, ttl time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		users:    users,
		sessions: sessions,
		secret:   []byte(secret),
		ttl:      ttl,
		logger:   logger,
	}
}

// HashPassword hashes a password for storage and comparison. Accounts are
// seeded with this digest; plaintext never touches the users table.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

type sessionClaims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func sessionKey(tokenID string) string {
	return "session:" + tokenID
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByUserID(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login lookup failed: %w", err)
	}

	if HashPassword(password) != user.PasswordHash {
		return nil, ErrInvalidCredentials
	}

	tokenID := uuid.NewString()
	now := time.Now()
	claims := sessionClaims{
		UserID:   user.ID,
		Username: user.UserID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.sessions.Set(ctx, sessionKey(tokenID), user.UserID, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("login succeeded",
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role))

	return &LoginResult{Token: token, User: user}, nil
}

// Authenticate verifies the signature and expiry, then requires the
// server-side session record to still exist. A logged-out token fails here
// even though its signature is still valid.
func (s *authService) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := s.parseClaims(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	if _, err := s.sessions.Get(ctx, sessionKey(claims.ID)); err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	return &domain.Session{
		TokenID:  claims.ID,
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// Logout revokes the server-side session. A malformed or expired token is not
// an error; the cookie gets cleared either way.
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.parseClaims(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionKey(claims.ID)); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *authService) parseClaims(token string) (*sessionClaims, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}
