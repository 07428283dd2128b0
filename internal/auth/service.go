// Package auth is the identity provider: signup, signin, signout and
// password reset, issuing JWTs against bcrypt-hashed credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/apperr"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/presence"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/repo"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer     = "livechatting"
	tokenLifetime   = 24 * time.Hour
	resetLifetime   = 15 * time.Minute
	minPasswordLen  = 6
	avatarURLPrefix = "https://ui-avatars.com/api/?name="
)

type Claims struct {
	UserID string `json:"uid"`
	Name   string `json:"name"`
	Scope  string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	users     repo.UserRepository
	presence  *presence.Tracker
	jwtSecret []byte
	logger    *zap.Logger
}

func NewService(users repo.UserRepository, tracker *presence.Tracker, secret string, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		presence:  tracker,
		jwtSecret: []byte(secret),
		logger:    logger,
	}
}

// SignUp creates the account document. New accounts start online with a
// fresh last_seen, matching first-launch behavior of the client.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))

	if name == "" || email == "" || password == "" {
		return nil, apperr.Validationf("all fields are required")
	}
	if len(password) < minPasswordLen {
		return nil, apperr.Validationf("password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Avatar:       avatarURLPrefix + url.QueryEscape(name),
		PasswordHash: string(hash),
		IsOnline:     true,
		LastSeen:     now,
		CreatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("account created", zap.String("user_id", user.ID))
	return user, nil
}

// SignIn verifies credentials, issues a session token and transitions the
// user online.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, apperr.Validationf("email and password required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", nil, apperr.ErrNotAuthenticated
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperr.ErrNotAuthenticated
	}

	token, err := s.issueToken(user.ID, user.Name, "", tokenLifetime)
	if err != nil {
		return "", nil, err
	}

	s.presence.SetOnline(ctx, user.ID)
	return token, user, nil
}

// SignOut transitions the user offline. The session token simply expires.
func (s *Service) SignOut(ctx context.Context, userID string) {
	s.presence.SetOffline(ctx, userID)
}

// RequestPasswordReset issues a short-lived single-purpose token for the
// account. Delivery of the token is the caller's concern.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return "", err
	}
	return s.issueToken(user.ID, user.Name, "password_reset", resetLifetime)
}

// CompletePasswordReset validates the reset token and stores the new
// credential.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return apperr.Validationf("password must be at least %d characters", minPasswordLen)
	}

	claims, err := s.parseToken(token)
	if err != nil || claims.Scope != "password_reset" {
		return apperr.ErrNotAuthenticated
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.SetPasswordHash(ctx, claims.UserID, string(hash))
}

// ValidateToken checks a session token and returns the caller's identity.
func (s *Service) ValidateToken(tokenString string) (string, string, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil || claims.Scope != "" {
		return "", "", apperr.ErrNotAuthenticated
	}
	return claims.UserID, claims.Name, nil
}

func (s *Service) issueToken(userID, name, scope string, lifetime time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Name:   name,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(lifetime)),
		},
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.ErrNotAuthenticated
	}
	return claims, nil
}
