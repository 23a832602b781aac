// Package auth issues and verifies access tokens for the exam API.
// Access tokens are short-lived JWTs; refresh tokens are opaque ids
// persisted in the store and rotated on every refresh.
package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/qazedu/examcenter/internal/model"
	"github.com/qazedu/examcenter/internal/store"
)

type Service struct {
	store      *store.Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(s *store.Store, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:      s,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TokenPair is an access/refresh token set returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Login checks the password and issues a token pair.
func (s *Service) Login(username, password string) (*TokenPair, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, model.NewValidation("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewValidation("invalid credentials")
	}
	return s.issuePair(user)
}

// Refresh rotates a refresh token and issues a new pair.
func (s *Service) Refresh(refreshToken string) (*TokenPair, error) {
	sess, err := s.store.GetAuthSession(refreshToken)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, model.NewValidation("invalid refresh token")
	}
	user, err := s.store.GetUserByID(sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, model.NewValidation("invalid refresh token")
	}
	if err := s.store.DeleteAuthSession(refreshToken); err != nil {
		return nil, err
	}
	return s.issuePair(user)
}

func (s *Service) issuePair(user *model.User) (*TokenPair, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	access, err := tok.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := uuid.NewString()
	if err := s.store.CreateAuthSession(model.AuthSession{
		ID:        refresh,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify parses an access token and returns the user it names.
func (s *Service) Verify(tokenString string) (*model.User, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, model.NewValidation("invalid access token")
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, model.NewValidation("invalid access token")
	}
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, model.NewValidation("invalid access token")
	}
	return user, nil
}

// Middleware verifies the Bearer token and stores the user in the
// request context. Requests without a valid token get 401.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		user, err := s.Verify(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
