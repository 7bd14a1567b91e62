// Package auth handles password login, JWT sessions and the gin guards built
// on them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cast"
	"golang.org/x/crypto/bcrypt"

	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Identity is what a session proves about its holder. It never carries the
// password.
type Identity struct {
	UserID      uint        `json:"id"`
	Username    string      `json:"username"`
	Name        string      `json:"name"`
	Role        models.Role `json:"role"`
	DashboardID string      `json:"dashboard_id,omitempty"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// CanView reports whether the identity may open dashboardID. Admins see all
// dashboards, users only their assigned one.
func (i Identity) CanView(dashboardID string) bool {
	return i.IsAdmin() || (i.DashboardID != "" && i.DashboardID == dashboardID)
}

func IdentityFromUser(user *models.User) Identity {
	return Identity{
		UserID:      user.ID,
		Username:    user.Username,
		Name:        user.Name,
		Role:        user.Role,
		DashboardID: user.DashboardID,
	}
}

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(users UserStore, secret string, ttl time.Duration) *Service {
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Login checks the password against the stored bcrypt hash.
func (s *Service) Login(ctx context.Context, username, password string) (Identity, error) {
	if username == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("failed to load user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return Identity{}, ErrInvalidCredentials
	}
	return IdentityFromUser(user), nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs an HS256 session token and returns it with its expiry.
func (s *Service) IssueToken(identity Identity) (string, time.Time, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)

	claims := jwt.MapClaims{
		"sub":          cast.ToString(identity.UserID),
		"username":     identity.Username,
		"name":         identity.Name,
		"role":         string(identity.Role),
		"dashboard_id": identity.DashboardID,
		"iat":          now.Unix(),
		"exp":          expires.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates signature and expiry and returns the identity.
func (s *Service) ParseToken(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	identity := Identity{
		UserID:      cast.ToUint(claims["sub"]),
		Username:    cast.ToString(claims["username"]),
		Name:        cast.ToString(claims["name"]),
		Role:        models.Role(cast.ToString(claims["role"])),
		DashboardID: cast.ToString(claims["dashboard_id"]),
	}
	if identity.Username == "" || identity.Role == "" {
		return Identity{}, ErrInvalidToken
	}
	return identity, nil
}
