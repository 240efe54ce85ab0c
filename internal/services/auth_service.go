package services

import (
	"context"
	"errors"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/middleware"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// AuthService handles login and token issuance. User management itself lives
// in the wider platform; this service only authenticates known staff.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	GetUser(ctx context.Context, userID uint) (*models.User, error)
}

// LoginResult carries the issued token and the authenticated user
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type authService struct {
	repos              *repository.Repositories
	jwtSecret          string
	jwtExpirationHours int
}

// NewAuthService creates a new auth service
func NewAuthService(repos *repository.Repositories, jwtSecret string, jwtExpirationHours int) AuthService {
	return &authService{
		repos:              repos,
		jwtSecret:          jwtSecret,
		jwtExpirationHours: jwtExpirationHours,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repos.User.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidPassword
		}
		return nil, err
	}

	if !user.Active {
		return nil, ErrInvalidPassword
	}

	if !user.CheckPassword(password) {
		return nil, ErrInvalidPassword
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(s.jwtExpirationHours) * time.Hour)

	claims := middleware.Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		SchoolID: user.SchoolID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	user.LastLoginAt = &now
	if err := s.repos.User.Update(ctx, user); err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *authService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}
