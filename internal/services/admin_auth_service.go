package services

import (
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"github.com/homenest/booking-backend/internal/apperrors"
	"github.com/homenest/booking-backend/internal/database"
	"github.com/homenest/booking-backend/internal/middleware"
	"github.com/homenest/booking-backend/internal/models"
	"github.com/homenest/booking-backend/pkg/jwt"
)

// ErrInvalidCredentials is returned for unknown emails and wrong
// passwords alike, so login responses do not reveal which was wrong
var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminAuthService authenticates dashboard operators
type AdminAuthService struct {
	adminRepo  *database.AdminUserRepository
	jwtService *jwt.Service
	logger     *logrus.Logger
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(adminRepo *database.AdminUserRepository, jwtService *jwt.Service, logger *logrus.Logger) *AdminAuthService {
	return &AdminAuthService{
		adminRepo:  adminRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login verifies the credentials and issues admin tokens
func (s *AdminAuthService) Login(email, password string) (*models.AdminLoginResponse, error) {
	user, err := s.adminRepo.GetByEmail(email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.WithField("email", email).Warn("Failed admin login attempt")
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, []string{middleware.RoleAdmin})
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &models.AdminLoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Name:         user.Name,
	}, nil
}
