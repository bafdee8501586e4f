package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skiffworks/sailing-campaign/backend/internal/metrics"
	"github.com/skiffworks/sailing-campaign/backend/internal/repository"
)

// Auth service errors
var (
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrEmailExists         = errors.New("email already registered")
	ErrUsernameExists      = errors.New("username already taken")
	ErrInvalidCredentials  = errors.New("incorrect username or password")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrTooManyAttempts     = errors.New("too many failed login attempts")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrSessionNotFound     = errors.New("session not found")
	ErrUserNotFound        = errors.New("user not found")
)

// Error codes for API responses
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeEmailExists         = "EMAIL_EXISTS"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeTooManyAttempts     = "TOO_MANY_ATTEMPTS"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeAuthTokenMissing    = "AUTH_TOKEN_MISSING"
	CodeAuthTokenInvalid    = "AUTH_TOKEN_INVALID"
)

// Brute force protection constants
const (
	MaxFailedAttempts   = 5
	FailedAttemptWindow = 15 * time.Minute
)

// Username bounds
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest represents the logout request payload
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

// TokenResponse represents the token response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// UserResponse represents the user data in responses
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// VerifyResponse represents the token verification result
type VerifyResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// ValidationError represents a validation error with field details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AuthService handles authentication business logic
type AuthService struct {
	userRepo          repository.UserRepository
	authSessionRepo   repository.AuthSessionRepository
	tokenService      *TokenService
	passwordValidator *PasswordValidator
	logger            *slog.Logger
}

// NewAuthService creates a new AuthService instance
func NewAuthService(
	userRepo repository.UserRepository,
	authSessionRepo repository.AuthSessionRepository,
	tokenService *TokenService,
	passwordValidator *PasswordValidator,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		userRepo:          userRepo,
		authSessionRepo:   authSessionRepo,
		tokenService:      tokenService,
		passwordValidator: passwordValidator,
		logger:            logger,
	}
}

// Register creates a new sailor account, stores a refresh session, and
// returns tokens
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, ipAddress, userAgent string) (*AuthResponse, []ValidationError, error) {
	var validationErrors []ValidationError

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !isValidEmail(email) {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "email",
			Message: "Invalid email format",
		})
	}

	username := strings.TrimSpace(req.Username)
	validationErrors = append(validationErrors, validateUsername(username)...)

	for _, err := range s.passwordValidator.ValidatePassword(req.Password) {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field,
			Message: err.Message,
		})
	}

	if len(validationErrors) > 0 {
		return nil, validationErrors, nil
	}

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrEmailExists
	}

	taken, err := s.userRepo.UsernameExists(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if taken {
		return nil, nil, ErrUsernameExists
	}

	hashedPassword, err := s.passwordValidator.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &repository.User{
		Email:          email,
		Username:       username,
		HashedPassword: hashedPassword,
		IsActive:       true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, nil, ErrEmailExists
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, nil, ErrUsernameExists
		}
		return nil, nil, err
	}

	tokenPair, err := s.tokenService.GenerateTokenPair(user.ID.String(), user.Username)
	if err != nil {
		return nil, nil, err
	}

	// Store the refresh session so the register-issued token can be
	// refreshed without an intervening login
	session := &repository.AuthSession{
		UserID:    user.ID,
		TokenHash: s.tokenService.HashRefreshToken(tokenPair.RefreshToken),
		ExpiresAt: time.Now().UTC().Add(s.tokenService.GetRefreshTokenExpiry()),
		IPAddress: &ipAddress,
		UserAgent: &userAgent,
	}
	if err := s.authSessionRepo.Create(ctx, session); err != nil {
		return nil, nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", user.Username)

	return &AuthResponse{
		User:   toUserResponse(user),
		Tokens: toTokenResponse(tokenPair),
	}, nil, nil
}

// Login authenticates a sailor by username and returns tokens
func (s *AuthService) Login(ctx context.Context, req LoginRequest, ipAddress, userAgent string) (*AuthResponse, error) {
	username := strings.TrimSpace(req.Username)

	since := time.Now().UTC().Add(-FailedAttemptWindow)
	failedAttempts, err := s.authSessionRepo.CountFailedAttempts(ctx, username, since)
	if err != nil {
		return nil, err
	}
	if failedAttempts >= MaxFailedAttempts {
		metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		return nil, ErrTooManyAttempts
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Record the attempt and return a generic error to prevent enumeration
			_ = s.authSessionRepo.RecordFailedAttempt(ctx, username, ipAddress)
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CanLogin() {
		return nil, ErrAccountDisabled
	}

	if err := s.passwordValidator.VerifyPassword(req.Password, user.HashedPassword); err != nil {
		_ = s.authSessionRepo.RecordFailedAttempt(ctx, username, ipAddress)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	tokenPair, err := s.tokenService.GenerateTokenPair(user.ID.String(), user.Username)
	if err != nil {
		return nil, err
	}

	session := &repository.AuthSession{
		UserID:    user.ID,
		TokenHash: s.tokenService.HashRefreshToken(tokenPair.RefreshToken),
		ExpiresAt: time.Now().UTC().Add(s.tokenService.GetRefreshTokenExpiry()),
		IPAddress: &ipAddress,
		UserAgent: &userAgent,
	}

	if err := s.authSessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()

	return &AuthResponse{
		User:   toUserResponse(user),
		Tokens: toTokenResponse(tokenPair),
	}, nil
}

// RefreshToken validates a refresh token and rotates the session
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.tokenService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	tokenHash := s.tokenService.HashRefreshToken(refreshToken)
	session, err := s.authSessionRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrAuthSessionNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if time.Now().UTC().After(session.ExpiresAt) {
		_ = s.authSessionRepo.Delete(ctx, session.ID)
		return nil, ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	newTokenPair, err := s.tokenService.GenerateTokenPair(user.ID.String(), user.Username)
	if err != nil {
		return nil, err
	}

	if err := s.authSessionRepo.Delete(ctx, session.ID); err != nil {
		return nil, err
	}

	newSession := &repository.AuthSession{
		UserID:    user.ID,
		TokenHash: s.tokenService.HashRefreshToken(newTokenPair.RefreshToken),
		ExpiresAt: time.Now().UTC().Add(s.tokenService.GetRefreshTokenExpiry()),
		IPAddress: session.IPAddress,
		UserAgent: session.UserAgent,
	}

	if err := s.authSessionRepo.Create(ctx, newSession); err != nil {
		return nil, err
	}

	resp := toTokenResponse(newTokenPair)
	return &resp, nil
}

// Logout invalidates a refresh-token session
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if _, err := s.tokenService.ValidateRefreshToken(refreshToken); err != nil {
		return ErrInvalidRefreshToken
	}

	tokenHash := s.tokenService.HashRefreshToken(refreshToken)
	if err := s.authSessionRepo.DeleteByTokenHash(ctx, tokenHash); err != nil {
		if errors.Is(err, repository.ErrAuthSessionNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	return nil
}

// GetUserProfile returns the profile of the given user
func (s *AuthService) GetUserProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// DeactivateAccount disables the account. Existing refresh sessions stay in
// the store but fail at login time because the account can no longer log in.
func (s *AuthService) DeactivateAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.logger.Info("Account deactivated", "user_id", userID)
	return nil
}

// VerifyToken checks an access token and reports the identity it carries
func (s *AuthService) VerifyToken(tokenString string) (*VerifyResponse, error) {
	claims, err := s.tokenService.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	return &VerifyResponse{
		Valid:    true,
		UserID:   claims.UserID(),
		Username: claims.Username,
	}, nil
}

func toUserResponse(user *repository.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Username:  user.Username,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

func toTokenResponse(pair *TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    "Bearer",
	}
}

// isValidEmail checks email format using the stdlib address parser
func isValidEmail(email string) bool {
	if email == "" || len(email) > 255 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// validateUsername enforces the username rules: 3-50 characters,
// alphanumeric plus underscores and hyphens
func validateUsername(username string) []ValidationError {
	var errs []ValidationError

	if len(username) < MinUsernameLength {
		errs = append(errs, ValidationError{
			Field:   "username",
			Message: "Username must be at least 3 characters",
		})
	}
	if len(username) > MaxUsernameLength {
		errs = append(errs, ValidationError{
			Field:   "username",
			Message: "Username too long",
		})
	}

	for _, char := range username {
		if char >= 'a' && char <= 'z' || char >= 'A' && char <= 'Z' ||
			char >= '0' && char <= '9' || char == '_' || char == '-' {
			continue
		}
		errs = append(errs, ValidationError{
			Field:   "username",
			Message: "Username can only contain letters, numbers, underscores, and hyphens",
		})
		break
	}

	return errs
}
