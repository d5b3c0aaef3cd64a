package auth

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/internal/repository"
	"github.com/Luis-avalos1/TaskFlow/pkg/config"
	"github.com/Luis-avalos1/TaskFlow/pkg/crypto"
	jwtpkg "github.com/Luis-avalos1/TaskFlow/pkg/jwt"
)

// Service handles authentication workflows.
type Service struct {
	users       repository.UserRepository
	revocations Revocations
	validate    *validator.Validate
	logger      *slog.Logger
	cfg         config.APIConfig
}

// New constructs a Service. A nil revocations list keeps revoked tokens in memory.
func New(users repository.UserRepository, revocations Revocations, logger *slog.Logger, cfg config.APIConfig) Service {
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}
	return Service{
		users:       users,
		revocations: revocations,
		validate:    newValidator(),
		logger:      logger,
		cfg:         cfg,
	}
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,maxbytes=72,password"`
	Username  string `json:"username" validate:"required,min=3,max=50"`
	FirstName string `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var (
	errUserExists         = domain.ConflictError("User already exists")
	errInvalidCredentials = domain.AuthenticationError("Invalid credentials")
	errDeactivated        = domain.AuthenticationError("Account is deactivated")
	errInvalidRefresh     = domain.AuthenticationError("Invalid refresh token")
	errRefreshRequired    = domain.ValidationFields("Refresh token is required", map[string]string{"refreshToken": "required"})
	errTokenRequired      = domain.AuthenticationError("No token provided")
	errInvalidToken       = domain.AuthenticationError("Invalid or expired token")
	errUserNotFound       = domain.AuthenticationError("User not found")
)

// Register creates a member account and signs it in.
func (s Service) Register(ctx context.Context, input RegisterInput) (*domain.User, TokenPair, error) {
	input.Email = normalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if err := s.check(input); err != nil {
		return nil, TokenPair{}, err
	}

	exists, err := s.users.UserExists(ctx, input.Email, input.Username)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("check user: %w", err)
	}
	if exists {
		return nil, TokenPair{}, errUserExists
	}

	hash, err := crypto.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         domain.UserRoleMember,
		IsActive:     true,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, TokenPair{}, errUserExists
		}
		return nil, TokenPair{}, fmt.Errorf("create user: %w", err)
	}
	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, tokens, nil
}

// Login authenticates a user and returns tokens.
func (s Service) Login(ctx context.Context, input LoginInput) (*domain.User, TokenPair, error) {
	input.Email = normalizeEmail(input.Email)
	if err := s.check(input); err != nil {
		return nil, TokenPair{}, err
	}
	user, err := s.users.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, errInvalidCredentials
		}
		return nil, TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, TokenPair{}, errDeactivated
	}
	if err := crypto.ComparePassword(user.PasswordHash, input.Password); err != nil {
		if errors.Is(err, crypto.ErrMismatch) {
			return nil, TokenPair{}, errInvalidCredentials
		}
		return nil, TokenPair{}, fmt.Errorf("compare password: %w", err)
	}
	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, tokens, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// claimed atomically, so a token is redeemed at most once even when
// refreshes race.
func (s Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, errRefreshRequired
	}
	claims, err := jwtpkg.Parse(refreshToken, s.cfg.JWTRefreshSecret, jwtpkg.KindRefresh)
	if err != nil {
		return TokenPair{}, errInvalidRefresh
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return TokenPair{}, errInvalidRefresh
	}
	claimed, err := s.revoke(ctx, claims)
	if err != nil {
		return TokenPair{}, err
	}
	if !claimed {
		return TokenPair{}, errInvalidRefresh
	}
	return s.issueTokens(user.ID)
}

// Logout revokes the caller's refresh token. Tokens belonging to another user
// and tokens that no longer parse are ignored.
func (s Service) Logout(ctx context.Context, userID, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	claims, err := jwtpkg.Parse(refreshToken, s.cfg.JWTRefreshSecret, jwtpkg.KindRefresh)
	if err != nil || claims.UserID != userID {
		return nil
	}
	if _, err := s.revoke(ctx, claims); err != nil {
		return err
	}
	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

// Authorize validates a bearer token and returns the associated user and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, errTokenRequired
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret, jwtpkg.KindAccess)
	if err != nil {
		return nil, nil, errInvalidToken
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, errUserNotFound
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, errDeactivated
	}
	return user, claims, nil
}

// Profile returns the user for an authenticated id.
func (s Service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// revoke claims the token id until the token expires. It reports false when
// the id had already been revoked.
func (s Service) revoke(ctx context.Context, claims *jwtpkg.Claims) (bool, error) {
	until := time.Now().Add(s.cfg.RefreshTokenTTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	claimed, err := s.revocations.Claim(ctx, claims.ID, until)
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return claimed, nil
}

func (s Service) issueTokens(userID string) (TokenPair, error) {
	access, _, err := jwtpkg.GenerateToken(userID, jwtpkg.KindAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, _, err := jwtpkg.GenerateToken(userID, jwtpkg.KindRefresh, s.cfg.JWTRefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL / time.Second),
	}, nil
}

// check runs struct validation and converts failures into a field map.
func (s Service) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return domain.ValidationFields(fieldMessage(verrs[0]), fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param())
	case "password":
		return "Password must be at least 8 characters with uppercase, lowercase, and number"
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})
	// bcrypt only accepts passwords up to 72 bytes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

// strongPassword requires a lower-case letter, an upper-case letter and a digit.
func strongPassword(pw string) bool {
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
