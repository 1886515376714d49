package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/app"
	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/auth"
	"github.com/meetwo/meetwo-server/internal/logger"
	"github.com/meetwo/meetwo-server/internal/repository"
)

// LoginInput carries the login credentials. Identifier may be a username or
// an email address.
type LoginInput struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// AuthService handles registration, login and token validation.
type AuthService struct {
	appCtx    *app.AppContext
	users     *UserService
	tokens    *auth.TokenService
	passwords *auth.PasswordService
}

// NewAuthService builds an AuthService on top of the user service.
func NewAuthService(appCtx *app.AppContext, users *UserService, tokens *auth.TokenService, passwords *auth.PasswordService) *AuthService {
	return &AuthService{appCtx: appCtx, users: users, tokens: tokens, passwords: passwords}
}

// Register creates the profile and immediately issues a token for it.
func (s *AuthService) Register(ctx context.Context, in CreateUserInput) (*AuthResponse, error) {
	user, err := s.users.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.Username)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: user}, nil
}

// Login authenticates by username or email. Wrong identifier, wrong password
// and disabled account all collapse into the same unauthorized error so the
// response does not leak which part failed.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	if in.Identifier == "" || in.Password == "" {
		return nil, apperror.Validation("", "identifier and password are required")
	}

	user, err := repository.NewUserRepository(s.appCtx.DB).FindByUsernameOrEmail(ctx, in.Identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if !s.passwords.Verify(user.PasswordHash, in.Password) {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if !user.Enabled {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Generate(user.Username)
	if err != nil {
		return nil, err
	}

	logger.Info("user logged in", "user_id", user.ID)
	return &AuthResponse{Token: token, User: NewUserResponse(user)}, nil
}

// Validate checks a raw token and returns the profile it belongs to.
func (s *AuthService) Validate(ctx context.Context, token string) (*UserResponse, error) {
	username, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired token")
	}
	return s.CurrentUser(ctx, username)
}

// CurrentUser loads the profile behind an authenticated username.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*UserResponse, error) {
	user, err := repository.NewUserRepository(s.appCtx.DB).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("unknown account")
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, apperror.Unauthorized("account disabled")
	}
	return NewUserResponse(user), nil
}
