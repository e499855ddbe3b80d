package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwilding/taskdeck/internal/infrastructure/config"
	"github.com/mwilding/taskdeck/internal/infrastructure/logging"
)

// Service implements the account and session operations: registration,
// login, token refresh, logout, and password change. It owns the policy
// decisions (single active refresh token, role rules); persistence is
// delegated to the UserRepository.
type Service struct {
	users      UserRepository
	jwt        config.JWTConfig
	hashParams Argon2Params
	logger     *logging.Logger
}

// NewService creates an auth service backed by the given repository.
// Password hashing uses the default Argon2id work factors unless
// SetPasswordParams is called.
func NewService(users UserRepository, jwt config.JWTConfig, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		users:      users,
		jwt:        jwt,
		hashParams: DefaultArgon2Params(),
		logger:     logger.With("component", "auth"),
	}
}

// SetPasswordParams overrides the Argon2id work factors for new password
// hashes. Call before serving requests; existing hashes verify with the
// factors recorded in them regardless.
func (s *Service) SetPasswordParams(p Argon2Params) {
	s.hashParams = p
}

// RegisterInput is the payload for creating a new account.
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Role            Role   `json:"role,omitempty"`
}

// Register validates the input, creates the account, and returns the new
// user together with an initial token pair so the client is logged in
// immediately. A recognised role is accepted as given; anything else,
// including an empty role, silently becomes "user".
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, *TokenPair, error) {
	if err := ValidateRegistration(in); err != nil {
		return nil, nil, err
	}

	role := in.Role
	if !IsValidRole(role) {
		role = RoleUser
	}

	hash, err := HashPasswordParams(in.Password, s.hashParams)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Name:         in.Name,
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", string(user.Role))
	return user, pair, nil
}

// Login verifies credentials and issues a fresh token pair. Any previously
// issued refresh token is invalidated; one active session per account.
// Unknown email and wrong password both return ErrInvalidCredentials so the
// response does not leak which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (*User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		s.logger.Warn("failed login attempt", "user_id", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The
// presented token must match the stored one exactly; rotation happens
// through a conditional update, so a replayed or superseded token fails
// with ErrTokenInvalid even under concurrent refresh attempts.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := ParseRefreshToken(refreshToken, s.jwt.Secret)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	presented := HashToken(refreshToken)
	if user.RefreshTokenHash == "" || user.RefreshTokenHash != presented {
		s.logger.Warn("refresh with superseded token", "user_id", user.ID)
		return nil, ErrTokenInvalid
	}

	accessToken, err := GenerateAccessToken(user, s.jwt.Secret, s.jwt.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}
	newRefresh, err := GenerateRefreshToken(user.ID, s.jwt.Secret, s.jwt.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	if err := s.users.RotateRefreshToken(ctx, user.ID, presented, HashToken(newRefresh)); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout clears the account's stored refresh token. Outstanding access
// tokens stay usable until they expire; only the refresh chain is cut.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

// ChangePassword verifies the current password, applies the strength policy
// to the new one, stores the new hash, and issues a fresh token pair. The
// rotation invalidates the previous refresh token, logging out any other
// client holding it.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, confirmPassword string) (*TokenPair, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, err := VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := ValidatePasswordChange(newPassword, confirmPassword); err != nil {
		return nil, err
	}

	hash, err := HashPasswordParams(newPassword, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return nil, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("password changed", "user_id", userID)
	return pair, nil
}

// VerifyAccess parses and validates an access token, returning its claims.
// Expired tokens are distinguished from malformed or mis-signed ones so the
// API layer can tell clients to refresh rather than re-authenticate.
func (s *Service) VerifyAccess(tokenString string) (*AccessClaims, error) {
	return ParseAccessToken(tokenString, s.jwt.Secret)
}

// issuePair generates an access/refresh token pair and stores the refresh
// token's hash on the account, replacing any previous one.
func (s *Service) issuePair(ctx context.Context, user *User) (*TokenPair, error) {
	accessToken, err := GenerateAccessToken(user, s.jwt.Secret, s.jwt.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}
	refreshToken, err := GenerateRefreshToken(user.ID, s.jwt.Secret, s.jwt.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, HashToken(refreshToken)); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
