package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mwilding/taskdeck/internal/audit"
	"github.com/mwilding/taskdeck/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// sessionData is the data payload for endpoints that issue tokens.
type sessionData struct {
	User   *auth.User      `json:"user,omitempty"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// handleRegister creates a new account and logs it in.
//
// The optional role field is accepted when it names a known role;
// anything else defaults to "user".
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, tokens, err := s.auth.Register(r.Context(), req)
	if err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("register failed", "error", err)
			writeInternalError(w, "failed to register")
		}
		return
	}

	s.auditLog(audit.ActionRegister, audit.EntityUser, user.ID, user.ID, nil)
	respondData(w, http.StatusCreated, "account created", sessionData{User: user, Tokens: tokens})
}

// handleLogin authenticates credentials and issues a token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, tokens, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("login failed", "error", err)
			writeInternalError(w, "failed to log in")
		}
		return
	}

	s.auditLog(audit.ActionLogin, audit.EntityUser, user.ID, user.ID, nil)
	respondData(w, http.StatusOK, "logged in", sessionData{User: user, Tokens: tokens})
}

// handleRefresh exchanges a refresh token for a new token pair. The old
// refresh token is invalidated even if the client keeps a copy.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	tokens, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("refresh failed", "error", err)
			writeInternalError(w, "failed to refresh session")
		}
		return
	}

	respondData(w, http.StatusOK, "session refreshed", sessionData{Tokens: tokens})
}

// handleLogout clears the caller's refresh token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	if err := s.auth.Logout(r.Context(), claims.Subject); err != nil {
		// A vanished account still counts as logged out.
		if !errors.Is(err, auth.ErrUserNotFound) {
			s.logger.Error("logout failed", "error", err)
			writeInternalError(w, "failed to log out")
			return
		}
	}

	s.auditLog(audit.ActionLogout, audit.EntityUser, claims.Subject, claims.Subject, nil)
	respondMessage(w, http.StatusOK, "logged out")
}

// handleMe returns the caller's account.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	user, err := s.userRepo.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("get current user failed", "error", err)
			writeInternalError(w, "failed to load account")
		}
		return
	}

	respondData(w, http.StatusOK, "ok", map[string]any{"user": user})
}

// handleChangePassword rotates the caller's password and issues fresh
// tokens, logging out any other session.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	tokens, err := s.auth.ChangePassword(r.Context(), claims.Subject,
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("change password failed", "error", err)
			writeInternalError(w, "failed to change password")
		}
		return
	}

	s.auditLog(audit.ActionPasswordChange, audit.EntityUser, claims.Subject, claims.Subject, nil)
	respondData(w, http.StatusOK, "password changed", sessionData{Tokens: tokens})
}
