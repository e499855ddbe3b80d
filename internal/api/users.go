package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mwilding/taskdeck/internal/audit"
	"github.com/mwilding/taskdeck/internal/auth"
)

type createUserRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role,omitempty"`
}

type updateUserRequest struct {
	Name  *string    `json:"name,omitempty"`
	Email *string    `json:"email,omitempty"`
	Role  *auth.Role `json:"role,omitempty"`
}

// defaultUserPageSize is the page size for GET /users when none is given.
const defaultUserPageSize = 20

// handleListUsers returns a page of accounts. Admin only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	limit := defaultUserPageSize
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	users, total, err := s.userRepo.List(r.Context(), (page-1)*limit, limit)
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	respondData(w, http.StatusOK, "ok", map[string]any{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// handleCreateUser creates an account with an explicit role. Admin only.
// Unlike self-registration, no session is issued for the new account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Role == "" {
		req.Role = auth.RoleUser
	}
	if !auth.IsValidRole(req.Role) {
		writeBadRequest(w, "role must be one of: user, admin")
		return
	}

	if err := auth.ValidateRegistration(auth.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.Password,
	}); err != nil {
		if !writeDomainError(w, err) {
			writeBadRequest(w, "invalid account")
		}
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	user := &auth.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.userRepo.Create(r.Context(), user); err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("create user failed", "error", err)
			writeInternalError(w, "failed to create user")
		}
		return
	}

	s.logger.Info("user created", "user_id", user.ID, "role", string(user.Role), "created_by", claims.Subject)
	s.auditLog(audit.ActionCreate, audit.EntityUser, user.ID, claims.Subject, map[string]any{
		"role": string(user.Role),
	})
	respondData(w, http.StatusCreated, "user created", map[string]any{"user": user})
}

// handleGetUser returns a single account. Admin only.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("get user failed", "user_id", id, "error", err)
			writeInternalError(w, "failed to load user")
		}
		return
	}

	respondData(w, http.StatusOK, "ok", map[string]any{"user": user})
}

// handleUpdateUser applies a partial update to an account. Admin only.
//
// An admin cannot change their own role — demoting the last admin would
// lock the management surface. Another admin has to do it.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("get user failed", "user_id", id, "error", err)
			writeInternalError(w, "failed to load user")
		}
		return
	}

	// Restating the current role is a no-op, not a self-demotion.
	if req.Role != nil && id == claims.Subject && *req.Role != user.Role {
		writeDomainError(w, auth.ErrSelfAction)
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		if !auth.IsValidEmail(auth.NormalizeEmail(*req.Email)) {
			writeBadRequest(w, "email must be a valid email address")
			return
		}
		user.Email = *req.Email
	}
	if req.Role != nil {
		if !auth.IsValidRole(*req.Role) {
			writeBadRequest(w, "role must be one of: user, admin")
			return
		}
		user.Role = *req.Role
	}

	if err := s.userRepo.Update(r.Context(), user); err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("update user failed", "user_id", id, "error", err)
			writeInternalError(w, "failed to update user")
		}
		return
	}

	s.auditLog(audit.ActionUpdate, audit.EntityUser, user.ID, claims.Subject, nil)
	respondData(w, http.StatusOK, "user updated", map[string]any{"user": user})
}

// handleDeleteUser removes an account and all its tasks. Admin only.
//
// Self-deletion is refused; the tasks cascade in the same transaction as
// the account row, so no orphans survive a crash.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if id == claims.Subject {
		writeDomainError(w, auth.ErrSelfAction)
		return
	}

	if err := s.userRepo.Delete(r.Context(), id); err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("delete user failed", "user_id", id, "error", err)
			writeInternalError(w, "failed to delete user")
		}
		return
	}

	s.logger.Info("user deleted", "user_id", id, "deleted_by", claims.Subject)
	s.auditLog(audit.ActionDelete, audit.EntityUser, id, claims.Subject, nil)
	respondMessage(w, http.StatusOK, "user deleted")
}
