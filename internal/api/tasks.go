package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mwilding/taskdeck/internal/audit"
	"github.com/mwilding/taskdeck/internal/auth"
	"github.com/mwilding/taskdeck/internal/task"
)

type createTaskRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      task.Status   `json:"status,omitempty"`
	Priority    task.Priority `json:"priority,omitempty"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
}

type updateTaskRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *task.Status   `json:"status,omitempty"`
	Priority    *task.Priority `json:"priority,omitempty"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	ClearDue    bool           `json:"clear_due_date,omitempty"`
	Tags        *[]string      `json:"tags,omitempty"`
}

// ownerScope returns the owner restriction for the caller: admins operate
// unscoped, everyone else is confined to their own tasks.
func ownerScope(claims *auth.AccessClaims) string {
	if claims.Role == auth.RoleAdmin {
		return ""
	}
	return claims.Subject
}

// handleListTasks returns a filtered, sorted, paginated page of tasks.
//
// Query parameters:
//   - status, priority, tag: exact-match filters
//   - search: substring match over title and description
//   - page, limit: pagination (default page 1, limit 20, max 100)
//   - sort: created_at, updated_at, due_date, title, priority
//   - order: asc or desc (default desc)
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	q := r.URL.Query()

	filter := task.Filter{
		OwnerID: ownerScope(claims),
		Tag:     q.Get("tag"),
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortAsc: q.Get("order") == "asc",
	}

	if v := q.Get("status"); v != "" {
		if !task.IsValidStatus(task.Status(v)) {
			writeBadRequest(w, "status must be one of: pending, in-progress, completed")
			return
		}
		filter.Status = task.Status(v)
	}
	if v := q.Get("priority"); v != "" {
		if !task.IsValidPriority(task.Priority(v)) {
			writeBadRequest(w, "priority must be one of: low, medium, high")
			return
		}
		filter.Priority = task.Priority(v)
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	result, err := s.taskRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list tasks failed", "error", err)
		writeInternalError(w, "failed to list tasks")
		return
	}

	respondData(w, http.StatusOK, "ok", result)
}

// handleCreateTask creates a task owned by the caller.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	t := &task.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		OwnerID:     claims.Subject,
	}

	if err := task.Validate(t); err != nil {
		if !writeDomainError(w, err) {
			writeBadRequest(w, "invalid task")
		}
		return
	}

	if err := s.taskRepo.Create(r.Context(), t); err != nil {
		s.logger.Error("create task failed", "error", err)
		writeInternalError(w, "failed to create task")
		return
	}

	s.auditLog(audit.ActionCreate, audit.EntityTask, t.ID, claims.Subject, map[string]any{
		"title": t.Title,
	})
	respondData(w, http.StatusCreated, "task created", map[string]any{"task": t})
}

// handleGetTask returns a single task. Out-of-scope tasks are
// indistinguishable from missing ones.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	id := chi.URLParam(r, "id")

	t, err := s.taskRepo.Get(r.Context(), id, ownerScope(claims))
	if err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("get task failed", "task_id", id, "error", err)
			writeInternalError(w, "failed to load task")
		}
		return
	}

	respondData(w, http.StatusOK, "ok", map[string]any{"task": t})
}

// handleUpdateTask applies a partial update to a task. Only fields present
// in the body change; completed_at is reconciled by the repository.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	scope := ownerScope(claims)
	t, err := s.taskRepo.Get(r.Context(), id, scope)
	if err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("get task failed", "task_id", id, "error", err)
			writeInternalError(w, "failed to load task")
		}
		return
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.ClearDue {
		t.DueDate = nil
	}
	if req.Tags != nil {
		t.Tags = *req.Tags
	}

	if err := task.Validate(t); err != nil {
		if !writeDomainError(w, err) {
			writeBadRequest(w, "invalid task")
		}
		return
	}

	if err := s.taskRepo.Update(r.Context(), t, scope); err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("update task failed", "task_id", id, "error", err)
			writeInternalError(w, "failed to update task")
		}
		return
	}

	s.auditLog(audit.ActionUpdate, audit.EntityTask, t.ID, claims.Subject, nil)
	respondData(w, http.StatusOK, "task updated", map[string]any{"task": t})
}

// handleDeleteTask removes a single task.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := s.taskRepo.Delete(r.Context(), id, ownerScope(claims)); err != nil {
		if !writeDomainError(w, err) {
			s.logger.Error("delete task failed", "task_id", id, "error", err)
			writeInternalError(w, "failed to delete task")
		}
		return
	}

	s.auditLog(audit.ActionDelete, audit.EntityTask, id, claims.Subject, nil)
	respondMessage(w, http.StatusOK, "task deleted")
}

// handleDeleteAllTasks bulk-deletes the caller's own tasks. Admins clear
// their own list too — wiping another account's tasks goes through the user
// management surface.
func (s *Server) handleDeleteAllTasks(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	n, err := s.taskRepo.DeleteAllForOwner(r.Context(), claims.Subject)
	if err != nil {
		s.logger.Error("bulk delete tasks failed", "error", err)
		writeInternalError(w, "failed to delete tasks")
		return
	}

	s.auditLog(audit.ActionDelete, audit.EntityTask, "", claims.Subject, map[string]any{
		"deleted": n,
	})
	respondData(w, http.StatusOK, "tasks deleted", map[string]any{"deleted": n})
}

// handleTaskStats returns task counts by status and priority plus overdue
// totals, scoped like every other task read.
func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	stats, err := s.taskRepo.Stats(r.Context(), ownerScope(claims))
	if err != nil {
		s.logger.Error("task stats failed", "error", err)
		writeInternalError(w, "failed to load stats")
		return
	}

	respondData(w, http.StatusOK, "ok", map[string]any{"stats": stats})
}
