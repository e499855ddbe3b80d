package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pagination bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filter narrows a List query. Zero values mean "no restriction" for each
// field. OwnerID is the owner scope: empty means unrestricted.
type Filter struct {
	OwnerID  string
	Status   Status
	Priority Priority
	Tag      string
	Search   string
	Page     int
	Limit    int
	SortBy   string
	SortAsc  bool
}

// ListResult is a page of tasks plus the total match count for pagination.
type ListResult struct {
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// sortColumns whitelists the sortable columns. User input never reaches the
// ORDER BY clause directly.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"title":      "title",
	"priority": `CASE priority
		WHEN 'high' THEN 0
		WHEN 'medium' THEN 1
		ELSE 2 END`,
}

// Repository defines the interface for task persistence operations.
// All reads and writes take an owner scope: a non-empty ownerID restricts
// the operation to that owner's tasks, an empty one is unrestricted.
type Repository interface {
	// Create inserts a new task, generating an ID and applying defaults.
	Create(ctx context.Context, t *Task) error

	// Get retrieves a task by ID within the owner scope.
	// Returns ErrTaskNotFound if the task does not exist or is out of scope.
	Get(ctx context.Context, id, ownerID string) (*Task, error)

	// List retrieves a filtered, sorted, paginated page of tasks.
	List(ctx context.Context, f Filter) (*ListResult, error)

	// Update modifies an existing task within the owner scope.
	// Returns ErrTaskNotFound if the task does not exist or is out of scope.
	Update(ctx context.Context, t *Task, ownerID string) error

	// Delete removes a task by ID within the owner scope.
	// Returns ErrTaskNotFound if the task does not exist or is out of scope.
	Delete(ctx context.Context, id, ownerID string) error

	// DeleteAllForOwner removes every task owned by the given account and
	// returns the number deleted.
	DeleteAllForOwner(ctx context.Context, ownerID string) (int, error)

	// Stats summarises tasks within the owner scope.
	Stats(ctx context.Context, ownerID string) (*Stats, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed task repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const taskColumns = `id, title, description, status, priority, due_date, tags,
	owner_id, completed_at, created_at, updated_at`

// Create inserts a new task.
func (r *SQLiteRepository) Create(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = "tsk-" + uuid.NewString()[:8]
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	now := time.Now().UTC().Truncate(time.Second)
	t.CreatedAt = now
	t.UpdatedAt = now
	applyCompletion(t, now)

	tagsJSON, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, due_date, tags, owner_id, completed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, nullableString(t.Description), string(t.Status), string(t.Priority),
		nullableTime(t.DueDate), string(tagsJSON), t.OwnerID, nullableTime(t.CompletedAt),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// Get retrieves a task by ID within the owner scope.
func (r *SQLiteRepository) Get(ctx context.Context, id, ownerID string) (*Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ?"
	args := []any{id}
	if ownerID != "" {
		query += " AND owner_id = ?"
		args = append(args, ownerID)
	}

	t, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return t, nil
}

// List retrieves a filtered, sorted, paginated page of tasks. The total
// count reflects the filter, not the page.
func (r *SQLiteRepository) List(ctx context.Context, f Filter) (*ListResult, error) {
	where, args := buildFilter(f)

	var total int
	countQuery := "SELECT COUNT(*) FROM tasks" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	orderBy, ok := sortColumns[f.SortBy]
	if !ok {
		orderBy = "created_at"
	}
	direction := "DESC"
	if f.SortAsc {
		direction = "ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM tasks%s ORDER BY %s %s LIMIT ? OFFSET ?",
		taskColumns, where, orderBy, direction)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}

	return &ListResult{Tasks: tasks, Total: total, Page: page, Limit: limit}, nil
}

// Update modifies an existing task within the owner scope. The completed_at
// timestamp is reconciled with the status before writing.
func (r *SQLiteRepository) Update(ctx context.Context, t *Task, ownerID string) error {
	now := time.Now().UTC().Truncate(time.Second)
	t.UpdatedAt = now
	applyCompletion(t, now)

	if t.Tags == nil {
		t.Tags = []string{}
	}
	tagsJSON, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	query := `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?,
		due_date = ?, tags = ?, completed_at = ?, updated_at = ? WHERE id = ?`
	args := []any{
		t.Title, nullableString(t.Description), string(t.Status), string(t.Priority),
		nullableTime(t.DueDate), string(tagsJSON), nullableTime(t.CompletedAt),
		now.Format(time.RFC3339), t.ID,
	}
	if ownerID != "" {
		query += " AND owner_id = ?"
		args = append(args, ownerID)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task by ID within the owner scope.
func (r *SQLiteRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := "DELETE FROM tasks WHERE id = ?"
	args := []any{id}
	if ownerID != "" {
		query += " AND owner_id = ?"
		args = append(args, ownerID)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteAllForOwner removes every task owned by the given account.
func (r *SQLiteRepository) DeleteAllForOwner(ctx context.Context, ownerID string) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE owner_id = ?", ownerID)
	if err != nil {
		return 0, fmt.Errorf("deleting tasks for owner: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return int(rows), nil
}

// Stats summarises tasks within the owner scope: totals by status and
// priority plus the overdue count (past due date and not completed).
func (r *SQLiteRepository) Stats(ctx context.Context, ownerID string) (*Stats, error) {
	where := ""
	args := []any{}
	if ownerID != "" {
		where = " WHERE owner_id = ?"
		args = append(args, ownerID)
	}

	stats := &Stats{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}
	for _, s := range ValidStatuses {
		stats.ByStatus[string(s)] = 0
	}
	for _, p := range ValidPriorities {
		stats.ByPriority[string(p)] = 0
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT status, priority, COUNT(*) FROM tasks"+where+" GROUP BY status, priority", args...)
	if err != nil {
		return nil, fmt.Errorf("querying task stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, priority string
		var count int
		if err := rows.Scan(&status, &priority, &count); err != nil {
			return nil, fmt.Errorf("scanning stats row: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stats: %w", err)
	}

	overdueQuery := "SELECT COUNT(*) FROM tasks" + where
	if where == "" {
		overdueQuery += " WHERE"
	} else {
		overdueQuery += " AND"
	}
	overdueQuery += " due_date IS NOT NULL AND due_date < ? AND status != ?"
	overdueArgs := append(args, time.Now().UTC().Format(time.RFC3339), string(StatusCompleted))

	if err := r.db.QueryRowContext(ctx, overdueQuery, overdueArgs...).Scan(&stats.Overdue); err != nil {
		return nil, fmt.Errorf("counting overdue tasks: %w", err)
	}

	return stats, nil
}

// buildFilter assembles the WHERE clause and args shared by the count and
// page queries.
func buildFilter(f Filter) (string, []any) {
	clauses := []string{}
	args := []any{}

	if f.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.Tag != "" {
		// Tags are stored as a JSON array of strings; a quoted LIKE match
		// finds exact membership without a JSON extension.
		clauses = append(clauses, "tags LIKE ?")
		args = append(args, `%"`+f.Tag+`"%`)
	}
	if f.Search != "" {
		clauses = append(clauses, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// applyCompletion reconciles completed_at with the status: set on entering
// completed, cleared otherwise. An already-set timestamp on a completed task
// is preserved.
func applyCompletion(t *Task, now time.Time) {
	switch {
	case t.Status == StatusCompleted && t.CompletedAt == nil:
		t.CompletedAt = &now
	case t.Status != StatusCompleted:
		t.CompletedAt = nil
	}
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask scans a task from a row or rows cursor.
func scanTask(s scanner) (*Task, error) {
	var t Task
	var description, dueDate, completedAt sql.NullString
	var status, priority, tagsJSON string
	var createdAt, updatedAt string

	err := s.Scan(&t.ID, &t.Title, &description, &status, &priority,
		&dueDate, &tagsJSON, &t.OwnerID, &completedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	t.Priority = Priority(priority)
	if description.Valid {
		t.Description = description.String
	}
	if dueDate.Valid {
		if parsed, err := time.Parse(time.RFC3339, dueDate.String); err == nil {
			t.DueDate = &parsed
		}
	}
	if completedAt.Valid {
		if parsed, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			t.CompletedAt = &parsed
		}
	}

	if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil {
		return nil, fmt.Errorf("unmarshalling tags: %w", err)
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &t, nil
}

// Helper functions.

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
