package task

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

// Task statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// ValidStatuses lists all recognised task statuses.
var ValidStatuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// IsValidStatus reports whether s is a recognised status.
func IsValidStatus(s Status) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Priority is the urgency level of a task.
type Priority string

// Task priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriorities lists all recognised task priorities.
var ValidPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// IsValidPriority reports whether p is a recognised priority.
func IsValidPriority(p Priority) bool {
	for _, v := range ValidPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// Task represents a single item of work owned by an account.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags"`
	OwnerID     string     `json:"owner_id"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Stats summarises a set of tasks for dashboard views.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	Overdue    int            `json:"overdue"`
}

// Domain errors for the task package.
var (
	// ErrTaskNotFound is returned when a task ID does not exist or is
	// outside the caller's owner scope. The two cases are deliberately
	// indistinguishable.
	ErrTaskNotFound = errors.New("task: not found")

	// ErrInvalidTask is returned when task validation fails.
	ErrInvalidTask = errors.New("task: invalid")
)
