// Package task implements the task model and its SQLite persistence.
//
// Tasks belong to exactly one owner account. Every repository read and write
// takes an owner scope: a non-empty scope restricts the operation to tasks
// owned by that account, and an empty scope means unrestricted access (used
// by admin callers). Scoping at the repository level means a caller cannot
// forget it at a higher layer — a regular user's query physically cannot
// touch another owner's rows.
//
// The completed_at timestamp is maintained by the repository on status
// transitions: it is set when a task enters the completed status and cleared
// when it leaves it. Callers never write completed_at directly.
package task
