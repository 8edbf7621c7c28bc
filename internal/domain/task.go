// Package domain defines the core entities of SlothOrganize.
// These models are independent of storage and transport and are the
// canonical data structures shared by every layer of the BFA.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// ============================================================
// Tasks
// ============================================================

// Priority is the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts both the canonical values and the Portuguese
// labels produced by the AI service ("Baixa", "Média", "Alta").
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "baixa":
		return PriorityLow, true
	case "medium", "média", "media":
		return PriorityMedium, true
	case "high", "alta":
		return PriorityHigh, true
	}
	return "", false
}

// UnmarshalJSON normalizes legacy labels on decode.
func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if parsed, ok := ParsePriority(s); ok {
		*p = parsed
		return nil
	}
	*p = Priority(s)
	return nil
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Next cycles low -> medium -> high -> low.
func (p Priority) Next() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityLow
	}
}

// Feeling is the reaction recorded when a task is completed.
type Feeling string

const (
	FeelingDrained   Feeling = "😫"
	FeelingNeutral   Feeling = "😐"
	FeelingContent   Feeling = "🙂"
	FeelingDelighted Feeling = "😁"
)

// Valid reports whether f is one of the four reactions.
func (f Feeling) Valid() bool {
	switch f {
	case FeelingDrained, FeelingNeutral, FeelingContent, FeelingDelighted:
		return true
	}
	return false
}

// Subtask is a checklist step owned by a Task.
type Subtask struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Completed        bool   `json:"completed"`
	EstimatedMinutes *int   `json:"estimatedMinutes,omitempty"`
	Difficulty       *int   `json:"difficulty,omitempty"`
}

// Task is a unit of work tracked by the user.
//
// When Completed is false, CompletedAt and Feeling are always empty.
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Priority         Priority   `json:"priority"`
	Completed        bool       `json:"completed"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	DueTime          string     `json:"dueTime,omitempty"` // HH:MM
	EstimatedMinutes *int       `json:"estimatedMinutes,omitempty"`
	Difficulty       *int       `json:"difficulty,omitempty"` // 1-5
	Subtasks         []Subtask  `json:"subtasks"`
	Category         string     `json:"category,omitempty"`
	Feeling          Feeling    `json:"feeling,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate store internals.
func (t Task) Clone() Task {
	c := t
	c.Subtasks = make([]Subtask, len(t.Subtasks))
	copy(c.Subtasks, t.Subtasks)
	return c
}

// NewTask carries the fields a caller may set when creating a task.
type NewTask struct {
	Title            string     `json:"title" validate:"required"`
	Description      string     `json:"description,omitempty"`
	Priority         Priority   `json:"priority,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	DueTime          string     `json:"dueTime,omitempty"`
	EstimatedMinutes *int       `json:"estimatedMinutes,omitempty" validate:"omitempty,min=0"`
	Difficulty       *int       `json:"difficulty,omitempty" validate:"omitempty,min=1,max=5"`
	Category         string     `json:"category,omitempty"`
	Subtasks         []string   `json:"subtasks,omitempty"`
}

// TaskPatch is a partial update. Nil fields are left untouched.
// Completion is not patchable; it only changes through a toggle.
type TaskPatch struct {
	Title            *string    `json:"title,omitempty"`
	Description      *string    `json:"description,omitempty"`
	Priority         *Priority  `json:"priority,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	DueTime          *string    `json:"dueTime,omitempty"`
	EstimatedMinutes *int       `json:"estimatedMinutes,omitempty"`
	Difficulty       *int       `json:"difficulty,omitempty"`
	Category         *string    `json:"category,omitempty"`
}

// TaskFilter selects a derived view of the task list.
type TaskFilter string

const (
	FilterAll       TaskFilter = "all"
	FilterActive    TaskFilter = "active"
	FilterScheduled TaskFilter = "scheduled"
	FilterCompleted TaskFilter = "completed"
)

// TaskStats summarizes progress over the whole collection.
type TaskStats struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

// Valid reports whether f names a known view. Empty means all.
func (f TaskFilter) Valid() bool {
	switch f {
	case "", FilterAll, FilterActive, FilterScheduled, FilterCompleted:
		return true
	}
	return false
}

// TaskSummary is returned by GET /v1/tasks/stats.
type TaskSummary struct {
	TaskStats
	Categories []string `json:"categories"`
}

// ToggleRequest is the optional body of POST /v1/tasks/{id}/toggle.
type ToggleRequest struct {
	Feeling Feeling `json:"feeling,omitempty"`
}

// ReorderRequest is the body of POST /v1/tasks/reorder.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

// SubtaskRequest is the body of POST /v1/tasks/{id}/subtasks.
type SubtaskRequest struct {
	Title string `json:"title"`
}

// EnhanceStrategy selects how an AI enhancement is applied to a task.
type EnhanceStrategy string

const (
	// EnhanceSubtasks appends detailed generated subtasks and a tip.
	EnhanceSubtasks EnhanceStrategy = "subtasks"
	// EnhanceFull also fills description, category and priority.
	EnhanceFull EnhanceStrategy = "full"
)

// EnhanceRequest is the optional body of POST /v1/tasks/{id}/enhance.
type EnhanceRequest struct {
	Strategy EnhanceStrategy `json:"strategy,omitempty"`
}
