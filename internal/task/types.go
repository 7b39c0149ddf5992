package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("task: not found")
	ErrInvalidInput = errors.New("task: invalid input")
)

// Status is the kanban column a task sits in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// ParseStatus validates a status value.
func ParseStatus(v string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(v))) {
	case StatusTodo:
		return StatusTodo, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusDone:
		return StatusDone, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, v)
	}
}

// Priority orders tasks within a column.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority validates a priority value.
func ParsePriority(v string) (Priority, error) {
	switch Priority(strings.TrimSpace(strings.ToLower(v))) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, v)
	}
}

// Category is a coarse label for filtering.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryShopping Category = "shopping"
	CategoryHealth   Category = "health"
	CategoryOther    Category = "other"
)

// ParseCategory validates a category value.
func ParseCategory(v string) (Category, error) {
	switch Category(strings.TrimSpace(strings.ToLower(v))) {
	case CategoryWork:
		return CategoryWork, nil
	case CategoryPersonal:
		return CategoryPersonal, nil
	case CategoryShopping:
		return CategoryShopping, nil
	case CategoryHealth:
		return CategoryHealth, nil
	case CategoryOther:
		return CategoryOther, nil
	default:
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, v)
	}
}

// Task belongs to exactly one organization; visibility follows the
// organization scope of the requesting identity.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	Category       Category   `json:"category"`
	Order          int        `json:"order"`
	OwnerID        string     `json:"owner_id"`
	OrganizationID string     `json:"organization_id"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Filter narrows task listings. Zero values match everything.
type Filter struct {
	Status   Status
	Category Category
}

// Update carries a partial task mutation; nil fields stay untouched.
type Update struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	Category    *Category
	DueDate     *time.Time
}
