// internal/models/task.go
package models

import "time"

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	StatusToDo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusDone       TaskStatus = "Done"
)

// Valid is a pure membership check. Any status may follow any other.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents the structure of a task in the system.
// AssignedTo and CreatedBy are filled in by the store on reads.
type Task struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	AssignedToID int64        `json:"-"`
	CreatedByID  int64        `json:"-"`
	AssignedTo   *UserRef     `json:"assignedTo"`
	CreatedBy    *UserRef     `json:"createdBy"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	DueDate      time.Time    `json:"dueDate"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// TaskFilter is a conjunction; nil fields are unconstrained.
type TaskFilter struct {
	Status     *TaskStatus
	AssignedTo *int64
	Priority   *TaskPriority
}

// TaskInput is the validated payload of a create request.
type TaskInput struct {
	Title        string
	Description  string
	AssignedToID int64
	Priority     TaskPriority
	DueDate      time.Time
}

// TaskUpdate is a partial update; nil means "not submitted".
type TaskUpdate struct {
	Title        *string
	Description  *string
	AssignedToID *int64
	Status       *TaskStatus
	Priority     *TaskPriority
	DueDate      *time.Time
}

func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.AssignedToID == nil &&
		u.Status == nil && u.Priority == nil && u.DueDate == nil
}

// Apply copies submitted fields onto t.
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.AssignedToID != nil {
		t.AssignedToID = *u.AssignedToID
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.DueDate != nil {
		t.DueDate = *u.DueDate
	}
}
