package tasksvc

import (
	"errors"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// DateLayout is the calendar format of Task.DueDate.
const DateLayout = "2006-01-02"

// Task is a to-do record. ID, Owner and CreatedAt are set once at creation.
type Task struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Priority    Priority  `json:"priority"`
	DueDate     string    `json:"due_date"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Completed   bool      `json:"completed"`
}

// Fields are the caller-supplied values of a new task.
type Fields struct {
	Name        string `json:"name"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	Description string `json:"description"`
}

// Patch is a partial edit; nil fields are left unchanged.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Apply copies the present fields onto t.
func (p Patch) Apply(t *Task) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Priority != nil {
		t.Priority = Priority(*p.Priority)
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TaskRepository holds each owner's tasks in insertion order. Callers are
// expected to have authenticated the owner already.
type TaskRepository interface {
	Create(owner string, f Fields) (Task, error)
	FindAll(owner string) ([]Task, error)
	Find(owner, taskID string) (Task, error)
	Update(owner, taskID string, apply func(*Task) error) (Task, error)
	Delete(owner, taskID string) error
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAuthFailure     = errors.New("invalid credentials")
	ErrTaskNotFound    = errors.New("task not found")
)
