package tasksvc

import (
	"errors"
	"time"
)

// Check names the validation rule a task failed.
type Check string

const (
	CheckRequired   Check = "required"
	CheckPriority   Check = "priority"
	CheckDateFormat Check = "date_format"
	CheckDatePast   Check = "date_past"
)

var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Check Check
}

func (e *ValidationError) Error() string {
	switch e.Check {
	case CheckRequired:
		return "all fields are required"
	case CheckPriority:
		return "priority must be one of High, Medium, Low"
	case CheckDateFormat:
		return "invalid date format, expected YYYY-MM-DD"
	case CheckDatePast:
		return "due date cannot be in the past"
	}
	return ErrValidation.Error()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(c Check) error { return &ValidationError{Check: c} }

// Validate checks the fields of a new task, first failure wins, and returns
// them normalized.
func Validate(f Fields, now time.Time) (Fields, error) {
	if f.Name == "" || f.Priority == "" || f.DueDate == "" || f.Description == "" {
		return Fields{}, invalid(CheckRequired)
	}
	if !Priority(f.Priority).Valid() {
		return Fields{}, invalid(CheckPriority)
	}
	due, err := validateDueDate(f.DueDate, now)
	if err != nil {
		return Fields{}, err
	}
	f.DueDate = due
	return f, nil
}

// ValidatePatch checks only the fields p changes relative to current.
// Completion is never validated and the description may be cleared.
func ValidatePatch(current Task, p Patch, now time.Time) error {
	nameChanged := p.Name != nil && *p.Name != current.Name
	dueChanged := p.DueDate != nil && *p.DueDate != current.DueDate
	priorityCleared := p.Priority != nil && *p.Priority == ""

	if (nameChanged && *p.Name == "") || (dueChanged && *p.DueDate == "") || priorityCleared {
		return invalid(CheckRequired)
	}
	if p.Priority != nil && Priority(*p.Priority) != current.Priority && !Priority(*p.Priority).Valid() {
		return invalid(CheckPriority)
	}
	if dueChanged {
		if _, err := validateDueDate(*p.DueDate, now); err != nil {
			return err
		}
	}
	return nil
}

func validateDueDate(s string, now time.Time) (string, error) {
	if s == "" {
		return "", invalid(CheckRequired)
	}
	due, err := time.ParseInLocation(DateLayout, s, now.Location())
	if err != nil {
		return "", invalid(CheckDateFormat)
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if due.Before(today) {
		return "", invalid(CheckDatePast)
	}
	return due.Format(DateLayout), nil
}
