package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	SignalMin = 0
	SignalMax = 10
)

// Task is an item on the can-do list. Impact and Urgency are optional 0-10
// signals feeding the recommendation scorer; DurationMinutes feeds the free
// slot finder when the task is scheduled onto a calendar.
type Task struct {
	ID              string
	Content         string
	ProjectID       string
	ParentTaskID    string
	DurationMinutes int
	Impact          *int
	Urgency         *int
	DueDate         *time.Time
	BlockedBy       string
	MyDay           bool
	Completed       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: task id is required", ErrValidation)
	}
	if strings.TrimSpace(t.Content) == "" {
		return fmt.Errorf("%w: task content is required", ErrValidation)
	}
	if t.DurationMinutes < 0 {
		return fmt.Errorf("%w: task duration must not be negative", ErrValidation)
	}
	if err := validateSignal("impact", t.Impact); err != nil {
		return err
	}
	if err := validateSignal("urgency", t.Urgency); err != nil {
		return err
	}
	return nil
}

// HasSignal reports whether the task carries at least one ranking signal.
func (t Task) HasSignal() bool {
	return t.Impact != nil || t.Urgency != nil || t.DueDate != nil
}

func validateSignal(name string, v *int) error {
	if v == nil {
		return nil
	}
	if *v < SignalMin || *v > SignalMax {
		return fmt.Errorf("%w: task %s must be between %d and %d, got %d", ErrValidation, name, SignalMin, SignalMax, *v)
	}
	return nil
}

// Project groups tasks into a hierarchy.
type Project struct {
	ID        string
	Name      string
	ParentID  string
	Collapsed bool
	Order     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: project id is required", ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: project name is required", ErrValidation)
	}
	return nil
}
