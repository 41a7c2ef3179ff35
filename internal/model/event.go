package model

import (
	"fmt"
	"strings"
	"time"
)

// Event is a persisted calendar record: either a standalone event or the
// anchor of a recurring series. Times are local wall-clock instants.
type Event struct {
	ID            string
	CalendarID    string
	Title         string
	Description   string
	Location      string
	Start         time.Time
	End           time.Time
	AllDay        bool
	Recurrence    *RecurrenceRule
	Exceptions    ExceptionMap
	GroupEvent    bool
	ParentGroupID string
	TaskID        string

	// ICSRule holds the raw RRULE of an event imported from an ICS feed.
	// Such events live on read-only calendars, are expanded via the ics
	// package and never pass through the series mutator.
	ICSRule string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: event id is required", ErrValidation)
	}
	if strings.TrimSpace(e.CalendarID) == "" {
		return fmt.Errorf("%w: event calendar id is required", ErrValidation)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: event title is required", ErrValidation)
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return fmt.Errorf("%w: event start and end are required", ErrValidation)
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("%w: event end must be after start", ErrValidation)
	}
	if e.Recurrence != nil {
		if err := e.Recurrence.Validate(); err != nil {
			return err
		}
		if e.Recurrence.Until != nil && e.Recurrence.Until.Before(e.Start) {
			return fmt.Errorf("%w: until precedes series start", ErrInvalidRule)
		}
	}
	return nil
}

// IsRecurring reports whether the event anchors a series with occurrences
// beyond itself.
func (e Event) IsRecurring() bool {
	return e.Recurrence != nil && e.Recurrence.IsRecurring()
}

// Duration returns the span of a single occurrence.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Clone returns a deep copy. Mutation code clones before editing so that
// caller-held snapshots are never modified in place.
func (e Event) Clone() Event {
	out := e
	if e.Recurrence != nil {
		r := e.Recurrence.Clone()
		out.Recurrence = &r
	}
	out.Exceptions = e.Exceptions.Clone()
	return out
}

// Occurrence is one concrete instance derived from expanding an anchor. It is
// never persisted; its identity is (SeriesID, original start).
type Occurrence struct {
	SeriesID    string
	CalendarID  string
	Title       string
	Description string
	Location    string
	AllDay      bool
	Start       time.Time
	End         time.Time
	TaskID      string

	// OriginalStart is the un-shifted instant the occurrence was generated
	// at; it differs from Start only when an exception moved the occurrence.
	OriginalStart time.Time

	IsException bool
	IsCancelled bool
}

// Calendar groups events and controls their visibility to the planner.
type Calendar struct {
	ID        string
	Name      string
	Color     string
	Visible   bool
	Default   bool
	ReadOnly  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Calendar) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: calendar id is required", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: calendar name is required", ErrValidation)
	}
	return nil
}
