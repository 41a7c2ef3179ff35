package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planline/planline/internal/model"
)

// Result is the full replacement set a mutation produces. Callers persist
// Updated as whole records and remove Deleted; the mutator never mutates the
// snapshots it was given.
type Result struct {
	Updated []model.Event
	Deleted []string
}

// Mutator applies occurrence-scoped edits to a series without materializing
// future occurrences. Time and identity are injected so mutations are
// deterministic under test. Callers must not run two mutations against the
// same anchor concurrently; the mutator assumes one in flight per series.
type Mutator struct {
	NewID func() string
	Now   func() time.Time
}

func NewMutator() *Mutator {
	return &Mutator{NewID: uuid.NewString, Now: time.Now}
}

// DeleteOccurrence cancels the single occurrence at occStart by recording a
// skip exception. When the target is the anchor's own start and the series
// has no later live occurrence, the anchor itself is deleted instead.
func (m *Mutator) DeleteOccurrence(anchor model.Event, occStart time.Time) (Result, error) {
	if err := m.checkOccurrence(anchor, occStart); err != nil {
		return Result{}, err
	}
	if occStart.Equal(anchor.Start) {
		if _, ok := NextLiveStart(anchor, occStart, anchor.Exceptions); !ok {
			return Result{Deleted: []string{anchor.ID}}, nil
		}
	}
	updated := anchor.Clone()
	if updated.Exceptions == nil {
		updated.Exceptions = model.ExceptionMap{}
	}
	updated.Exceptions[model.OccurrenceKey(occStart)] = model.Exception{Skip: true}
	updated.UpdatedAt = m.Now()
	return Result{Updated: []model.Event{updated}}, nil
}

// DeleteThisAndFuture removes the occurrence at occStart and everything after
// it. At the anchor's own start this deletes the whole anchor; otherwise the
// rule's Until is shrunk to just before occStart and exceptions dated at or
// after occStart are discarded, since they no longer apply to anything.
func (m *Mutator) DeleteThisAndFuture(anchor model.Event, occStart time.Time) (Result, error) {
	if err := m.checkOccurrence(anchor, occStart); err != nil {
		return Result{}, err
	}
	if occStart.Equal(anchor.Start) {
		return Result{Deleted: []string{anchor.ID}}, nil
	}
	updated := truncateBefore(anchor, occStart)
	updated.UpdatedAt = m.Now()
	return Result{Updated: []model.Event{updated}}, nil
}

// ModifyOccurrence records a field-override exception for the occurrence at
// occStart, merging over any override already present. The anchor's shared
// fields are untouched.
func (m *Mutator) ModifyOccurrence(anchor model.Event, occStart time.Time, mods model.OccurrenceOverrides) (Result, error) {
	if err := m.checkOccurrence(anchor, occStart); err != nil {
		return Result{}, err
	}
	if err := checkModTimes(anchor, occStart, mods); err != nil {
		return Result{}, err
	}
	updated := anchor.Clone()
	if updated.Exceptions == nil {
		updated.Exceptions = model.ExceptionMap{}
	}
	key := model.OccurrenceKey(occStart)
	merged := mods.Clone()
	if existing, ok := updated.Exceptions[key]; ok && existing.Overrides != nil {
		merged = existing.Overrides.Merge(mods)
	}
	updated.Exceptions[key] = model.Exception{Overrides: &merged}
	updated.UpdatedAt = m.Now()
	return Result{Updated: []model.Event{updated}}, nil
}

// ModifyThisAndFuture splits the series at occStart: the original anchor is
// truncated to end just before it (or deleted outright when occStart is the
// anchor's own start) and a new anchor with fresh identity takes over from
// occStart, carrying mods merged over the occurrence's effective fields and
// preserving the original cadence and tail. Exceptions dated at or after
// occStart are re-homed onto the new anchor with their keys unchanged.
func (m *Mutator) ModifyThisAndFuture(anchor model.Event, occStart time.Time, mods model.OccurrenceOverrides, events []model.Event) (Result, error) {
	if !anchor.IsRecurring() {
		return m.ModifyAllInSeries(anchor, mods, events)
	}
	if err := m.checkOccurrence(anchor, occStart); err != nil {
		return Result{}, err
	}
	if err := checkModTimes(anchor, occStart, mods); err != nil {
		return Result{}, err
	}

	base, _, _ := materialize(anchor, occStart, anchor.Exceptions)

	next := anchor.Clone()
	next.ID = m.NewID()
	next.Title = base.Title
	next.Description = base.Description
	next.Location = base.Location
	next.Start = occStart
	next.End = occStart.Add(anchor.Duration())
	rule := anchor.Recurrence.Clone()
	next.Recurrence = &rule
	next.Exceptions = model.ExceptionMap{}
	next.CreatedAt = m.Now()
	next.UpdatedAt = m.Now()
	applyEventMods(&next, mods)

	// Re-home later exceptions; the one at occStart was absorbed into the
	// new anchor's base fields above.
	for k, ex := range anchor.Exceptions {
		kt, err := model.ParseOccurrenceKey(k)
		if err != nil || !kt.After(occStart) {
			continue
		}
		cp := ex
		if ex.Overrides != nil {
			ov := ex.Overrides.Clone()
			cp.Overrides = &ov
		}
		next.Exceptions[k] = cp
	}

	result := Result{Updated: []model.Event{next}}
	if occStart.Equal(anchor.Start) {
		result.Deleted = []string{anchor.ID}
	} else {
		truncated := truncateBefore(anchor, occStart)
		truncated.UpdatedAt = m.Now()
		result.Updated = append([]model.Event{truncated}, result.Updated...)
	}

	delta := next.Start.Sub(occStart)
	result.Updated = append(result.Updated, m.shiftGroupSiblings(anchor, delta, events)...)
	return result, nil
}

// ModifyAllInSeries rewrites the anchor's shared fields. Per-occurrence
// exceptions are left alone: an exception still wins for its own date, even
// when it now duplicates the anchor's values.
func (m *Mutator) ModifyAllInSeries(anchor model.Event, mods model.OccurrenceOverrides, events []model.Event) (Result, error) {
	if err := anchor.Validate(); err != nil {
		return Result{}, err
	}
	updated := anchor.Clone()
	applyEventMods(&updated, mods)
	if !updated.End.After(updated.Start) {
		return Result{}, fmt.Errorf("%w: event end must be after start", model.ErrValidation)
	}
	updated.UpdatedAt = m.Now()

	result := Result{Updated: []model.Event{updated}}
	delta := updated.Start.Sub(anchor.Start)
	result.Updated = append(result.Updated, m.shiftGroupSiblings(anchor, delta, events)...)
	return result, nil
}

// shiftGroupSiblings moves every event parented to the group anchor by the
// same time delta the anchor moved. A zero delta performs no propagation.
func (m *Mutator) shiftGroupSiblings(anchor model.Event, delta time.Duration, events []model.Event) []model.Event {
	if !anchor.GroupEvent || delta == 0 {
		return nil
	}
	out := make([]model.Event, 0)
	for _, ev := range events {
		if ev.ParentGroupID != anchor.ID || ev.ID == anchor.ID {
			continue
		}
		cp := ev.Clone()
		cp.Start = cp.Start.Add(delta)
		cp.End = cp.End.Add(delta)
		cp.UpdatedAt = m.Now()
		out = append(out, cp)
	}
	return out
}

func (m *Mutator) checkOccurrence(anchor model.Event, occStart time.Time) error {
	if err := anchor.Validate(); err != nil {
		return err
	}
	if !OccurrenceAt(anchor, occStart, anchor.Exceptions) {
		return fmt.Errorf("%w: event %s has no occurrence at %s",
			model.ErrNotFound, anchor.ID, occStart.Format(time.RFC3339))
	}
	return nil
}

// truncateBefore shrinks the anchor's rule to end just before cutoff and
// drops exceptions the shortened series can no longer reach.
func truncateBefore(anchor model.Event, cutoff time.Time) model.Event {
	updated := anchor.Clone()
	until := cutoff.Add(-time.Second)
	if updated.Recurrence != nil {
		rule := updated.Recurrence.Clone()
		rule.Until = &until
		updated.Recurrence = &rule
	}
	for k := range updated.Exceptions {
		kt, err := model.ParseOccurrenceKey(k)
		if err != nil {
			continue
		}
		if !kt.Before(cutoff) {
			delete(updated.Exceptions, k)
		}
	}
	return updated
}

// applyEventMods merges an override bag into an event record's own fields.
// A moved start without an explicit end keeps the event's duration.
func applyEventMods(ev *model.Event, mods model.OccurrenceOverrides) {
	if mods.Title != nil {
		ev.Title = *mods.Title
	}
	if mods.Description != nil {
		ev.Description = *mods.Description
	}
	if mods.Location != nil {
		ev.Location = *mods.Location
	}
	duration := ev.End.Sub(ev.Start)
	if mods.Start != nil {
		ev.Start = *mods.Start
		ev.End = ev.Start.Add(duration)
	}
	if mods.End != nil {
		ev.End = *mods.End
	}
}

// checkModTimes rejects modifications whose effective occurrence times would
// be inverted.
func checkModTimes(anchor model.Event, occStart time.Time, mods model.OccurrenceOverrides) error {
	start := occStart
	end := occStart.Add(anchor.Duration())
	if mods.Start != nil {
		end = mods.Start.Add(anchor.Duration())
		start = *mods.Start
	}
	if mods.End != nil {
		end = *mods.End
	}
	if !end.After(start) {
		return fmt.Errorf("%w: occurrence end must be after start", model.ErrValidation)
	}
	return nil
}
