package engine

import (
	"fmt"
	"time"

	"github.com/planline/planline/internal/model"
)

// occurrenceCap bounds how many instants a single walk may visit, guarding
// against runaway rules on very wide ranges.
const occurrenceCap = 10000

// Expand materializes the occurrences of anchor whose original start falls
// within [rangeStart, rangeEnd], with exceptions merged in. It is a pure
// function of its inputs: identical arguments yield identical output.
//
// Skip exceptions suppress their occurrence entirely. A detached exception
// stops expansion at its instant, because a this-and-future split created a
// new anchor owning everything from there on. Field overrides are merged over
// the anchor's fields; an override that moves the start without supplying an
// end keeps the anchor's duration.
func Expand(anchor model.Event, rangeStart, rangeEnd time.Time, exceptions model.ExceptionMap) ([]model.Occurrence, error) {
	if err := anchor.Validate(); err != nil {
		return nil, err
	}
	if rangeEnd.Before(rangeStart) {
		return nil, fmt.Errorf("%w: range end precedes range start", model.ErrValidation)
	}

	out := make([]model.Occurrence, 0)
	walk := newSeriesWalk(anchor)
	for i := 0; i < occurrenceCap; i++ {
		start, ok := walk.next()
		if !ok || start.After(rangeEnd) {
			break
		}
		occ, emit, stop := materialize(anchor, start, exceptions)
		if stop {
			break
		}
		if !emit || start.Before(rangeStart) {
			continue
		}
		out = append(out, occ)
	}
	return out, nil
}

// OccurrenceAt reports whether start is a live occurrence of anchor: one the
// rule generates, not skipped, and not owned by a detached split.
func OccurrenceAt(anchor model.Event, start time.Time, exceptions model.ExceptionMap) bool {
	walk := newSeriesWalk(anchor)
	for i := 0; i < occurrenceCap; i++ {
		s, ok := walk.next()
		if !ok || s.After(start) {
			return false
		}
		ex, hasEx := exceptions[model.OccurrenceKey(s)]
		if hasEx && ex.Detached {
			// Everything from s on belongs to another anchor.
			return false
		}
		if !s.Equal(start) {
			continue
		}
		return !hasEx || !ex.Skip
	}
	return false
}

// NextLiveStart returns the first live occurrence start strictly after t.
func NextLiveStart(anchor model.Event, t time.Time, exceptions model.ExceptionMap) (time.Time, bool) {
	walk := newSeriesWalk(anchor)
	for i := 0; i < occurrenceCap; i++ {
		s, ok := walk.next()
		if !ok {
			return time.Time{}, false
		}
		ex, hasEx := exceptions[model.OccurrenceKey(s)]
		if hasEx && ex.Detached {
			return time.Time{}, false
		}
		if !s.After(t) || (hasEx && ex.Skip) {
			continue
		}
		return s, true
	}
	return time.Time{}, false
}

func materialize(anchor model.Event, start time.Time, exceptions model.ExceptionMap) (occ model.Occurrence, emit, stop bool) {
	occ = model.Occurrence{
		SeriesID:      anchor.ID,
		CalendarID:    anchor.CalendarID,
		Title:         anchor.Title,
		Description:   anchor.Description,
		Location:      anchor.Location,
		AllDay:        anchor.AllDay,
		TaskID:        anchor.TaskID,
		Start:         start,
		End:           start.Add(anchor.Duration()),
		OriginalStart: start,
	}
	ex, ok := exceptions[model.OccurrenceKey(start)]
	if !ok {
		return occ, true, false
	}
	if ex.Detached {
		return model.Occurrence{}, false, true
	}
	if ex.Skip {
		return model.Occurrence{}, false, false
	}
	if ex.Overrides != nil {
		applyOverrides(&occ, *ex.Overrides)
		occ.IsException = true
	}
	return occ, true, false
}

func applyOverrides(occ *model.Occurrence, ov model.OccurrenceOverrides) {
	if ov.Title != nil {
		occ.Title = *ov.Title
	}
	if ov.Description != nil {
		occ.Description = *ov.Description
	}
	if ov.Location != nil {
		occ.Location = *ov.Location
	}
	duration := occ.End.Sub(occ.Start)
	if ov.Start != nil {
		occ.Start = *ov.Start
		occ.End = occ.Start.Add(duration)
	}
	if ov.End != nil {
		occ.End = *ov.End
	}
}

// seriesWalk yields the original start instants of a series in ascending
// order, bounded only by the rule's Until date. Non-recurring anchors yield
// exactly their own start.
type seriesWalk struct {
	anchor model.Event
	rule   model.RecurrenceRule

	step int       // step index for daily / weekly-without-set / monthly
	day  time.Time // day cursor for weekly rules with a weekday set

	weekdays map[time.Weekday]bool
	weekBase time.Time
	done     bool
}

func newSeriesWalk(anchor model.Event) *seriesWalk {
	w := &seriesWalk{anchor: anchor}
	if anchor.IsRecurring() {
		w.rule = *anchor.Recurrence
		if w.rule.Frequency == model.FrequencyWeekly && len(w.rule.Weekdays) > 0 {
			w.weekdays = make(map[time.Weekday]bool, len(w.rule.Weekdays))
			for _, d := range w.rule.Weekdays {
				w.weekdays[d] = true
			}
			w.weekBase = startOfWeek(anchor.Start)
			w.day = anchor.Start
		}
	}
	return w
}

func (w *seriesWalk) next() (time.Time, bool) {
	if w.done {
		return time.Time{}, false
	}
	if !w.anchor.IsRecurring() {
		w.done = true
		return w.anchor.Start, true
	}

	var start time.Time
	var ok bool
	switch {
	case w.weekdays != nil:
		start, ok = w.nextWeekdaySet()
	case w.rule.Frequency == model.FrequencyDaily:
		start = w.anchor.Start.AddDate(0, 0, w.rule.Interval*w.step)
		w.step++
		ok = true
	case w.rule.Frequency == model.FrequencyWeekly:
		start = w.anchor.Start.AddDate(0, 0, 7*w.rule.Interval*w.step)
		w.step++
		ok = true
	case w.rule.Frequency == model.FrequencyMonthly:
		start, ok = w.nextMonthly()
	}
	if !ok {
		w.done = true
		return time.Time{}, false
	}
	if w.rule.Until != nil && start.After(*w.rule.Until) {
		w.done = true
		return time.Time{}, false
	}
	return start, true
}

// nextWeekdaySet advances a day cursor, emitting days whose weekday is in the
// rule's set and whose week is aligned with the interval cadence. The
// anchor's own start is emitted only when its weekday is in the set.
func (w *seriesWalk) nextWeekdaySet() (time.Time, bool) {
	for i := 0; i < occurrenceCap*7; i++ {
		candidate := w.day
		w.day = w.day.AddDate(0, 0, 1)
		if !w.weekdays[candidate.Weekday()] {
			continue
		}
		weeks := daysBetween(w.weekBase, startOfWeek(candidate)) / 7
		if weeks%w.rule.Interval != 0 {
			continue
		}
		return candidate, true
	}
	return time.Time{}, false
}

// nextMonthly steps whole months from the anchor, keeping the anchor's
// day-of-month. Months that lack the day (for example the 31st) are skipped
// rather than clamped to the month's end.
func (w *seriesWalk) nextMonthly() (time.Time, bool) {
	for i := 0; i < occurrenceCap; i++ {
		months := w.rule.Interval * w.step
		w.step++
		candidate, exists := addMonthsKeepDay(w.anchor.Start, months)
		if !exists {
			continue
		}
		return candidate, true
	}
	return time.Time{}, false
}

// addMonthsKeepDay moves t forward by the given number of months while
// preserving its day-of-month and wall clock. The second return is false when
// the target month has no such day.
func addMonthsKeepDay(t time.Time, months int) (time.Time, bool) {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	first = first.AddDate(0, months, 0)
	candidate := first.AddDate(0, 0, d-1)
	if candidate.Day() != d {
		return time.Time{}, false
	}
	return candidate, true
}

// startOfWeek returns midnight of the Monday of t's week.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, -offset)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
