package planner

import (
	"fmt"
	"sort"
	"time"

	"github.com/planline/planline/internal/engine"
	"github.com/planline/planline/internal/model"
)

// DefaultHorizonDays bounds the slot search when the caller does not supply
// a horizon.
const DefaultHorizonDays = 7

// DefaultTick is the boundary candidate slots are aligned to: the search
// cursor is always rounded up to the next tick.
const DefaultTick = 15 * time.Minute

// busyLookback widens the expansion window backwards so occurrences already
// in progress at the search start still count as busy.
const busyLookback = 24 * time.Hour

// Slot is a free interval large enough for the requested duration.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Request describes one free-slot search.
type Request struct {
	DurationMinutes int
	HorizonDays     int           // 0 means DefaultHorizonDays
	Tick            time.Duration // 0 means DefaultTick
	Now             time.Time
}

// FindNextFreeSlot returns the earliest gap of the requested duration in the
// merged busy set of all visible, writable calendars, scanning from Now
// (rounded up to the next tick) to Now plus the horizon. It returns nil when
// no admissible gap exists; that is an answer, not an error. The result is a
// pure function of the inputs.
func FindNextFreeSlot(req Request, events []model.Event, calendars []model.Calendar) (*Slot, error) {
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive, got %d", model.ErrValidation, req.DurationMinutes)
	}
	if req.Now.IsZero() {
		return nil, fmt.Errorf("%w: slot search requires a reference time", model.ErrValidation)
	}
	horizonDays := req.HorizonDays
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	tick := req.Tick
	if tick <= 0 {
		tick = DefaultTick
	}

	horizonEnd := req.Now.AddDate(0, 0, horizonDays)
	busy, err := busyIntervals(events, calendars, req.Now, horizonEnd)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	cursor := roundUpTo(req.Now, tick)
	for _, iv := range busy {
		if !iv.end.After(cursor) {
			continue
		}
		if iv.start.Sub(cursor) >= duration {
			return &Slot{Start: cursor, End: cursor.Add(duration)}, nil
		}
		cursor = roundUpTo(iv.end, tick)
	}
	if cursor.Add(duration).After(horizonEnd) {
		return nil, nil
	}
	return &Slot{Start: cursor, End: cursor.Add(duration)}, nil
}

type interval struct {
	start time.Time
	end   time.Time
}

// busyIntervals expands every event of every visible writable calendar over
// the window and returns the merged, sorted busy set. Hidden and read-only
// calendars do not contribute.
func busyIntervals(events []model.Event, calendars []model.Calendar, from, to time.Time) ([]interval, error) {
	include := make(map[string]bool, len(calendars))
	for _, cal := range calendars {
		if cal.Visible && !cal.ReadOnly {
			include[cal.ID] = true
		}
	}

	raw := make([]interval, 0, len(events))
	for _, ev := range events {
		if !include[ev.CalendarID] {
			continue
		}
		occs, err := engine.Expand(ev, from.Add(-busyLookback), to, ev.Exceptions)
		if err != nil {
			return nil, err
		}
		for _, occ := range occs {
			if !occ.End.After(from) {
				continue
			}
			raw = append(raw, interval{start: occ.Start, end: occ.End})
		}
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].start.Before(raw[j].start) })

	merged := make([]interval, 0, len(raw))
	for _, iv := range raw {
		n := len(merged)
		if n > 0 && !iv.start.After(merged[n-1].end) {
			if iv.end.After(merged[n-1].end) {
				merged[n-1].end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged, nil
}

func roundUpTo(t time.Time, tick time.Duration) time.Time {
	rounded := t.Truncate(tick)
	if rounded.Before(t) {
		rounded = rounded.Add(tick)
	}
	return rounded
}
