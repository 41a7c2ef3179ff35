package ics

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/planline/planline/internal/engine"
	"github.com/planline/planline/internal/model"
)

// maxImportedOccurrences caps a single feed event's expansion.
const maxImportedOccurrences = 5000

// ExpandImported materializes occurrences of an ICS-imported event within
// [rangeStart, rangeEnd]. Events without an RRULE fall through to the native
// expander; recurring ones are expanded with the rrule set and then run
// through the same exception merge (skips from EXDATE, overrides from
// RECURRENCE-ID) as native series.
func ExpandImported(ev model.Event, rangeStart, rangeEnd time.Time) ([]model.Occurrence, error) {
	if ev.ICSRule == "" {
		return engine.Expand(ev, rangeStart, rangeEnd, ev.Exceptions)
	}
	if rangeEnd.Before(rangeStart) {
		return nil, fmt.Errorf("%w: range end precedes range start", model.ErrValidation)
	}

	r, err := rrule.StrToRRule(ev.ICSRule)
	if err != nil {
		return nil, fmt.Errorf("%w: bad RRULE %q: %v", model.ErrInvalidRule, ev.ICSRule, err)
	}
	r.DTStart(ev.Start)

	starts := r.Between(rangeStart.In(ev.Start.Location()), rangeEnd.In(ev.Start.Location()), true)
	if len(starts) > maxImportedOccurrences {
		starts = starts[:maxImportedOccurrences]
	}

	duration := ev.End.Sub(ev.Start)
	out := make([]model.Occurrence, 0, len(starts))
	for _, start := range starts {
		occ := model.Occurrence{
			SeriesID:      ev.ID,
			CalendarID:    ev.CalendarID,
			Title:         ev.Title,
			Description:   ev.Description,
			Location:      ev.Location,
			AllDay:        ev.AllDay,
			Start:         start,
			End:           start.Add(duration),
			OriginalStart: start,
		}
		if ex, ok := ev.Exceptions[model.OccurrenceKey(start)]; ok {
			if ex.Skip || ex.Detached {
				continue
			}
			if ex.Overrides != nil {
				if ex.Overrides.Title != nil {
					occ.Title = *ex.Overrides.Title
				}
				if ex.Overrides.Start != nil {
					occ.Start = *ex.Overrides.Start
					occ.End = occ.Start.Add(duration)
				}
				if ex.Overrides.End != nil {
					occ.End = *ex.Overrides.End
				}
				occ.IsException = true
			}
		}
		out = append(out, occ)
	}
	return out, nil
}
