package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	applog "github.com/planline/planline/internal/log"
	"github.com/planline/planline/internal/model"
)

// ParseFeed parses an ICS payload into events for the given read-only
// calendar. Recurring VEVENTs keep their raw RRULE (expanded later via the
// rrule set), EXDATEs become skip exceptions and RECURRENCE-ID overrides
// become field-override exceptions keyed by the original instant. Imported
// events are display-only; they never pass through the series mutator.
func ParseFeed(calendarID string, body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty feed body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	base := make([]model.Event, 0)
	overrides := make([]override, 0)
	for _, ve := range cal.Events() {
		ev, ov, perr := parseVEvent(calendarID, ve)
		if perr != nil {
			// Skip the broken VEVENT, keep the rest of the feed.
			applog.Error("ics: vevent skipped", perr, "calendar", calendarID)
			continue
		}
		if ov != nil {
			overrides = append(overrides, *ov)
			continue
		}
		base = append(base, ev)
	}

	attachOverrides(base, overrides)
	applog.Info("ics: feed parsed", "calendar", calendarID, "events", len(base), "overrides", len(overrides))
	return base, nil
}

// override is a VEVENT with a RECURRENCE-ID: a per-instance rewrite of a
// recurring base event.
type override struct {
	uid      string
	original time.Time
	title    string
	start    time.Time
	end      time.Time
}

func parseVEvent(calendarID string, ve *ical.VEvent) (model.Event, *override, error) {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return model.Event{}, nil, errors.New("ics: missing UID")
	}

	start, err := ve.GetStartAt()
	if err != nil {
		// Date-only DTSTART values land here.
		if start, err = ve.GetAllDayStartAt(); err != nil {
			return model.Event{}, nil, err
		}
	}
	end, err := ve.GetEndAt()
	if err != nil {
		if end, err = ve.GetAllDayEndAt(); err != nil {
			end = start.Add(time.Hour)
		}
	}

	summary := ""
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = p.Value
	}

	if rid := ve.GetProperty("RECURRENCE-ID"); rid != nil {
		original, perr := parseICSTime(rid.Value)
		if perr != nil {
			return model.Event{}, nil, perr
		}
		return model.Event{}, &override{
			uid:      uidProp.Value,
			original: original,
			title:    summary,
			start:    start,
			end:      end,
		}, nil
	}

	ev := model.Event{
		ID:         uidProp.Value,
		CalendarID: calendarID,
		Title:      summary,
		Start:      start,
		End:        end,
		AllDay:     isAllDay(ve),
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.ICSRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, perr := parseICSTime(part)
			if perr != nil {
				continue
			}
			if ev.Exceptions == nil {
				ev.Exceptions = model.ExceptionMap{}
			}
			ev.Exceptions[model.OccurrenceKey(t)] = model.Exception{Skip: true}
		}
	}
	return ev, nil, nil
}

func attachOverrides(base []model.Event, overrides []override) {
	for _, ov := range overrides {
		for i := range base {
			if base[i].ID != ov.uid {
				continue
			}
			if base[i].Exceptions == nil {
				base[i].Exceptions = model.ExceptionMap{}
			}
			title := ov.title
			start := ov.start
			end := ov.end
			base[i].Exceptions[model.OccurrenceKey(ov.original)] = model.Exception{
				Overrides: &model.OccurrenceOverrides{Title: &title, Start: &start, End: &end},
			}
			break
		}
	}
}

func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime parses the basic DATE / DATE-TIME / UTC forms used by EXDATE
// and RECURRENCE-ID values.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("ics: empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	return time.ParseInLocation("20060102", v, time.Local)
}
