package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/planline/planline/internal/model"
)

func testMutator() *Mutator {
	n := 0
	return &Mutator{
		NewID: func() string {
			n++
			return "generated-" + string(rune('0'+n))
		},
		Now: func() time.Time {
			return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		},
	}
}

func strptr(s string) *string { return &s }

func TestDeleteOccurrenceInsertsSkip(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	target := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)

	res, err := testMutator().DeleteOccurrence(anchor, target)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(res.Updated) != 1 || len(res.Deleted) != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
	ex, ok := res.Updated[0].Exceptions[model.OccurrenceKey(target)]
	if !ok || !ex.Skip {
		t.Fatalf("skip exception missing: %#v", res.Updated[0].Exceptions)
	}
	if anchor.Exceptions != nil {
		t.Fatal("input anchor was mutated")
	}
}

func TestDeleteOccurrenceDegeneratesToFullDelete(t *testing.T) {
	start := time.Date(2026, 1, 7, 14, 0, 0, 0, time.UTC)
	ev := model.Event{
		ID: "single-1", CalendarID: "cal-1", Title: "Dentist",
		Start: start, End: start.Add(time.Hour),
	}

	res, err := testMutator().DeleteOccurrence(ev, start)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(res.Deleted) != 1 || res.Deleted[0] != "single-1" || len(res.Updated) != 0 {
		t.Fatalf("expected whole-event delete, got %#v", res)
	}
}

func TestDeleteOccurrenceAtAnchorStartKeepsSeries(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))

	res, err := testMutator().DeleteOccurrence(anchor, anchor.Start)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(res.Deleted) != 0 || len(res.Updated) != 1 {
		t.Fatalf("expected skip exception, got %#v", res)
	}
	if ex := res.Updated[0].Exceptions[model.OccurrenceKey(anchor.Start)]; !ex.Skip {
		t.Fatal("anchor start not skipped")
	}
}

func TestDeleteOccurrenceRejectsNonOccurrence(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	_, err := testMutator().DeleteOccurrence(anchor, time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC))
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteThisAndFutureTruncates(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	kept := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	dropped := time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC)
	anchor.Exceptions = model.ExceptionMap{
		model.OccurrenceKey(kept):    {Skip: true},
		model.OccurrenceKey(dropped): {Skip: true},
	}
	cut := time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC)

	res, err := testMutator().DeleteThisAndFuture(anchor, cut)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(res.Updated) != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}
	updated := res.Updated[0]
	if updated.Recurrence.Until == nil || !updated.Recurrence.Until.Equal(cut.Add(-time.Second)) {
		t.Fatalf("until not truncated: %v", updated.Recurrence.Until)
	}
	if _, ok := updated.Exceptions[model.OccurrenceKey(kept)]; !ok {
		t.Fatal("exception before the cut was dropped")
	}
	if _, ok := updated.Exceptions[model.OccurrenceKey(dropped)]; ok {
		t.Fatal("exception after the cut survived")
	}

	occs, err := Expand(updated,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		updated.Exceptions)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	// Jan 5 remains; Jan 12 is skipped; Jan 19 onward is gone.
	if len(occs) != 1 || !occs[0].Start.Equal(anchor.Start) {
		t.Fatalf("truncated series expands wrong: %#v", occs)
	}
}

func TestDeleteThisAndFutureAtAnchorStartDeletesAll(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	res, err := testMutator().DeleteThisAndFuture(anchor, anchor.Start)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(res.Deleted) != 1 || res.Deleted[0] != anchor.ID {
		t.Fatalf("expected anchor delete, got %#v", res)
	}
}

func TestModifyOccurrenceMergesOverExisting(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	target := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	anchor.Exceptions = model.ExceptionMap{
		model.OccurrenceKey(target): {
			Overrides: &model.OccurrenceOverrides{Location: strptr("Room 4")},
		},
	}

	res, err := testMutator().ModifyOccurrence(anchor, target,
		model.OccurrenceOverrides{Title: strptr("Special")})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	ex := res.Updated[0].Exceptions[model.OccurrenceKey(target)]
	if ex.Overrides == nil || ex.Overrides.Title == nil || *ex.Overrides.Title != "Special" {
		t.Fatalf("new override missing: %#v", ex.Overrides)
	}
	if ex.Overrides.Location == nil || *ex.Overrides.Location != "Room 4" {
		t.Fatalf("earlier override lost: %#v", ex.Overrides)
	}
	// The shared fields stay put.
	if res.Updated[0].Title != "Standup" {
		t.Fatalf("anchor title changed: %q", res.Updated[0].Title)
	}
}

func TestModifyOccurrenceRejectsInvertedTimes(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	target := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	badEnd := target.Add(-time.Hour)

	_, err := testMutator().ModifyOccurrence(anchor, target,
		model.OccurrenceOverrides{End: &badEnd})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestModifyThisAndFutureSplitsSeries(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	until := time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC)
	anchor.Recurrence.Until = &until
	rehomed := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	anchor.Exceptions = model.ExceptionMap{
		model.OccurrenceKey(rehomed): {
			Overrides: &model.OccurrenceOverrides{Location: strptr("Offsite")},
		},
	}
	cut := time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC)

	res, err := testMutator().ModifyThisAndFuture(anchor, cut,
		model.OccurrenceOverrides{Title: strptr("Sync")}, nil)
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(res.Updated) != 2 || len(res.Deleted) != 0 {
		t.Fatalf("unexpected result shape: %#v", res)
	}
	truncated, next := res.Updated[0], res.Updated[1]

	if truncated.ID != anchor.ID {
		t.Fatalf("truncated event lost identity: %q", truncated.ID)
	}
	if next.ID == anchor.ID || next.ID == "" {
		t.Fatalf("new anchor must have fresh identity, got %q", next.ID)
	}
	if !next.Start.Equal(cut) || next.Title != "Sync" {
		t.Fatalf("new anchor wrong: start=%v title=%q", next.Start, next.Title)
	}
	if next.Recurrence.Until == nil || !next.Recurrence.Until.Equal(until) {
		t.Fatalf("tail bound lost: %v", next.Recurrence.Until)
	}

	// The two halves together cover exactly the original instants.
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	head, err := Expand(truncated, from, to, truncated.Exceptions)
	if err != nil {
		t.Fatalf("expand head: %v", err)
	}
	tail, err := Expand(next, from, to, next.Exceptions)
	if err != nil {
		t.Fatalf("expand tail: %v", err)
	}
	if len(head) != 3 {
		t.Fatalf("head should hold occurrences before the cut, got %d", len(head))
	}
	if len(tail) != 5 {
		t.Fatalf("tail should hold the cut occurrence onward, got %d", len(tail))
	}
	if !head[len(head)-1].Start.Equal(time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("head ends at %v", head[len(head)-1].Start)
	}
	for _, occ := range tail {
		if occ.Title != "Sync" {
			t.Fatalf("modification not carried to %v: %q", occ.Start, occ.Title)
		}
	}

	// The Feb 9 override moved onto the new anchor, key unchanged.
	ex, ok := next.Exceptions[model.OccurrenceKey(rehomed)]
	if !ok || ex.Overrides == nil || *ex.Overrides.Location != "Offsite" {
		t.Fatalf("exception not re-homed: %#v", next.Exceptions)
	}
	if _, ok := truncated.Exceptions[model.OccurrenceKey(rehomed)]; ok {
		t.Fatal("truncated anchor kept a future exception")
	}
}

func TestModifyThisAndFutureAtAnchorStartReplacesAnchor(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))

	res, err := testMutator().ModifyThisAndFuture(anchor, anchor.Start,
		model.OccurrenceOverrides{Title: strptr("Sync")}, nil)
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(res.Deleted) != 1 || res.Deleted[0] != anchor.ID {
		t.Fatalf("old anchor should be deleted, got %#v", res.Deleted)
	}
	if len(res.Updated) != 1 || res.Updated[0].Title != "Sync" {
		t.Fatalf("replacement anchor wrong: %#v", res.Updated)
	}
}

func TestModifyThisAndFutureNonRecurringDelegates(t *testing.T) {
	start := time.Date(2026, 1, 7, 14, 0, 0, 0, time.UTC)
	ev := model.Event{
		ID: "single-1", CalendarID: "cal-1", Title: "Dentist",
		Start: start, End: start.Add(time.Hour),
	}

	res, err := testMutator().ModifyThisAndFuture(ev, start,
		model.OccurrenceOverrides{Title: strptr("Checkup")}, nil)
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(res.Updated) != 1 || res.Updated[0].ID != "single-1" || res.Updated[0].Title != "Checkup" {
		t.Fatalf("expected in-place edit, got %#v", res)
	}
}

func TestModifyAllInSeriesKeepsExceptions(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	special := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	anchor.Exceptions = model.ExceptionMap{
		model.OccurrenceKey(special): {
			Overrides: &model.OccurrenceOverrides{Title: strptr("Special")},
		},
	}

	res, err := testMutator().ModifyAllInSeries(anchor,
		model.OccurrenceOverrides{Title: strptr("Daily sync")}, nil)
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	updated := res.Updated[0]
	if updated.Title != "Daily sync" {
		t.Fatalf("shared title not applied: %q", updated.Title)
	}
	// The per-occurrence override still wins on its own date.
	occs, err := Expand(updated, special, special, updated.Exceptions)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(occs) != 1 || occs[0].Title != "Special" {
		t.Fatalf("override lost after series edit: %#v", occs)
	}
}

func TestModifyAllInSeriesShiftsGroupSiblings(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	anchor.Recurrence = nil
	anchor.GroupEvent = true

	sibStart := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	sibling := model.Event{
		ID: "sib-1", CalendarID: "cal-1", Title: "Debrief",
		Start: sibStart, End: sibStart.Add(30 * time.Minute),
		ParentGroupID: anchor.ID,
	}
	unrelated := model.Event{
		ID: "other-1", CalendarID: "cal-1", Title: "Lunch",
		Start: sibStart, End: sibStart.Add(time.Hour),
	}

	moved := anchor.Start.Add(2 * time.Hour)
	res, err := testMutator().ModifyAllInSeries(anchor,
		model.OccurrenceOverrides{Start: &moved},
		[]model.Event{sibling, unrelated})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(res.Updated) != 2 {
		t.Fatalf("expected anchor plus one sibling, got %d", len(res.Updated))
	}
	shifted := res.Updated[1]
	if shifted.ID != "sib-1" {
		t.Fatalf("wrong event shifted: %q", shifted.ID)
	}
	if !shifted.Start.Equal(sibStart.Add(2*time.Hour)) || !shifted.End.Equal(sibStart.Add(2*time.Hour+30*time.Minute)) {
		t.Fatalf("sibling not shifted by delta: %v-%v", shifted.Start, shifted.End)
	}
	if !sibling.Start.Equal(sibStart) {
		t.Fatal("input sibling was mutated")
	}
}

func TestModifyAllInSeriesZeroDeltaLeavesSiblings(t *testing.T) {
	anchor := weeklyAnchor(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	anchor.Recurrence = nil
	anchor.GroupEvent = true
	sibling := model.Event{
		ID: "sib-1", CalendarID: "cal-1", Title: "Debrief",
		Start: anchor.Start.Add(2 * time.Hour), End: anchor.Start.Add(3 * time.Hour),
		ParentGroupID: anchor.ID,
	}

	res, err := testMutator().ModifyAllInSeries(anchor,
		model.OccurrenceOverrides{Title: strptr("Kickoff")},
		[]model.Event{sibling})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(res.Updated) != 1 {
		t.Fatalf("title-only edit must not touch siblings: %#v", res.Updated)
	}
}

// End to end: a weekly Tuesday series gets one occurrence renamed, and a
// month's expansion shows exactly that occurrence changed.
func TestModifyOccurrenceThenExpand(t *testing.T) {
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	anchor := model.Event{
		ID: "weekly-1", CalendarID: "cal-1", Title: "Standup",
		Start: start, End: start.Add(time.Hour),
		Recurrence: &model.RecurrenceRule{Frequency: model.FrequencyWeekly, Interval: 1},
	}
	target := time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)

	res, err := testMutator().ModifyOccurrence(anchor, target,
		model.OccurrenceOverrides{Title: strptr("Special")})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	updated := res.Updated[0]

	occs, err := Expand(updated,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC),
		updated.Exceptions)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(occs) != 5 {
		t.Fatalf("January has 5 Tuesdays, got %d occurrences", len(occs))
	}
	for _, occ := range occs {
		want := "Standup"
		if occ.Start.Equal(target) {
			want = "Special"
		}
		if occ.Title != want {
			t.Fatalf("occurrence %v: got %q want %q", occ.Start, occ.Title, want)
		}
	}
}
