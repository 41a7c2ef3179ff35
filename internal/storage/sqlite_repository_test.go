package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/planline/planline/internal/model"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "planline.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := MigrateUp(repo.DB()); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	return repo
}

var repoNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func sampleEvent(id string) model.Event {
	start := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	until := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	title := "Special"
	return model.Event{
		ID:         id,
		CalendarID: "cal-1",
		Title:      "Standup",
		Location:   "Room 2",
		Start:      start,
		End:        start.Add(time.Hour),
		Recurrence: &model.RecurrenceRule{
			Frequency: model.FrequencyWeekly,
			Interval:  1,
			Until:     &until,
			Weekdays:  []time.Weekday{time.Tuesday, time.Thursday},
		},
		Exceptions: model.ExceptionMap{
			model.OccurrenceKey(start.AddDate(0, 0, 7)): {Skip: true},
			model.OccurrenceKey(start.AddDate(0, 0, 9)): {
				Overrides: &model.OccurrenceOverrides{Title: &title},
			},
		},
		CreatedAt: repoNow,
		UpdatedAt: repoNow,
	}
}

func TestEventRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	in := sampleEvent("ev-1")
	if err := repo.CreateEvent(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetEvent(ctx, "ev-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != in.Title || got.Location != in.Location || !got.Start.Equal(in.Start) || !got.End.Equal(in.End) {
		t.Fatalf("fields lost: %#v", got)
	}
	if got.Recurrence == nil || got.Recurrence.Frequency != model.FrequencyWeekly {
		t.Fatalf("recurrence lost: %#v", got.Recurrence)
	}
	if got.Recurrence.Until == nil || !got.Recurrence.Until.Equal(*in.Recurrence.Until) {
		t.Fatalf("until lost: %v", got.Recurrence.Until)
	}
	if len(got.Recurrence.Weekdays) != 2 {
		t.Fatalf("weekdays lost: %v", got.Recurrence.Weekdays)
	}
	if len(got.Exceptions) != 2 {
		t.Fatalf("exceptions lost: %#v", got.Exceptions)
	}
	skipKey := model.OccurrenceKey(in.Start.AddDate(0, 0, 7))
	if !got.Exceptions[skipKey].Skip {
		t.Fatal("skip exception lost")
	}
}

func TestEventUpdateAndDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	ev := sampleEvent("ev-1")
	if err := repo.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("create: %v", err)
	}
	ev.Title = "Renamed"
	ev.Recurrence = nil
	ev.Exceptions = nil
	if err := repo.UpdateEvent(ctx, ev); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetEvent(ctx, "ev-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Renamed" {
		t.Fatalf("title not updated: %q", got.Title)
	}
	if got.Recurrence != nil || got.Exceptions != nil {
		t.Fatalf("cleared rule survived: %#v", got)
	}

	if err := repo.DeleteEvent(ctx, "ev-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetEvent(ctx, "ev-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateEvent(ctx, ev); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of missing row: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteEvent(ctx, "ev-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestListEventsFilterAndOrder(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	for i, tc := range []struct {
		id       string
		calendar string
		offset   time.Duration
	}{
		{"late", "cal-1", 48 * time.Hour},
		{"early", "cal-1", 0},
		{"other", "cal-2", 24 * time.Hour},
	} {
		ev := model.Event{
			ID: tc.id, CalendarID: tc.calendar, Title: "E",
			Start: base.Add(tc.offset), End: base.Add(tc.offset + time.Hour),
			CreatedAt: repoNow.Add(time.Duration(i) * time.Second),
			UpdatedAt: repoNow,
		}
		if err := repo.CreateEvent(ctx, ev); err != nil {
			t.Fatalf("create %s: %v", tc.id, err)
		}
	}

	all, err := repo.ListEvents(ctx, EventListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "early" || all[2].ID != "late" {
		t.Fatalf("wrong order: %#v", all)
	}

	filtered, err := repo.ListEvents(ctx, EventListFilter{CalendarID: "cal-2"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "other" {
		t.Fatalf("calendar filter broken: %#v", filtered)
	}

	paged, err := repo.ListEvents(ctx, EventListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list paged: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != "other" {
		t.Fatalf("pagination broken: %#v", paged)
	}
}

func TestReplaceEventsAppliesWholeResult(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	old := sampleEvent("old-anchor")
	if err := repo.CreateEvent(ctx, old); err != nil {
		t.Fatalf("create: %v", err)
	}
	existing := sampleEvent("kept")
	if err := repo.CreateEvent(ctx, existing); err != nil {
		t.Fatalf("create: %v", err)
	}
	existing.Title = "Edited"
	fresh := sampleEvent("new-anchor")

	if err := repo.ReplaceEvents(ctx, []model.Event{existing, fresh}, []string{"old-anchor"}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if _, err := repo.GetEvent(ctx, "old-anchor"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted id survived: %v", err)
	}
	kept, err := repo.GetEvent(ctx, "kept")
	if err != nil {
		t.Fatalf("get kept: %v", err)
	}
	if kept.Title != "Edited" {
		t.Fatalf("existing row not updated: %q", kept.Title)
	}
	if _, err := repo.GetEvent(ctx, "new-anchor"); err != nil {
		t.Fatalf("new row not inserted: %v", err)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	impact, urgency := 8, 4
	due := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	in := model.Task{
		ID: "t1", Content: "write report", ProjectID: "p1",
		DurationMinutes: 45, Impact: &impact, Urgency: &urgency, DueDate: &due,
		MyDay: true, CreatedAt: repoNow, UpdatedAt: repoNow,
	}
	if err := repo.CreateTask(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != in.Content || got.DurationMinutes != 45 || !got.MyDay {
		t.Fatalf("fields lost: %#v", got)
	}
	if got.Impact == nil || *got.Impact != 8 || got.Urgency == nil || *got.Urgency != 4 {
		t.Fatalf("signals lost: %#v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("due date lost: %v", got.DueDate)
	}

	// Nullable columns stay null.
	bare := model.Task{ID: "t2", Content: "call bank", CreatedAt: repoNow, UpdatedAt: repoNow}
	if err := repo.CreateTask(ctx, bare); err != nil {
		t.Fatalf("create bare: %v", err)
	}
	gotBare, err := repo.GetTask(ctx, "t2")
	if err != nil {
		t.Fatalf("get bare: %v", err)
	}
	if gotBare.Impact != nil || gotBare.Urgency != nil || gotBare.DueDate != nil {
		t.Fatalf("null columns materialized: %#v", gotBare)
	}
}

func TestListTasksFilters(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i, tc := range []struct {
		id        string
		project   string
		completed bool
	}{
		{"a", "p1", false},
		{"b", "p1", true},
		{"c", "p2", false},
	} {
		task := model.Task{
			ID: tc.id, Content: "task " + tc.id, ProjectID: tc.project,
			Completed: tc.completed,
			CreatedAt: repoNow.Add(time.Duration(i) * time.Second),
			UpdatedAt: repoNow,
		}
		if err := repo.CreateTask(ctx, task); err != nil {
			t.Fatalf("create %s: %v", tc.id, err)
		}
	}

	open := false
	got, err := repo.ListTasks(ctx, TaskListFilter{ProjectID: "p1", Completed: &open})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("combined filter broken: %#v", got)
	}
}

func TestCalendarCRUD(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	cal := model.Calendar{
		ID: "cal-1", Name: "Work", Color: "#336699",
		Visible: true, Default: true,
		CreatedAt: repoNow, UpdatedAt: repoNow,
	}
	if err := repo.CreateCalendar(ctx, cal); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetCalendar(ctx, "cal-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Work" || !got.Visible || !got.Default || got.ReadOnly {
		t.Fatalf("fields lost: %#v", got)
	}

	got.Visible = false
	if err := repo.UpdateCalendar(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := repo.ListCalendars(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Visible {
		t.Fatalf("update not visible in list: %#v", list)
	}

	if err := repo.DeleteCalendar(ctx, "cal-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetCalendar(ctx, "cal-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectCRUD(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for _, p := range []model.Project{
		{ID: "p2", Name: "Home", Order: 2, CreatedAt: repoNow, UpdatedAt: repoNow},
		{ID: "p1", Name: "Work", Order: 1, CreatedAt: repoNow, UpdatedAt: repoNow},
	} {
		if err := repo.CreateProject(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.ID, err)
		}
	}

	list, err := repo.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "p1" || list[1].ID != "p2" {
		t.Fatalf("sort order broken: %#v", list)
	}

	p := list[1]
	p.Collapsed = true
	if err := repo.UpdateProject(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetProject(ctx, "p2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Collapsed {
		t.Fatal("collapsed flag lost")
	}

	if err := repo.DeleteProject(ctx, "p2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetProject(ctx, "p2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMigrateDownDropsSchema(t *testing.T) {
	repo := setupRepo(t)
	if err := MigrateDown(repo.DB()); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if err := repo.CreateTask(context.Background(), model.Task{
		ID: "t1", Content: "x", CreatedAt: repoNow, UpdatedAt: repoNow,
	}); err == nil {
		t.Fatal("insert into dropped table should fail")
	}
	// Up again restores a usable schema.
	if err := MigrateUp(repo.DB()); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if err := repo.CreateTask(context.Background(), model.Task{
		ID: "t1", Content: "x", CreatedAt: repoNow, UpdatedAt: repoNow,
	}); err != nil {
		t.Fatalf("create after re-migrate: %v", err)
	}
}
