package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	applog "github.com/planline/planline/internal/log"
	"github.com/planline/planline/internal/model"
	"github.com/planline/planline/internal/planner"
	"github.com/planline/planline/internal/storage"
)

var (
	scheduleDuration int
	scheduleHorizon  int
	scheduleCalendar string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule [task-id]",
	Short: "Find the next free slot for a task and book it",
	Long: `Schedule a task into the earliest free gap across all visible calendars.
The slot becomes a concrete, non-recurring event linked back to the task.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()
		ctx := context.Background()

		task, err := repo.GetTask(ctx, args[0])
		if err != nil {
			return fmt.Errorf("task %s: %w", args[0], err)
		}

		duration := task.DurationMinutes
		if cmd.Flags().Changed("duration") {
			duration = scheduleDuration
		}
		if duration <= 0 {
			duration = 30
		}

		horizon := scheduleHorizon
		if horizon <= 0 {
			horizon = cfg.HorizonDays
		}

		calendars, err := repo.ListCalendars(ctx)
		if err != nil {
			return err
		}
		events, err := repo.ListEvents(ctx, storage.EventListFilter{})
		if err != nil {
			return err
		}

		slot, err := planner.FindNextFreeSlot(planner.Request{
			DurationMinutes: duration,
			HorizonDays:     horizon,
			Tick:            time.Duration(cfg.SlotRoundingMinutes) * time.Minute,
			Now:             time.Now(),
		}, events, calendars)
		if err != nil {
			return err
		}
		if slot == nil {
			fmt.Printf("no free %d-minute slot in the next %d days\n", duration, horizon)
			return nil
		}

		calendarID := scheduleCalendar
		if calendarID == "" {
			calendarID = defaultCalendarID(calendars)
		}
		if calendarID == "" {
			return fmt.Errorf("no writable calendar available; pass --calendar")
		}

		now := time.Now()
		ev := model.Event{
			ID:         uuid.NewString(),
			CalendarID: calendarID,
			Title:      task.Content,
			Start:      slot.Start,
			End:        slot.End,
			TaskID:     task.ID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := ev.Validate(); err != nil {
			return err
		}
		if err := repo.CreateEvent(ctx, ev); err != nil {
			return fmt.Errorf("book slot: %w", err)
		}
		applog.Info("task scheduled", "task", task.ID, "event", ev.ID, "start", slot.Start)
		fmt.Printf("scheduled %q at %s\n", task.Content, slot.Start.Format("Mon 2006-01-02 15:04"))
		return nil
	},
}

func defaultCalendarID(calendars []model.Calendar) string {
	for _, cal := range calendars {
		if cal.Default && !cal.ReadOnly {
			return cal.ID
		}
	}
	for _, cal := range calendars {
		if !cal.ReadOnly {
			return cal.ID
		}
	}
	return ""
}

func init() {
	scheduleCmd.Flags().IntVar(&scheduleDuration, "duration", 0, "override duration in minutes")
	scheduleCmd.Flags().IntVar(&scheduleHorizon, "horizon", 0, "search horizon in days")
	scheduleCmd.Flags().StringVarP(&scheduleCalendar, "calendar", "c", "", "target calendar id")
}
