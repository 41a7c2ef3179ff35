package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/planline/planline/internal/engine"
	applog "github.com/planline/planline/internal/log"
	"github.com/planline/planline/internal/model"
	"github.com/planline/planline/internal/storage"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage events and recurring series",
}

var (
	eventCalendar string
	eventStart    string
	eventEnd      string
	eventLocation string
	eventAllDay   bool
	eventRepeat   string
	eventInterval int
	eventUntil    string
	eventWeekdays string

	eventScope      string
	eventOccurrence string
	eventTitle      string
)

var eventAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create an event, optionally recurring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		start, err := parseWhen(eventStart)
		if err != nil {
			return err
		}
		end, err := parseWhen(eventEnd)
		if err != nil {
			return err
		}

		now := time.Now()
		ev := model.Event{
			ID:         uuid.NewString(),
			CalendarID: eventCalendar,
			Title:      args[0],
			Location:   eventLocation,
			Start:      start,
			End:        end,
			AllDay:     eventAllDay,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if eventRepeat != "" && eventRepeat != "none" {
			rule, rerr := buildRule()
			if rerr != nil {
				return rerr
			}
			ev.Recurrence = rule
		}
		if err := ev.Validate(); err != nil {
			return err
		}
		if err := repo.CreateEvent(context.Background(), ev); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		applog.Info("event created", "id", ev.ID, "recurring", ev.IsRecurring())
		fmt.Printf("created event %s\n", ev.ID)
		return nil
	},
}

var eventDeleteCmd = &cobra.Command{
	Use:   "delete [event-id]",
	Short: "Delete an event, one occurrence, or the series tail",
	Long: `Delete an event. For recurring series, --scope selects what goes:
  this    only the occurrence given by --occurrence
  future  the occurrence given by --occurrence and everything after it
  all     the whole series`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		ctx := context.Background()
		anchor, err := repo.GetEvent(ctx, args[0])
		if err != nil {
			return fmt.Errorf("event %s: %w", args[0], err)
		}
		if anchor.ICSRule != "" {
			return fmt.Errorf("event %s is imported and read-only", anchor.ID)
		}

		mutator := engine.NewMutator()
		var result engine.Result
		switch eventScope {
		case "all", "":
			result = engine.Result{Deleted: []string{anchor.ID}}
		case "this", "future":
			occ, perr := requireOccurrence()
			if perr != nil {
				return perr
			}
			if eventScope == "this" {
				result, err = mutator.DeleteOccurrence(anchor, occ)
			} else {
				result, err = mutator.DeleteThisAndFuture(anchor, occ)
			}
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown scope %q (want this, future or all)", eventScope)
		}

		if err := repo.ReplaceEvents(ctx, result.Updated, result.Deleted); err != nil {
			return fmt.Errorf("persist delete: %w", err)
		}
		applog.Info("event deleted", "id", anchor.ID, "scope", eventScope)
		fmt.Println("deleted")
		return nil
	},
}

var eventEditCmd = &cobra.Command{
	Use:   "edit [event-id]",
	Short: "Edit an event, one occurrence, or the series tail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		ctx := context.Background()
		anchor, err := repo.GetEvent(ctx, args[0])
		if err != nil {
			return fmt.Errorf("event %s: %w", args[0], err)
		}
		if anchor.ICSRule != "" {
			return fmt.Errorf("event %s is imported and read-only", anchor.ID)
		}

		mods, err := buildMods(cmd)
		if err != nil {
			return err
		}
		all, err := repo.ListEvents(ctx, storage.EventListFilter{})
		if err != nil {
			return err
		}

		mutator := engine.NewMutator()
		var result engine.Result
		switch eventScope {
		case "all", "":
			result, err = mutator.ModifyAllInSeries(anchor, mods, all)
		case "this":
			occ, perr := requireOccurrence()
			if perr != nil {
				return perr
			}
			result, err = mutator.ModifyOccurrence(anchor, occ, mods)
		case "future":
			occ, perr := requireOccurrence()
			if perr != nil {
				return perr
			}
			result, err = mutator.ModifyThisAndFuture(anchor, occ, mods, all)
		default:
			return fmt.Errorf("unknown scope %q (want this, future or all)", eventScope)
		}
		if err != nil {
			return err
		}

		if err := repo.ReplaceEvents(ctx, result.Updated, result.Deleted); err != nil {
			return fmt.Errorf("persist edit: %w", err)
		}
		applog.Info("event edited", "id", anchor.ID, "scope", eventScope,
			"updated", len(result.Updated), "deleted", len(result.Deleted))
		fmt.Printf("updated %d event(s)\n", len(result.Updated))
		return nil
	},
}

func buildRule() (*model.RecurrenceRule, error) {
	rule := model.RecurrenceRule{
		Frequency: model.Frequency(eventRepeat),
		Interval:  eventInterval,
	}
	if eventUntil != "" {
		until, err := parseWhen(eventUntil)
		if err != nil {
			return nil, err
		}
		rule.Until = &until
	}
	if eventWeekdays != "" {
		days, err := parseWeekdays(eventWeekdays)
		if err != nil {
			return nil, err
		}
		rule.Weekdays = days
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return &rule, nil
}

func buildMods(cmd *cobra.Command) (model.OccurrenceOverrides, error) {
	var mods model.OccurrenceOverrides
	if cmd.Flags().Changed("title") {
		v := eventTitle
		mods.Title = &v
	}
	if cmd.Flags().Changed("location") {
		v := eventLocation
		mods.Location = &v
	}
	if eventStart != "" {
		t, err := parseWhen(eventStart)
		if err != nil {
			return mods, err
		}
		mods.Start = &t
	}
	if eventEnd != "" {
		t, err := parseWhen(eventEnd)
		if err != nil {
			return mods, err
		}
		mods.End = &t
	}
	if mods.IsZero() {
		return mods, fmt.Errorf("nothing to change: pass --title, --location, --start or --end")
	}
	return mods, nil
}

func requireOccurrence() (time.Time, error) {
	if eventOccurrence == "" {
		return time.Time{}, fmt.Errorf("--occurrence is required for scope %q", eventScope)
	}
	return parseWhen(eventOccurrence)
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekdays(v string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, 7)
	for _, part := range strings.Split(v, ",") {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		out = append(out, day)
	}
	return out, nil
}

func init() {
	eventAddCmd.Flags().StringVarP(&eventCalendar, "calendar", "c", "", "calendar id")
	eventAddCmd.Flags().StringVar(&eventStart, "start", "", "start time")
	eventAddCmd.Flags().StringVar(&eventEnd, "end", "", "end time")
	eventAddCmd.Flags().StringVar(&eventLocation, "location", "", "location")
	eventAddCmd.Flags().BoolVar(&eventAllDay, "all-day", false, "all-day event")
	eventAddCmd.Flags().StringVar(&eventRepeat, "repeat", "", "recurrence frequency (daily, weekly, monthly)")
	eventAddCmd.Flags().IntVar(&eventInterval, "interval", 1, "recurrence interval")
	eventAddCmd.Flags().StringVar(&eventUntil, "until", "", "recurrence end date")
	eventAddCmd.Flags().StringVar(&eventWeekdays, "weekdays", "", "weekday set for weekly rules (e.g. mon,wed,fri)")
	_ = eventAddCmd.MarkFlagRequired("calendar")
	_ = eventAddCmd.MarkFlagRequired("start")
	_ = eventAddCmd.MarkFlagRequired("end")

	for _, cmd := range []*cobra.Command{eventDeleteCmd, eventEditCmd} {
		cmd.Flags().StringVar(&eventScope, "scope", "all", "mutation scope: this, future or all")
		cmd.Flags().StringVar(&eventOccurrence, "occurrence", "", "occurrence start the scope applies to")
	}
	eventEditCmd.Flags().StringVar(&eventTitle, "title", "", "new title")
	eventEditCmd.Flags().StringVar(&eventLocation, "location", "", "new location")
	eventEditCmd.Flags().StringVar(&eventStart, "start", "", "new start time")
	eventEditCmd.Flags().StringVar(&eventEnd, "end", "", "new end time")

	eventCmd.AddCommand(eventAddCmd)
	eventCmd.AddCommand(eventDeleteCmd)
	eventCmd.AddCommand(eventEditCmd)
}
