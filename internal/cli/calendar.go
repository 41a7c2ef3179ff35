package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/planline/planline/internal/model"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Manage calendars",
}

var (
	calendarColor   string
	calendarHidden  bool
	calendarDefault bool
)

var calendarAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a calendar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		now := time.Now()
		cal := model.Calendar{
			ID:        uuid.NewString(),
			Name:      args[0],
			Color:     calendarColor,
			Visible:   !calendarHidden,
			Default:   calendarDefault,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := cal.Validate(); err != nil {
			return err
		}
		if err := repo.CreateCalendar(context.Background(), cal); err != nil {
			return fmt.Errorf("create calendar: %w", err)
		}
		fmt.Printf("created calendar %s (%s)\n", cal.Name, cal.ID)
		return nil
	},
}

var calendarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List calendars",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		cals, err := repo.ListCalendars(context.Background())
		if err != nil {
			return err
		}
		for _, cal := range cals {
			flags := ""
			if !cal.Visible {
				flags += " hidden"
			}
			if cal.ReadOnly {
				flags += " read-only"
			}
			if cal.Default {
				flags += " default"
			}
			fmt.Printf("%s  %s%s\n", cal.ID, cal.Name, flags)
		}
		return nil
	},
}

func init() {
	calendarAddCmd.Flags().StringVar(&calendarColor, "color", "#3b82f6", "display color")
	calendarAddCmd.Flags().BoolVar(&calendarHidden, "hidden", false, "exclude from agenda and slot search")
	calendarAddCmd.Flags().BoolVar(&calendarDefault, "default", false, "use as the default calendar")
	calendarCmd.AddCommand(calendarAddCmd)
	calendarCmd.AddCommand(calendarListCmd)
}
