package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/planline/planline/internal/ics"
	applog "github.com/planline/planline/internal/log"
	"github.com/planline/planline/internal/model"
)

var icsCmd = &cobra.Command{
	Use:   "ics",
	Short: "Work with ICS feeds",
}

var icsCalendarName string

var icsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import an ICS file into a new read-only calendar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()
		ctx := context.Background()

		body, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read feed: %w", err)
		}

		now := time.Now()
		name := icsCalendarName
		if name == "" {
			name = args[0]
		}
		cal := model.Calendar{
			ID:        uuid.NewString(),
			Name:      name,
			Visible:   true,
			ReadOnly:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.CreateCalendar(ctx, cal); err != nil {
			return fmt.Errorf("create calendar: %w", err)
		}

		events, err := ics.ParseFeed(cal.ID, body)
		if err != nil {
			return fmt.Errorf("parse feed: %w", err)
		}
		for _, ev := range events {
			ev.CreatedAt = now
			ev.UpdatedAt = now
			if err := repo.CreateEvent(ctx, ev); err != nil {
				return fmt.Errorf("import event %s: %w", ev.ID, err)
			}
		}
		applog.Info("ics feed imported", "calendar", cal.ID, "events", len(events))
		fmt.Printf("imported %d event(s) into calendar %s\n", len(events), cal.Name)
		return nil
	},
}

func init() {
	icsImportCmd.Flags().StringVar(&icsCalendarName, "name", "", "calendar name (default: file name)")
	icsCmd.AddCommand(icsImportCmd)
}
