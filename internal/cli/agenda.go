package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/planline/planline/internal/engine"
	"github.com/planline/planline/internal/ics"
	"github.com/planline/planline/internal/model"
	"github.com/planline/planline/internal/storage"
)

var (
	agendaFrom string
	agendaDays int
)

var agendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Show occurrences of all visible calendars",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()
		ctx := context.Background()

		from := time.Now()
		if agendaFrom != "" {
			if from, err = parseWhen(agendaFrom); err != nil {
				return err
			}
		}
		to := from.AddDate(0, 0, agendaDays)

		calendars, err := repo.ListCalendars(ctx)
		if err != nil {
			return err
		}
		visible := make(map[string]bool, len(calendars))
		for _, cal := range calendars {
			if cal.Visible {
				visible[cal.ID] = true
			}
		}

		events, err := repo.ListEvents(ctx, storage.EventListFilter{})
		if err != nil {
			return err
		}

		occs := make([]model.Occurrence, 0)
		for _, ev := range events {
			if !visible[ev.CalendarID] {
				continue
			}
			var expanded []model.Occurrence
			if ev.ICSRule != "" {
				expanded, err = ics.ExpandImported(ev, from, to)
			} else {
				expanded, err = engine.Expand(ev, from, to, ev.Exceptions)
			}
			if err != nil {
				return fmt.Errorf("expand %s: %w", ev.ID, err)
			}
			occs = append(occs, expanded...)
		}
		sort.Slice(occs, func(i, j int) bool { return occs[i].Start.Before(occs[j].Start) })

		for _, occ := range occs {
			when := occ.Start.Format("Mon 2006-01-02 15:04") + " - " + occ.End.Format("15:04")
			if occ.AllDay {
				when = occ.Start.Format("Mon 2006-01-02") + " (all day)"
			}
			line := when + "  " + occ.Title
			if occ.IsException {
				line += " *"
			}
			if occ.Location != "" {
				line += "  @" + occ.Location
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	agendaCmd.Flags().StringVar(&agendaFrom, "from", "", "window start (default now)")
	agendaCmd.Flags().IntVar(&agendaDays, "days", 7, "window length in days")
}
