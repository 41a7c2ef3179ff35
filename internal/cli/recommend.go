package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/planline/planline/internal/recommend"
	"github.com/planline/planline/internal/storage"
)

var recommendLimit int

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show the tasks most worth doing next",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		tasks, err := repo.ListTasks(context.Background(), storage.TaskListFilter{})
		if err != nil {
			return err
		}

		limit := recommendLimit
		if limit <= 0 {
			limit = cfg.RecommendLimit
		}
		now := time.Now()
		for _, t := range recommend.RecommendedTasks(tasks, limit, now) {
			fmt.Printf("%3d  %s  (%s)\n", recommend.Score(t, now), t.Content, recommend.Reason(t, now))
		}
		return nil
	},
}

func init() {
	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "n", 0, "number of tasks to show")
}
