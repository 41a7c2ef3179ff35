package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/planline/planline/internal/model"
	"github.com/planline/planline/internal/storage"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var (
	projectParent string
	projectOrder  int
)

var projectAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		now := time.Now()
		project := model.Project{
			ID:        uuid.NewString(),
			Name:      args[0],
			ParentID:  projectParent,
			Order:     projectOrder,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := project.Validate(); err != nil {
			return err
		}
		if err := repo.CreateProject(context.Background(), project); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		fmt.Printf("created project %s (%s)\n", project.Name, project.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects with their open task counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()
		ctx := context.Background()

		projects, err := repo.ListProjects(ctx)
		if err != nil {
			return err
		}
		open := false
		for _, p := range projects {
			tasks, lerr := repo.ListTasks(ctx, storage.TaskListFilter{ProjectID: p.ID, Completed: &open})
			if lerr != nil {
				return lerr
			}
			indent := ""
			if p.ParentID != "" {
				indent = "  "
			}
			fmt.Printf("%s%s  %s  (%d open)\n", indent, p.ID, p.Name, len(tasks))
		}
		return nil
	},
}

func init() {
	projectAddCmd.Flags().StringVar(&projectParent, "parent", "", "parent project id")
	projectAddCmd.Flags().IntVar(&projectOrder, "order", 0, "sort order")
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
}
