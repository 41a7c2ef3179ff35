package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/planline/planline/internal/model"
	"github.com/planline/planline/internal/recommend"
	"github.com/planline/planline/internal/storage"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the can-do list",
}

var (
	taskProject  string
	taskDuration int
	taskImpact   int
	taskUrgency  int
	taskDue      string
	taskMyDay    bool
)

var taskAddCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		content := args[0]
		for _, arg := range args[1:] {
			content += " " + arg
		}

		now := time.Now()
		task := model.Task{
			ID:              uuid.NewString(),
			Content:         content,
			ProjectID:       taskProject,
			DurationMinutes: taskDuration,
			MyDay:           taskMyDay,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if cmd.Flags().Changed("impact") {
			v := taskImpact
			task.Impact = &v
		}
		if cmd.Flags().Changed("urgency") {
			v := taskUrgency
			task.Urgency = &v
		}
		if taskDue != "" {
			due, perr := parseWhen(taskDue)
			if perr != nil {
				return perr
			}
			task.DueDate = &due
		}
		if err := task.Validate(); err != nil {
			return err
		}
		if err := repo.CreateTask(context.Background(), task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		fmt.Printf("added task %s\n", task.ID)
		return nil
	},
}

var taskListAll bool

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		filter := storage.TaskListFilter{ProjectID: taskProject}
		if !taskListAll {
			incomplete := false
			filter.Completed = &incomplete
		}
		tasks, err := repo.ListTasks(context.Background(), filter)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			marker := " "
			if t.Completed {
				marker = "x"
			}
			line := fmt.Sprintf("[%s] %s  %s", marker, t.ID, t.Content)
			if p := recommend.Priority(t.Impact, t.Urgency); p != nil {
				line += fmt.Sprintf("  P%d", *p)
			}
			if t.DueDate != nil {
				line += "  due " + t.DueDate.Format("2006-01-02")
			}
			fmt.Println(line)
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Complete a task",
	Args:  cobra.ExactArgs(1),
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
		task.Completed = true
		task.UpdatedAt = time.Now()
		if err := repo.UpdateTask(ctx, task); err != nil {
			return err
		}
		fmt.Printf("completed %s\n", task.Content)
		return nil
	},
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskProject, "project", "P", "", "project id")
	taskAddCmd.Flags().IntVar(&taskDuration, "duration", 0, "duration estimate in minutes")
	taskAddCmd.Flags().IntVar(&taskImpact, "impact", 0, "impact signal (0-10)")
	taskAddCmd.Flags().IntVar(&taskUrgency, "urgency", 0, "urgency signal (0-10)")
	taskAddCmd.Flags().StringVarP(&taskDue, "due", "d", "", "due date (e.g. 2026-03-01)")
	taskAddCmd.Flags().BoolVar(&taskMyDay, "my-day", false, "pin to My Day")
	taskListCmd.Flags().StringVarP(&taskProject, "project", "P", "", "filter by project id")
	taskListCmd.Flags().BoolVarP(&taskListAll, "all", "a", false, "include completed tasks")
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
}
