package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"coordinator/internal/domain"
)

var tasksPath string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show task counts by status from the local board file",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&tasksPath, "tasks", "tasks.json", "Path to the local board's task JSON file")
}

func runStatus(cmd *cobra.Command, args []string) error {
	provider := newFileProvider(tasksPath)
	tasks, err := provider.GetAllTasks(context.Background())
	if err != nil {
		return err
	}

	counts := map[domain.Status]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}

	fmt.Printf("%d tasks total\n", len(tasks))
	for _, s := range []domain.Status{domain.StatusTodo, domain.StatusInProgress, domain.StatusBlocked, domain.StatusDone} {
		fmt.Printf("  %-12s %d\n", s, counts[s])
	}
	return nil
}
