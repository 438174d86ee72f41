package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"coordinator/internal/depinfer"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Infer dependencies for the local board's tasks and report validation issues",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&tasksPath, "tasks", "tasks.json", "Path to the local board's task JSON file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	provider := newFileProvider(tasksPath)
	tasks, err := provider.GetAllTasks(context.Background())
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks found")
		return nil
	}

	inferer := depinfer.New(cfg.DepInfer, nil)
	graph := inferer.Infer(context.Background(), tasks)
	summary := depinfer.ValidateDependencies(graph)

	if len(summary.Issues) == 0 {
		fmt.Println("dependency graph is valid")
		return nil
	}
	for _, issue := range summary.Issues {
		fmt.Printf("[%s] %s\n", issue.Severity, issue.Message)
	}
	return nil
}
