package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"coordinator/internal/coordinator"
	"coordinator/internal/contextstore"
	"coordinator/internal/depinfer"
	"coordinator/internal/eventbus"
	"coordinator/internal/memory"
	"coordinator/internal/persistence"
)

var agentIDs []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run one assignment pass against the local board file for each given agent",
	Long: `serve wires persistence, the event bus, memory, the context store,
and the hybrid dependency inferer into a Coordinator, then requests one
task per agent against the local board file. It is a demonstration
driver, not a long-running server: a real deployment calls the
coordinator package's methods directly from whatever process terminates
agent requests.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&tasksPath, "tasks", "tasks.json", "Path to the local board's task JSON file")
	serveCmd.Flags().StringSliceVar(&agentIDs, "agent", nil, "Agent id to request a task for (repeatable)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backing, err := persistence.New(cfg.Persistence)
	if err != nil {
		return fmt.Errorf("open persistence backend: %w", err)
	}

	bus := eventbus.New(eventbus.Config{
		HistorySize:       cfg.EventBus.HistorySize,
		EnableHistory:     cfg.EventBus.EnableHistory,
		EnablePersistence: cfg.EventBus.EnablePersistence,
	}, backing)
	bus.Subscribe(eventbus.TaskAssigned, func(e eventbus.Event) error {
		fmt.Printf("task_assigned: %v\n", e.Data)
		return nil
	})

	ctxStore := contextstore.New(bus, backing)

	median, _ := backing.(persistence.MedianProvider)
	mem := memory.New(memory.Config{
		LearningRate: cfg.Memory.LearningRate,
		MemoryDecay:  cfg.Memory.MemoryDecay,
	}, bus, backing, median)

	inferer := depinfer.New(cfg.DepInfer, nil)

	provider := newFileProvider(tasksPath)
	coord := coordinator.New(*cfg, bus, ctxStore, mem, inferer, provider)
	coord.Startup()
	defer coord.Shutdown()

	if len(agentIDs) == 0 {
		agentIDs = []string{"agent-1"}
	}

	ctx := context.Background()
	for _, agentID := range agentIDs {
		coord.RegisterAgent(coordinator.Agent{ID: agentID})
		bundle, err := coord.RequestNextTask(ctx, agentID)
		if err != nil {
			fmt.Printf("%s: error requesting task: %v\n", agentID, err)
			continue
		}
		if bundle == nil {
			fmt.Printf("%s: no ready task\n", agentID)
			continue
		}
		fmt.Printf("%s: assigned %s (%s), predicted success %.2f\n",
			agentID, bundle.Task.ID, bundle.Task.Name, bundle.Predictions.AdjustedSuccess)
	}
	return nil
}
