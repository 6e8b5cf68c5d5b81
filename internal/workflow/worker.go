package temporal

import (
	"context"
	"fmt"
	"log"
	"time"

	"stackstactoe/config"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func NewWorker(c client.Client, taskQueue string, ledger TimeoutLedger) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(ForfeitWatchWorkflow)
	w.RegisterActivity(&Activities{Ledger: ledger})
	return w
}

// StartWorker runs the forfeiture worker in the background until the
// process is interrupted.
func StartWorker(c client.Client, cfg *config.TemporalConfig, ledger TimeoutLedger) worker.Worker {
	w := NewWorker(c, cfg.TaskQueue, ledger)
	go func() {
		if err := w.Run(worker.InterruptCh()); err != nil {
			log.Fatalf("Failed to start worker: %v", err)
		}
	}()
	return w
}

func WorkflowID(gameID uint64) string {
	return fmt.Sprintf("forfeit-watch-%d", gameID)
}

// Scheduler starts one forfeiture watcher per active game.
type Scheduler struct {
	client    client.Client
	taskQueue string
	maxSleep  time.Duration
}

func NewScheduler(c client.Client, cfg *config.TemporalConfig) *Scheduler {
	return &Scheduler{client: c, taskQueue: cfg.TaskQueue, maxSleep: cfg.MaxSleep}
}

// WatchGame is idempotent: a watcher already running for the game is left
// as is.
func (s *Scheduler) WatchGame(ctx context.Context, gameID uint64) error {
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(gameID),
		TaskQueue: s.taskQueue,
	}, ForfeitWatchWorkflow, WatchParams{GameID: gameID, MaxSleep: s.maxSleep})
	if err != nil {
		return fmt.Errorf("failed to start forfeit watcher: %w", err)
	}
	log.Printf("Forfeit watcher %s running (run %s)", run.GetID(), run.GetRunID())
	return nil
}
