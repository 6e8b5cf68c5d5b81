package temporal

import (
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// checksPerRun bounds history size before the watcher continues as new.
	checksPerRun = 50
	minSleep     = time.Minute
)

type WatchParams struct {
	GameID   uint64
	MaxSleep time.Duration
}

func sleepFor(wait, maxSleep time.Duration) time.Duration {
	if wait < minSleep {
		wait = minSleep
	}
	if maxSleep > 0 && wait > maxSleep {
		wait = maxSleep
	}
	return wait
}

// ForfeitWatchWorkflow polls an active game and claims the timeout for the
// waiting player once the player on turn has let it lapse. The ledger makes
// the decision from block heights; the timer only sets the polling pace.
func ForfeitWatchWorkflow(ctx workflow.Context, params WatchParams) error {
	logger := workflow.GetLogger(ctx)
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 5,
		},
	})

	var a *Activities
	for i := 0; i < checksPerRun; i++ {
		var check TimeoutCheck
		if err := workflow.ExecuteActivity(ctx, a.CheckTimeout, params.GameID).Get(ctx, &check); err != nil {
			return err
		}
		if check.Finished {
			logger.Info("Game finished, watcher done", "gameID", params.GameID)
			return nil
		}

		wait := sleepFor(check.Wait, params.MaxSleep)
		if check.CanForfeit {
			var claimed bool
			if err := workflow.ExecuteActivity(ctx, a.ClaimTimeout, params.GameID, check.Claimant).Get(ctx, &claimed); err != nil {
				return err
			}
			if claimed {
				logger.Info("Timeout claimed", "gameID", params.GameID, "claimant", check.Claimant)
				return nil
			}
			wait = minSleep
		}

		if err := workflow.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	return workflow.NewContinueAsNewError(ctx, ForfeitWatchWorkflow, params)
}
