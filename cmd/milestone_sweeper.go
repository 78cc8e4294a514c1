package main

import (
	"context"
	"log"
	"time"

	"kolabBack/internal/services"
)

const (
	milestoneSweepInterval = 1 * time.Hour
	milestoneSweepTimeout  = 5 * time.Minute
)

// startMilestoneSweeper runs the two periodic milestone jobs: marking past
// due installments overdue and auto-collecting the ones with a saved
// payment method.
func startMilestoneSweeper(ctx context.Context, svc *services.MilestoneService, infoLog, errorLog *log.Logger) {
	if svc == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(milestoneSweepInterval)
		defer ticker.Stop()

		runOnce := func() {
			runCtx, cancel := context.WithTimeout(ctx, milestoneSweepTimeout)
			defer cancel()

			now := time.Now().UTC()
			overdue, err := svc.MarkOverdue(runCtx, now)
			if err != nil {
				if errorLog != nil {
					errorLog.Printf("milestone sweeper: mark overdue: %v", err)
				}
			} else if overdue > 0 && infoLog != nil {
				infoLog.Printf("milestone sweeper: %d milestones marked overdue", overdue)
			}

			collected, err := svc.CollectDue(runCtx, now)
			if err != nil {
				if errorLog != nil {
					errorLog.Printf("milestone sweeper: collect due: %v", err)
				}
			} else if collected > 0 && infoLog != nil {
				infoLog.Printf("milestone sweeper: %d milestones auto-collected", collected)
			}
		}

		runOnce()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()
}
