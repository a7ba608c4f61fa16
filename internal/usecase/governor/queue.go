package governor

import (
	"context"
	"log/slog"
)

// ProcessQueue dequeues FIFO while concurrency and hourly budgets allow,
// starting each dequeued run through the orchestrator. A halted governor
// or an empty/exhausted queue ends the pass.
func (g *Service) ProcessQueue(ctx context.Context) {
	if g.Halted() {
		return
	}
	for {
		if !g.hasConcurrencySlack() || !g.hasHourlySlack(ctx) {
			return
		}
		qr, err := g.Queue.Dequeue(ctx)
		if err != nil {
			slog.Warn("governor: dequeue failed", slog.Any("error", err))
			return
		}
		if qr == nil {
			return
		}
		run, err := g.Runs.Get(ctx, qr.ID)
		if err != nil {
			slog.Warn("governor: fetch queued run failed", slog.Int64("run_id", qr.ID), slog.Any("error", err))
			continue
		}
		if run.Status.IsTerminal() {
			continue // cancelled or otherwise resolved while queued
		}
		g.launch(run)
	}
}
