package api

import (
	"context"
	"time"

	"antroute/internal/metrics"
	"antroute/internal/model"
	"antroute/internal/opt"
	"antroute/internal/warehouse"
)

// runObserver streams engine progress to the broker, the progress cache and
// the solver metrics.
type runObserver struct {
	s      *Server
	tenant string
	runID  string
	metrics.SolveObserver
}

func (o *runObserver) Improved(iteration int, score float64) {
	o.SolveObserver.Improved(iteration, score)
	o.s.Progress.Upsert(RunProgress{
		Tenant:    o.tenant,
		RunID:     o.runID,
		Status:    model.RunRunning,
		Iteration: iteration,
		BestScore: score,
		TS:        time.Now().UTC().Format(time.RFC3339),
	})
	o.s.Broker.Publish(o.runID, SSEEvent{Type: "run.improved", Data: map[string]any{
		"runId": o.runID, "iteration": iteration, "score": score,
	}})
}

// execute runs the optimizer for a stored run and persists the outcome. The
// returned error is the solver error, if any; the run itself is always
// updated.
func (s *Server) execute(ctx context.Context, run model.Run, wh model.Warehouse, orders []model.Order, p opt.Params) (model.Run, error) {
	start := time.Now()
	log := s.Log.With("run", run.ID, "tenant", run.TenantID)

	run.Status = model.RunRunning
	if err := s.Store.UpdateRun(ctx, run); err != nil {
		log.Warn("mark run running", "error", err)
	}
	s.Broker.Publish(run.ID, SSEEvent{Type: "run.started", Data: map[string]any{
		"runId": run.ID, "iterations": p.Iterations,
	}})

	obs := &runObserver{s: s, tenant: run.TenantID, runID: run.ID}
	plan, err := warehouse.Solve(wh, orders, p, run.Params.Seed, opt.WithObserver(obs), opt.WithLogger(log))
	rec := plan.Record
	statsKey := run.WarehouseID
	if statsKey == "" {
		statsKey = "inline"
	}
	opt.RecordRun(run.TenantID, statsKey, rec)

	run.Iterations, run.Ticks = rec.Iterations, rec.Ticks
	run.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	history := make([]model.ScorePoint, len(rec.History))
	for i, h := range rec.History {
		history[i] = model.ScorePoint{Iteration: h.Iteration, Score: h.Score}
		if i < len(rec.Improvements) {
			history[i].Routes = warehouse.RobotRoutes(wh.Robots, &rec.Improvements[i])
		}
	}
	if herr := s.Store.SaveRunHistory(ctx, run.TenantID, run.ID, history); herr != nil {
		log.Warn("save run history", "error", herr)
	}

	switch {
	case err != nil:
		run.Status = model.RunFailed
		run.Error = err.Error()
		log.Error("solve failed", "error", err, "ticks", rec.Ticks)
	case plan.Solution == nil:
		run.Status = model.RunInfeasible
		log.Warn("solve found no solution")
	default:
		best := plan.Solution.Score
		run.Status = model.RunCompleted
		run.BestScore = &best
		run.BestIteration = plan.Solution.Iteration
		run.Routes = plan.Routes
		metrics.BestScore.Set(best)
		log.Info("solve completed", "bestScore", best, "iterations", rec.Iterations, "duration", time.Since(start))
	}
	metrics.SolverRuns.WithLabelValues(run.Status).Inc()
	metrics.SolveDuration.Observe(time.Since(start).Seconds())
	s.Progress.Delete(run.TenantID, run.ID)

	// persisted before the final event goes out
	if uerr := s.Store.UpdateRun(ctx, run); uerr != nil {
		log.Error("persist run", "error", uerr)
	}
	final := finalEvent(run)
	s.Broker.Publish(run.ID, final)
	s.Pub.Emit(run.TenantID, final.Type, run)
	return run, err
}
