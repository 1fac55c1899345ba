package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"antroute/internal/model"
	"antroute/internal/opt"
	"antroute/internal/warehouse"
)

// WarehousesHandler handles POST /v1/warehouses (JSON or YAML topology).
func (s *Server) WarehousesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/warehouses" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanSolve() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "operator or admin required", r.URL.Path)
		return
	}
	var wh model.Warehouse
	if err := decodeBody(r, &wh); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error(), r.URL.Path)
		return
	}
	g, err := warehouse.BuildGraph(wh, nil)
	if err == nil {
		_, err = warehouse.NewFleet(g, wh.Robots, 0)
	}
	if err != nil {
		writeError(w, r, "Invalid warehouse", err)
		return
	}
	created, err := s.Store.CreateWarehouse(r.Context(), p.Tenant, wh)
	if err != nil {
		writeError(w, r, "Create warehouse failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// WarehouseByIDHandler handles GET /v1/warehouses/{id}
func (s *Server) WarehouseByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/warehouses/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	wh, err := s.Store.GetWarehouse(r.Context(), s.getPrincipal(r).Tenant, id)
	if err != nil {
		writeError(w, r, "Warehouse not found", err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

// SolveHandler handles POST /v1/solve. Synchronous solves answer with the
// finished run; async solves answer 202 with the run id and stream progress.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pr := s.getPrincipal(r)
	if !pr.CanSolve() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "operator or admin required", r.URL.Path)
		return
	}
	var req model.SolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeError(w, r, "Invalid solve request", err)
		return
	}
	if req.TenantID == "" {
		req.TenantID = pr.Tenant
	}

	var wh model.Warehouse
	if req.Warehouse != nil {
		wh = *req.Warehouse
	} else {
		stored, err := s.Store.GetWarehouse(r.Context(), req.TenantID, req.WarehouseID)
		if err != nil {
			writeError(w, r, "Warehouse not found", err)
			return
		}
		wh = stored
	}

	tenantCfg, err := s.Store.GetOptimizerConfig(r.Context(), req.TenantID)
	if err != nil {
		writeError(w, r, "Load optimizer config failed", err)
		return
	}
	params := mergeParams(s.Config.Solver, tenantCfg, req.Params)
	if err := params.Validate(); err != nil {
		writeError(w, r, "Invalid solve parameters", err)
		return
	}
	// Reject bad topologies and orders before a run is recorded.
	g, err := warehouse.BuildGraph(wh, req.Orders)
	if err == nil {
		_, err = warehouse.NewFleet(g, wh.Robots, req.Params.Seed)
	}
	if err != nil {
		writeError(w, r, "Invalid solve request", err)
		return
	}

	run, err := s.Store.CreateRun(r.Context(), model.Run{
		TenantID:    req.TenantID,
		WarehouseID: req.WarehouseID,
		Status:      model.RunQueued,
		Params: model.RunParams{
			Iterations: params.Iterations,
			Alpha:      params.Alpha,
			Beta:       params.Beta,
			DecayRate:  params.DecayRate,
			Seed:       req.Params.Seed,
		},
	})
	if err != nil {
		writeError(w, r, "Create run failed", err)
		return
	}

	if req.Async {
		ctx := context.WithoutCancel(r.Context())
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			_, _ = s.execute(ctx, run, wh, req.Orders, params)
		}()
		writeJSON(w, http.StatusAccepted, map[string]any{"runId": run.ID, "status": run.Status})
		return
	}
	done, err := s.execute(r.Context(), run, wh, req.Orders, params)
	if err != nil {
		writeError(w, r, "Solve failed", fmt.Errorf("run %s: %w", done.ID, err))
		return
	}
	writeJSON(w, http.StatusOK, done)
}

// RunsIndexHandler handles GET /v1/runs
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenant := s.getPrincipal(r).Tenant
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListRuns(r.Context(), tenant, cursor, limit)
	if err != nil {
		writeError(w, r, "List runs failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id}, /v1/runs/{id}/history and
// /v1/runs/{id}/events/stream
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/runs/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	tenant := s.getPrincipal(r).Tenant
	run, err := s.Store.GetRun(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, "Run not found", err)
		return
	}
	switch {
	case len(parts) == 1:
		writeJSON(w, http.StatusOK, run)
	case len(parts) == 2 && parts[1] == "history":
		items, err := s.Store.ListRunHistory(r.Context(), tenant, id)
		if err != nil {
			writeError(w, r, "Run history failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runId": id, "items": items})
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "stream":
		s.streamRun(w, r, run)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
	}
}

func terminal(status string) bool {
	return status == model.RunCompleted || status == model.RunInfeasible || status == model.RunFailed
}

// finalEvent rebuilds the last event of a finished run.
func finalEvent(run model.Run) SSEEvent {
	if run.Status == model.RunFailed {
		return SSEEvent{Type: "run.failed", Data: map[string]any{"runId": run.ID, "error": run.Error}}
	}
	data := map[string]any{"runId": run.ID, "status": run.Status}
	if run.BestScore != nil {
		data["bestScore"] = *run.BestScore
		data["bestIteration"] = run.BestIteration
	}
	return SSEEvent{Type: "run.completed", Data: data}
}

func writeSSE(w http.ResponseWriter, f http.Flusher, evt SSEEvent) {
	b, _ := json.Marshal(evt.Data)
	fmt.Fprintf(w, "event: %s\n", evt.Type)
	fmt.Fprintf(w, "data: %s\n\n", string(b))
	f.Flush()
}

// streamRun serves run events as SSE until the run finishes or the client
// goes away.
func (s *Server) streamRun(w http.ResponseWriter, r *http.Request, run model.Run) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if terminal(run.Status) {
		writeSSE(w, flusher, finalEvent(run))
		return
	}
	ch := s.Broker.Subscribe(run.ID)
	defer s.Broker.Unsubscribe(run.ID, ch)

	// The run may have finished between the lookup and the subscription.
	if cur, err := s.Store.GetRun(r.Context(), run.TenantID, run.ID); err == nil && terminal(cur.Status) {
		writeSSE(w, flusher, finalEvent(cur))
		return
	}
	if p, ok := s.Progress.Get(run.TenantID, run.ID); ok {
		writeSSE(w, flusher, SSEEvent{Type: "run.progress", Data: map[string]any{
			"runId": p.RunID, "iteration": p.Iteration, "score": p.BestScore,
		}})
	} else {
		writeSSE(w, flusher, SSEEvent{Type: "heartbeat", Data: map[string]any{"runId": run.ID, "ts": time.Now().UTC().Format(time.RFC3339)}})
	}

	every := s.Heartbeat
	if every <= 0 {
		every = 15 * time.Second
	}
	heartbeat := time.NewTicker(every)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, flusher, evt)
			if evt.Type == "run.completed" || evt.Type == "run.failed" {
				return
			}
		case <-heartbeat.C:
			// the terminal event can be lost to a full subscriber buffer
			if cur, err := s.Store.GetRun(r.Context(), run.TenantID, run.ID); err == nil && terminal(cur.Status) {
				writeSSE(w, flusher, finalEvent(cur))
				return
			}
			writeSSE(w, flusher, SSEEvent{Type: "heartbeat", Data: map[string]any{"runId": run.ID, "ts": time.Now().UTC().Format(time.RFC3339)}})
		}
	}
}

// OptimizerConfigHandler returns the solver defaults with the tenant overlay.
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimizer/config" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	cfg, err := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
	if err != nil {
		writeError(w, r, "Load optimizer config failed", err)
		return
	}
	eff := mergeParams(s.Config.Solver, cfg, model.SolveParams{})
	writeJSON(w, http.StatusOK, map[string]any{
		"defaults": map[string]any{
			"iterations": eff.Iterations,
			"alpha":      eff.Alpha,
			"beta":       eff.Beta,
			"decayRate":  eff.DecayRate,
			"maxTicks":   opt.MaxTicks,
		},
	})
}

// AdminOptimizerConfigHandler gets or replaces the tenant solver overlay.
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/optimizer/config" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
		if err != nil {
			writeError(w, r, "Load optimizer config failed", err)
			return
		}
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config" yaml:"config"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, http.StatusBadRequest, "Missing config", "", r.URL.Path)
			return
		}
		if err := mergeParams(s.Config.Solver, body.Config, model.SolveParams{}).Validate(); err != nil {
			writeError(w, r, "Invalid optimizer config", err)
			return
		}
		if err := s.Store.SaveOptimizerConfig(r.Context(), p.Tenant, body.Config); err != nil {
			writeError(w, r, "Save failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SolverStatsHandler reports the latest in-process run record per warehouse.
func (s *Server) SolverStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/solver/stats" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	items := []map[string]any{}
	for wh, rec := range opt.LatestRuns(p.Tenant) {
		item := map[string]any{
			"warehouseId":  wh,
			"iterations":   rec.Iterations,
			"ticks":        rec.Ticks,
			"improvements": len(rec.History),
			"params":       rec.Params,
		}
		if rec.Best != nil {
			item["bestScore"] = rec.BestScore
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using a SQL store
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
