package api

import (
	"net/http"
	"strings"
)

// Minimal GraphQL-like HTTP handler.
// Supports queries:
// - runs: list runs for tenant (variables: cursor, limit)
// - run(id: $id): get run by id, with its score history
func (s *Server) GraphQLHTTPHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error(), r.URL.Path)
		return
	}
	q := strings.ToLower(body.Query)
	tenant := s.getPrincipal(r).Tenant
	str := func(k string) string { v, _ := body.Variables[k].(string); return v }
	switch {
	case strings.Contains(q, "run("):
		id := str("id")
		if id == "" {
			writeProblem(w, http.StatusBadRequest, "Missing id", "", r.URL.Path)
			return
		}
		run, err := s.Store.GetRun(r.Context(), tenant, id)
		if err != nil {
			writeError(w, r, "Run not found", err)
			return
		}
		data := map[string]any{"run": run}
		if strings.Contains(q, "history") {
			h, err := s.Store.ListRunHistory(r.Context(), tenant, id)
			if err != nil {
				writeError(w, r, "Run history failed", err)
				return
			}
			data["history"] = h
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": data})
	case strings.Contains(q, "runs"):
		limit := 100
		if v, ok := body.Variables["limit"].(float64); ok {
			limit = int(v)
		}
		items, next, err := s.Store.ListRuns(r.Context(), tenant, str("cursor"), limit)
		if err != nil {
			writeError(w, r, "List runs failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"runs": items, "nextCursor": next}})
	default:
		writeProblem(w, http.StatusBadRequest, "Unsupported query", "", r.URL.Path)
	}
}
