package api

import (
	"net/http"
	"time"

	"antroute/internal/buildinfo"
	"antroute/internal/opt"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.Config
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"port":            c.Port,
			"rateRps":         c.RateRPS,
			"rateBurst":       c.RateBurst,
			"dbMigrate":       c.DBMigrate,
			"hasDatabaseUrl":  c.DatabaseURL != "",
			"hasSqlitePath":   c.SQLitePath != "",
			"hasRedisUrl":     c.RedisURL != "",
			"solverDefaults":  c.Solver,
			"maxTicksPerIter": opt.MaxTicks,
		},
	}
	writeJSON(w, http.StatusOK, info)
}
