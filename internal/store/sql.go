package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"time"

	"antroute/internal/model"
)

//go:embed migrations
var migrations embed.FS

var placeholder = regexp.MustCompile(`\$(\d+)`)

// sqlStore implements Store on database/sql. Queries are written with
// Postgres $N placeholders and rebound for SQLite.
type sqlStore struct {
	db      *sql.DB
	dialect string // "postgres" or "sqlite"
}

func (s *sqlStore) q(query string) string {
	if s.dialect == "sqlite" {
		return placeholder.ReplaceAllString(query, "?$1")
	}
	return query
}

// Ping checks database connectivity.
func (s *sqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the connection pool.
func (s *sqlStore) Close() error { return s.db.Close() }

// Migrate applies the embedded schema files for the store's dialect in name order.
func (s *sqlStore) Migrate(ctx context.Context) error {
	dir := "migrations/" + s.dialect
	entries, err := fs.ReadDir(migrations, dir)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := fs.ReadFile(migrations, dir+"/"+name)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}

func (s *sqlStore) CreateWarehouse(ctx context.Context, tenantID string, w model.Warehouse) (model.Warehouse, error) {
	if w.ID == "" {
		w.ID = newID()
	}
	w.TenantID = tenantID
	if w.CreatedAt == "" {
		w.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(w)
	if err != nil {
		return model.Warehouse{}, err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO warehouses (id, tenant_id, body, created_at) VALUES ($1,$2,$3,$4)`),
		w.ID, tenantID, string(body), w.CreatedAt)
	if err != nil {
		return model.Warehouse{}, err
	}
	return w, nil
}

func (s *sqlStore) GetWarehouse(ctx context.Context, tenantID, id string) (model.Warehouse, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT body FROM warehouses WHERE tenant_id=$1 AND id=$2`), tenantID, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Warehouse{}, ErrNotFound
	}
	if err != nil {
		return model.Warehouse{}, err
	}
	var w model.Warehouse
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return model.Warehouse{}, err
	}
	return w, nil
}

func (s *sqlStore) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
	if run.ID == "" {
		run.ID = newID()
	}
	if run.CreatedAt == "" {
		run.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	params, routes, err := runJSON(run)
	if err != nil {
		return model.Run{}, err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO runs (id, tenant_id, warehouse_id, status, params, best_score, best_iteration, routes, iterations, ticks, error, created_at, finished_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`),
		run.ID, run.TenantID, nullIfEmpty(run.WarehouseID), run.Status, params, run.BestScore, run.BestIteration, routes,
		run.Iterations, run.Ticks, nullIfEmpty(run.Error), run.CreatedAt, nullIfEmpty(run.FinishedAt))
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func (s *sqlStore) UpdateRun(ctx context.Context, run model.Run) error {
	params, routes, err := runJSON(run)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE runs SET status=$1, params=$2, best_score=$3, best_iteration=$4, routes=$5, iterations=$6, ticks=$7, error=$8, finished_at=$9
        WHERE tenant_id=$10 AND id=$11`),
		run.Status, params, run.BestScore, run.BestIteration, routes, run.Iterations, run.Ticks,
		nullIfEmpty(run.Error), nullIfEmpty(run.FinishedAt), run.TenantID, run.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id, tenant_id, warehouse_id, status, params, best_score, best_iteration, routes, iterations, ticks, error, created_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (model.Run, error) {
	var r model.Run
	var wh, routes, errText, finished sql.NullString
	var params string
	var best sql.NullFloat64
	if err := sc.Scan(&r.ID, &r.TenantID, &wh, &r.Status, &params, &best, &r.BestIteration, &routes,
		&r.Iterations, &r.Ticks, &errText, &r.CreatedAt, &finished); err != nil {
		return model.Run{}, err
	}
	r.WarehouseID, r.Error, r.FinishedAt = wh.String, errText.String, finished.String
	if best.Valid {
		v := best.Float64
		r.BestScore = &v
	}
	if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
		return model.Run{}, err
	}
	if routes.Valid && routes.String != "" {
		if err := json.Unmarshal([]byte(routes.String), &r.Routes); err != nil {
			return model.Run{}, err
		}
	}
	return r, nil
}

func (s *sqlStore) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+runColumns+` FROM runs WHERE tenant_id=$1 AND id=$2`), tenantID, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	return r, err
}

func (s *sqlStore) ListRuns(ctx context.Context, tenantID, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = s.db.QueryContext(ctx, s.q(`SELECT `+runColumns+` FROM runs WHERE tenant_id=$1 AND id > $2 ORDER BY id LIMIT $3`), tenantID, cursor, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, s.q(`SELECT `+runColumns+` FROM runs WHERE tenant_id=$1 ORDER BY id LIMIT $2`), tenantID, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (s *sqlStore) SaveRunHistory(ctx context.Context, tenantID, runID string, history []model.ScorePoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM run_history WHERE tenant_id=$1 AND run_id=$2`), tenantID, runID); err != nil {
		return err
	}
	for _, p := range history {
		var routes any
		if len(p.Routes) > 0 {
			b, err := json.Marshal(p.Routes)
			if err != nil {
				return err
			}
			routes = string(b)
		}
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO run_history (tenant_id, run_id, iteration, score, routes) VALUES ($1,$2,$3,$4,$5)`),
			tenantID, runID, p.Iteration, p.Score, routes); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqlStore) ListRunHistory(ctx context.Context, tenantID, runID string) ([]model.ScorePoint, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT iteration, score, routes FROM run_history WHERE tenant_id=$1 AND run_id=$2 ORDER BY iteration`), tenantID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ScorePoint{}
	for rows.Next() {
		var p model.ScorePoint
		var routes sql.NullString
		if err := rows.Scan(&p.Iteration, &p.Score, &routes); err != nil {
			return nil, err
		}
		if routes.Valid && routes.String != "" {
			if err := json.Unmarshal([]byte(routes.String), &p.Routes); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqlStore) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	var js string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT config FROM optimizer_config WHERE tenant_id=$1`), tenantID).Scan(&js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(js), &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *sqlStore) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	js, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO optimizer_config (tenant_id, config, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (tenant_id) DO UPDATE SET config=excluded.config, updated_at=excluded.updated_at`),
		tenantID, string(js), time.Now().UTC().Format(time.RFC3339))
	return err
}

func runJSON(run model.Run) (params string, routes any, err error) {
	p, err := json.Marshal(run.Params)
	if err != nil {
		return "", nil, err
	}
	if len(run.Routes) == 0 {
		return string(p), nil, nil
	}
	r, err := json.Marshal(run.Routes)
	if err != nil {
		return "", nil, err
	}
	return string(p), string(r), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
