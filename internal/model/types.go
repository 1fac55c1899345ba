package model

// Core domain types shared by the API, the store and the planner.

type Location struct {
	ID string  `json:"id" yaml:"id"`
	X  float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y  float64 `json:"y,omitempty" yaml:"y,omitempty"`
}

// Link is an undirected aisle between two locations. A zero Distance is
// replaced by the Euclidean distance of the endpoints.
type Link struct {
	From     string  `json:"from" yaml:"from"`
	To       string  `json:"to" yaml:"to"`
	Distance float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
}

type Robot struct {
	ID       string  `json:"id" yaml:"id"`
	Capacity float64 `json:"capacity" yaml:"capacity"`
	Speed    float64 `json:"speed" yaml:"speed"`
}

type Warehouse struct {
	ID        string     `json:"id,omitempty" yaml:"id,omitempty"`
	TenantID  string     `json:"tenantId,omitempty" yaml:"tenant_id,omitempty"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Depot     string     `json:"depot" yaml:"depot"`
	Locations []Location `json:"locations" yaml:"locations"`
	Links     []Link     `json:"links" yaml:"links"`
	Robots    []Robot    `json:"robots" yaml:"robots"`
	CreatedAt string     `json:"createdAt,omitempty" yaml:"-"`
}

type OrderLine struct {
	Location string  `json:"location" yaml:"location"`
	Quantity float64 `json:"quantity" yaml:"quantity"`
}

type Order struct {
	ID    string      `json:"id,omitempty" yaml:"id,omitempty"`
	Lines []OrderLine `json:"lines" yaml:"lines"`
}

// SolveParams are the optional knobs of a solve request. Nil fields fall
// back to the tenant's optimizer config and then to the service defaults.
type SolveParams struct {
	Iterations *int     `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	Alpha      *float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	Beta       *float64 `json:"beta,omitempty" yaml:"beta,omitempty"`
	DecayRate  *float64 `json:"decayRate,omitempty" yaml:"decayRate,omitempty"`
	Seed       int64    `json:"seed,omitempty" yaml:"seed,omitempty"`
}

type SolveRequest struct {
	TenantID    string      `json:"tenantId,omitempty" yaml:"tenantId,omitempty"`
	WarehouseID string      `json:"warehouseId,omitempty" yaml:"warehouseId,omitempty"`
	Warehouse   *Warehouse  `json:"warehouse,omitempty" yaml:"warehouse,omitempty"`
	Orders      []Order     `json:"orders" yaml:"orders"`
	Params      SolveParams `json:"params" yaml:"params"`
	Async       bool        `json:"async,omitempty" yaml:"async,omitempty"`
}

// RunParams are the parameters a run actually used.
type RunParams struct {
	Iterations int     `json:"iterations"`
	Alpha      float64 `json:"alpha"`
	Beta       float64 `json:"beta"`
	DecayRate  float64 `json:"decayRate"`
	Seed       int64   `json:"seed"`
}

type RobotRoute struct {
	ID             int      `json:"id"`
	RobotID        string   `json:"robotId,omitempty"`
	TotalDistance  float64  `json:"totalDistance"`
	Capacity       float64  `json:"capacity"`
	SpeedFactor    float64  `json:"speedFactor"`
	TotalDelivered float64  `json:"totalDelivered"`
	Path           []string `json:"path"`
}

const (
	RunQueued     = "queued"
	RunRunning    = "running"
	RunCompleted  = "completed"
	RunInfeasible = "infeasible"
	RunFailed     = "failed"
)

type Run struct {
	ID            string       `json:"id"`
	TenantID      string       `json:"tenantId"`
	WarehouseID   string       `json:"warehouseId,omitempty"`
	Status        string       `json:"status"`
	Params        RunParams    `json:"params"`
	BestScore     *float64     `json:"bestScore,omitempty"`
	BestIteration int          `json:"bestIteration,omitempty"`
	Routes        []RobotRoute `json:"routes,omitempty"`
	Iterations    int          `json:"iterations"`
	Ticks         int          `json:"ticks"`
	Error         string       `json:"error,omitempty"`
	CreatedAt     string       `json:"createdAt"`
	FinishedAt    string       `json:"finishedAt,omitempty"`
}

// ScorePoint is one improving iteration with the routes that achieved it.
type ScorePoint struct {
	Iteration int          `json:"iteration"`
	Score     float64      `json:"score"`
	Routes    []RobotRoute `json:"routes,omitempty"`
}
