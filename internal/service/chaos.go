package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paulanunes85/sre-demo/internal/config"
	dom "github.com/paulanunes85/sre-demo/internal/domain"
	"github.com/paulanunes85/sre-demo/internal/repo"
)

// Scenario names a simulated failure mode.
type Scenario string

const (
	ScenarioMemoryLeak     Scenario = "memory-leak"
	ScenarioCPUSpike       Scenario = "cpu-spike"
	ScenarioDBTimeout      Scenario = "db-timeout"
	ScenarioPoolExhaustion Scenario = "pool-exhaustion"
	ScenarioAsyncFailure   Scenario = "async-failure"
)

var allScenarios = []Scenario{
	ScenarioMemoryLeak, ScenarioCPUSpike, ScenarioDBTimeout,
	ScenarioPoolExhaustion, ScenarioAsyncFailure,
}

// AllScenarios lists every known scenario.
func AllScenarios() []Scenario { return allScenarios }

// ParseScenario resolves a URL path segment into a Scenario.
func ParseScenario(s string) (Scenario, error) {
	for _, sc := range allScenarios {
		if string(sc) == s {
			return sc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScenario, s)
}

const (
	// SeedTitlePrefix marks synthetic rows created by Seed; Reset deletes
	// every todo whose title carries it.
	SeedTitlePrefix = "Test Todo"

	// DefaultCPUSpikeDuration bounds the busy loop when no duration is given.
	DefaultCPUSpikeDuration = 30 * time.Second
	// DefaultTxHoldDuration is how long the long-held transaction sleeps.
	DefaultTxHoldDuration = 60 * time.Second
	// txTimeoutMargin is added on top of the sleep so the transaction's
	// context outlives it.
	txTimeoutMargin = 10 * time.Second

	leakBatchSize      = 10000
	burstConnections   = 50
	asyncFailureDelay  = 100 * time.Millisecond
	leakPayloadEntries = 1000
)

// leakPayload is the sizable fixed content each growth-buffer entry carries.
var leakPayload = strings.Repeat("x", 1000)

type leakEntry struct {
	Payload   []string
	Timestamp time.Time
	ID        int
	Info      string
}

// ChaosState is the full set of scenario toggles.
type ChaosState struct {
	MemoryLeak     bool
	CPUSpike       bool
	DBTimeout      bool
	PoolExhaustion bool
	AsyncFailure   bool
}

// ChaosStatus is what the status query reports.
type ChaosStatus struct {
	Scenarios  ChaosState
	BufferSize int
}

// MemoryLeakReport describes the growth buffer after a trigger.
type MemoryLeakReport struct {
	HeapUsedMB    uint64
	LeakedEntries int
}

// ChaosController owns the process-wide fault toggles and the growth
// buffer. State is in-memory only and lost on restart; that is the
// contract. It is handed to request handlers explicitly, never via a
// package global.
type ChaosController struct {
	mu      sync.Mutex
	state   ChaosState
	leak    []leakEntry
	leaked  []*redis.Client
	repo    repo.TodoRepo
	db      *pgxpool.Pool
	redis   config.RedisConfig
	log     *slog.Logger
}

func NewChaosController(r repo.TodoRepo, db *pgxpool.Pool, redisCfg config.RedisConfig, log *slog.Logger) *ChaosController {
	return &ChaosController{repo: r, db: db, redis: redisCfg, log: log}
}

func (c *ChaosController) Enable(sc Scenario) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(sc, true)
	c.log.Warn("chaos scenario enabled", "scenario", string(sc))
}

func (c *ChaosController) Disable(sc Scenario) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(sc, false)
	if sc == ScenarioMemoryLeak {
		c.leak = nil
	}
	c.log.Info("chaos scenario disabled", "scenario", string(sc))
}

func (c *ChaosController) setLocked(sc Scenario, on bool) {
	switch sc {
	case ScenarioMemoryLeak:
		c.state.MemoryLeak = on
	case ScenarioCPUSpike:
		c.state.CPUSpike = on
	case ScenarioDBTimeout:
		c.state.DBTimeout = on
	case ScenarioPoolExhaustion:
		c.state.PoolExhaustion = on
	case ScenarioAsyncFailure:
		c.state.AsyncFailure = on
	}
}

// EnableAll flips every toggle on at once.
func (c *ChaosController) EnableAll() ChaosState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ChaosState{MemoryLeak: true, CPUSpike: true, DBTimeout: true, PoolExhaustion: true, AsyncFailure: true}
	c.log.Warn("all chaos scenarios enabled")
	return c.state
}

// DisableAll clears every toggle and empties the growth buffer.
func (c *ChaosController) DisableAll() ChaosState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ChaosState{}
	c.leak = nil
	c.log.Info("all chaos scenarios disabled")
	return c.state
}

func (c *ChaosController) Status() ChaosStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChaosStatus{Scenarios: c.state, BufferSize: len(c.leak)}
}

// TriggerMemoryLeak appends a fixed batch of sizable entries to the
// shared buffer. Nothing ever removes them while the scenario stays
// enabled; repeated triggers keep growing the heap.
func (c *ChaosController) TriggerMemoryLeak() (MemoryLeakReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.MemoryLeak {
		return MemoryLeakReport{}, fmt.Errorf("%w: memory-leak", ErrScenarioDisabled)
	}
	for i := 0; i < leakBatchSize; i++ {
		payload := make([]string, leakPayloadEntries)
		for j := range payload {
			payload[j] = leakPayload
		}
		c.leak = append(c.leak, leakEntry{
			Payload:   payload,
			Timestamp: time.Now(),
			ID:        i,
			Info:      "this entry is never freed",
		})
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	report := MemoryLeakReport{HeapUsedMB: ms.HeapAlloc / 1024 / 1024, LeakedEntries: len(c.leak)}
	c.log.Warn("chaos: memory leak triggered",
		"heapUsedMB", report.HeapUsedMB, "leakSize", report.LeakedEntries)
	return report, nil
}

// ExhaustPool opens a burst of independent Redis clients, each with its
// own connection, and holds them open for the life of the process.
// There is deliberately no way to release them short of a restart.
func (c *ChaosController) ExhaustPool(ctx context.Context) (int, error) {
	c.log.Warn("chaos: exhausting connection pool")
	clients := make([]*redis.Client, 0, burstConnections)
	for i := 0; i < burstConnections; i++ {
		client := redis.NewClient(&redis.Options{
			Addr:     c.redis.Addr,
			Password: c.redis.Password,
			DB:       c.redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			c.mu.Lock()
			c.leaked = append(c.leaked, clients...)
			c.mu.Unlock()
			return len(clients), err
		}
		clients = append(clients, client)
	}
	c.mu.Lock()
	c.leaked = append(c.leaked, clients...)
	total := len(c.leaked)
	c.mu.Unlock()
	c.log.Warn("chaos: unpooled connections opened", "created", len(clients), "totalHeld", total)
	return len(clients), nil
}

// TriggerAsyncFailure launches a background operation that fails after a
// short delay. Its error is sent on a channel nobody ever receives from,
// so the failure is never observed and the goroutine leaks. The caller
// returns immediately, fully decoupled from the eventual failure.
func (c *ChaosController) TriggerAsyncFailure() {
	c.log.Warn("chaos: launching unobserved async failure")
	errs := make(chan error)
	go func() {
		time.Sleep(asyncFailureDelay)
		errs <- fmt.Errorf("this failure is intentionally unobserved")
	}()
}

// CPUSpike runs a tight synchronous numeric loop for the given duration,
// on the caller's goroutine. It must not be offloaded; occupying the
// request path is the entire point of the scenario.
func (c *ChaosController) CPUSpike(duration time.Duration) float64 {
	if duration <= 0 {
		duration = DefaultCPUSpikeDuration
	}
	c.log.Warn("chaos: starting CPU-intensive loop", "duration", duration.String())
	start := time.Now()
	var counter float64
	for time.Since(start) < duration {
		for i := 0; i < 1_000_000; i++ {
			counter += math.Sqrt(float64(i)) * rand.Float64()
		}
	}
	return counter
}

// HoldTransaction opens a store transaction, issues a trivial statement,
// sleeps while holding the connection, then issues a second statement
// and commits. The context deadline exceeds the sleep by a safety margin
// so the transaction itself never times out.
func (c *ChaosController) HoldTransaction(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		duration = DefaultTxHoldDuration
	}
	c.log.Warn("chaos: starting long-held transaction", "duration", duration.String())

	ctx, cancel := context.WithTimeout(ctx, duration+txTimeoutMargin)
	defer cancel()

	tx, err := c.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT 1`); err != nil {
		return err
	}
	// Hold the connection; concurrent requests may queue or fail
	// depending on pool size. Intended.
	time.Sleep(duration)
	if _, err := tx.Exec(ctx, `SELECT 2`); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Seed bulk-inserts count synthetic todos with randomized completion and
// priority, titled with SeedTitlePrefix so Reset can find them again.
func (c *ChaosController) Seed(ctx context.Context, count int) (int64, error) {
	if count <= 0 {
		count = 100
	}
	c.log.Info("seeding synthetic todos", "count", count)
	todos := make([]dom.Todo, count)
	for i := range todos {
		desc := fmt.Sprintf("This is a test todo item for demonstration purposes. Item number %d.", i+1)
		todos[i] = dom.Todo{
			Title:       fmt.Sprintf("%s %d", SeedTitlePrefix, i+1),
			Description: &desc,
			Completed:   rand.Intn(2) == 1,
			Priority:    dom.Priorities[rand.Intn(len(dom.Priorities))],
		}
	}
	return c.repo.BulkInsert(ctx, todos)
}

// Reset disables every scenario, empties the growth buffer, and deletes
// all synthetic seed rows. Pre-existing items are untouched.
func (c *ChaosController) Reset(ctx context.Context) (int64, error) {
	c.mu.Lock()
	c.state = ChaosState{}
	c.leak = nil
	c.mu.Unlock()
	c.log.Info("resetting demo environment")
	return c.repo.DeleteByTitlePrefix(ctx, SeedTitlePrefix)
}
