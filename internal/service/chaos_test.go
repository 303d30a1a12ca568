package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulanunes85/sre-demo/internal/config"
	dom "github.com/paulanunes85/sre-demo/internal/domain"
)

func newTestChaos(t *testing.T) (*ChaosController, *fakeTodoRepo) {
	t.Helper()
	r := newFakeTodoRepo()
	return NewChaosController(r, nil, config.RedisConfig{}, slog.Default()), r
}

func TestParseScenario(t *testing.T) {
	for _, sc := range AllScenarios() {
		got, err := ParseScenario(string(sc))
		require.NoError(t, err)
		assert.Equal(t, sc, got)
	}

	_, err := ParseScenario("disk-full")
	assert.ErrorIs(t, err, ErrUnknownScenario)
	_, err = ParseScenario("")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestTriggerMemoryLeakRequiresToggle(t *testing.T) {
	c, _ := newTestChaos(t)

	_, err := c.TriggerMemoryLeak()
	assert.ErrorIs(t, err, ErrScenarioDisabled)
	assert.Equal(t, 0, c.Status().BufferSize)
}

func TestMemoryLeakAccumulatesAcrossTriggers(t *testing.T) {
	c, _ := newTestChaos(t)
	c.Enable(ScenarioMemoryLeak)

	first, err := c.TriggerMemoryLeak()
	require.NoError(t, err)
	assert.Equal(t, 10000, first.LeakedEntries)

	second, err := c.TriggerMemoryLeak()
	require.NoError(t, err)
	assert.Equal(t, 20000, second.LeakedEntries)
	assert.Equal(t, 20000, c.Status().BufferSize)

	c.Disable(ScenarioMemoryLeak)
	assert.Equal(t, 0, c.Status().BufferSize, "disabling must release the buffer")
}

func TestEnableDisableToggles(t *testing.T) {
	c, _ := newTestChaos(t)

	c.Enable(ScenarioDBTimeout)
	c.Enable(ScenarioCPUSpike)
	st := c.Status().Scenarios
	assert.True(t, st.DBTimeout)
	assert.True(t, st.CPUSpike)
	assert.False(t, st.MemoryLeak)

	c.Disable(ScenarioDBTimeout)
	assert.False(t, c.Status().Scenarios.DBTimeout)
	assert.True(t, c.Status().Scenarios.CPUSpike, "other toggles stay put")
}

func TestEnableAllDisableAll(t *testing.T) {
	c, _ := newTestChaos(t)

	st := c.EnableAll()
	assert.Equal(t, ChaosState{MemoryLeak: true, CPUSpike: true, DBTimeout: true, PoolExhaustion: true, AsyncFailure: true}, st)

	_, err := c.TriggerMemoryLeak()
	require.NoError(t, err)

	st = c.DisableAll()
	assert.Equal(t, ChaosState{}, st)
	assert.Equal(t, 0, c.Status().BufferSize)
}

func TestExhaustPoolOpensBurstOfConnections(t *testing.T) {
	mr := miniredis.RunT(t)
	r := newFakeTodoRepo()
	c := NewChaosController(r, nil, config.RedisConfig{Addr: mr.Addr()}, slog.Default())

	opened, err := c.ExhaustPool(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, opened)
}

func TestTriggerAsyncFailureReturnsImmediately(t *testing.T) {
	c, _ := newTestChaos(t)

	start := time.Now()
	c.TriggerAsyncFailure()
	assert.Less(t, time.Since(start), asyncFailureDelay, "the caller must not wait for the failure")
}

func TestCPUSpikeRunsForRequestedDuration(t *testing.T) {
	c, _ := newTestChaos(t)

	start := time.Now()
	c.CPUSpike(20 * time.Millisecond)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestSeedCreatesPrefixedTodos(t *testing.T) {
	c, r := newTestChaos(t)
	ctx := context.Background()

	n, err := c.Seed(ctx, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 50, n)

	for _, t2 := range r.todos {
		assert.True(t, strings.HasPrefix(t2.Title, SeedTitlePrefix))
		assert.True(t, t2.Priority.Valid())
	}
}

func TestSeedDefaultsTo100(t *testing.T) {
	c, r := newTestChaos(t)

	n, err := c.Seed(context.Background(), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 100, n)
	assert.Len(t, r.todos, 100)
}

func TestResetClearsStateAndSeedRows(t *testing.T) {
	c, r := newTestChaos(t)
	ctx := context.Background()

	_, err := r.Create(ctx, dom.Todo{Title: "keep me", Priority: dom.PriorityMedium})
	require.NoError(t, err)
	_, err = c.Seed(ctx, 10)
	require.NoError(t, err)

	c.EnableAll()
	_, err = c.TriggerMemoryLeak()
	require.NoError(t, err)

	deleted, err := c.Reset(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, deleted)

	assert.Equal(t, ChaosState{}, c.Status().Scenarios)
	assert.Equal(t, 0, c.Status().BufferSize)
	assert.Len(t, r.todos, 1, "unprefixed rows survive a reset")
}
