package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulanunes85/sre-demo/internal/cache"
	dom "github.com/paulanunes85/sre-demo/internal/domain"
	"github.com/paulanunes85/sre-demo/internal/repo"
)

// fakeTodoRepo is an in-memory repo.TodoRepo. It counts store reads so
// tests can tell cache hits from misses.
type fakeTodoRepo struct {
	mu        sync.Mutex
	todos     map[uuid.UUID]dom.Todo
	order     []uuid.UUID
	listCalls int
	getCalls  int
}

func newFakeTodoRepo() *fakeTodoRepo {
	return &fakeTodoRepo{todos: make(map[uuid.UUID]dom.Todo)}
}

func cloneTodo(t dom.Todo) dom.Todo {
	out := t
	if t.Metadata != nil {
		m := *t.Metadata
		out.Metadata = &m
	}
	out.Tags = append([]dom.Tag{}, t.Tags...)
	return out
}

func (f *fakeTodoRepo) matches(t dom.Todo, filter repo.TodoFilter) bool {
	if filter.Completed != nil && t.Completed != *filter.Completed {
		return false
	}
	if filter.Priority != nil && t.Priority != *filter.Priority {
		return false
	}
	return true
}

func (f *fakeTodoRepo) Create(_ context.Context, t dom.Todo) (dom.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New()
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	t.Metadata = &dom.TodoMetadata{ID: uuid.New(), TodoID: t.ID}
	t.Tags = []dom.Tag{}
	f.todos[t.ID] = cloneTodo(t)
	f.order = append(f.order, t.ID)
	return cloneTodo(t), nil
}

func (f *fakeTodoRepo) GetWithRelations(_ context.Context, id uuid.UUID) (dom.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	t, ok := f.todos[id]
	if !ok {
		return dom.Todo{}, pgx.ErrNoRows
	}
	return cloneTodo(t), nil
}

func (f *fakeTodoRepo) List(_ context.Context, filter repo.TodoFilter) ([]dom.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := []dom.Todo{}
	for _, id := range f.order {
		if t, ok := f.todos[id]; ok && f.matches(t, filter) {
			out = append(out, cloneTodo(t))
		}
	}
	return out, nil
}

func (f *fakeTodoRepo) ListBare(_ context.Context, filter repo.TodoFilter) ([]dom.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []dom.Todo{}
	for _, id := range f.order {
		if t, ok := f.todos[id]; ok && f.matches(t, filter) {
			bare := cloneTodo(t)
			bare.Metadata = nil
			bare.Tags = nil
			out = append(out, bare)
		}
	}
	return out, nil
}

func (f *fakeTodoRepo) MetadataByTodo(_ context.Context, todoID uuid.UUID) (*dom.TodoMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.todos[todoID]
	if !ok || t.Metadata == nil {
		return nil, nil
	}
	m := *t.Metadata
	return &m, nil
}

func (f *fakeTodoRepo) TagsByTodo(_ context.Context, todoID uuid.UUID) ([]dom.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.todos[todoID]
	if !ok {
		return []dom.Tag{}, nil
	}
	return append([]dom.Tag{}, t.Tags...), nil
}

func (f *fakeTodoRepo) Search(_ context.Context, q string) ([]dom.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q = strings.ToLower(q)
	out := []dom.Todo{}
	for _, id := range f.order {
		t := f.todos[id]
		desc := ""
		if t.Description != nil {
			desc = *t.Description
		}
		if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(desc), q) {
			out = append(out, cloneTodo(t))
		}
	}
	return out, nil
}

func (f *fakeTodoRepo) Update(_ context.Context, t dom.Todo) (dom.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.todos[t.ID]
	if !ok {
		return dom.Todo{}, pgx.ErrNoRows
	}
	t.Metadata = existing.Metadata
	t.UpdatedAt = time.Now().UTC()
	f.todos[t.ID] = cloneTodo(t)
	return cloneTodo(t), nil
}

func (f *fakeTodoRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.todos[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.todos, id)
	return nil
}

func (f *fakeTodoRepo) IncrementView(_ context.Context, todoID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.todos[todoID]
	if !ok || t.Metadata == nil {
		return nil
	}
	t.Metadata.ViewCount++
	now := time.Now().UTC()
	t.Metadata.LastViewedAt = &now
	f.todos[todoID] = t
	return nil
}

func (f *fakeTodoRepo) BulkInsert(_ context.Context, todos []dom.Todo) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range todos {
		t.ID = uuid.New()
		f.todos[t.ID] = cloneTodo(t)
		f.order = append(f.order, t.ID)
	}
	return int64(len(todos)), nil
}

func (f *fakeTodoRepo) DeleteByTitlePrefix(_ context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.todos {
		if strings.HasPrefix(t.Title, prefix) {
			delete(f.todos, id)
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T) (*TodoService, *fakeTodoRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	r := newFakeTodoRepo()
	svc := NewTodoService(r, cache.New(rdb, slog.Default()), slog.Default())
	return svc, r, mr
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateTodoInput
	}{
		{"empty title", CreateTodoInput{Title: ""}},
		{"title too long", CreateTodoInput{Title: strings.Repeat("a", 201)}},
		{"bad priority", CreateTodoInput{Title: "ok", Priority: "CRITICAL"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// 200 characters is the inclusive upper bound.
	_, err := svc.Create(ctx, CreateTodoInput{Title: strings.Repeat("a", 200)})
	assert.NoError(t, err)
}

func TestCreateDefaultsPriorityToMedium(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.Create(context.Background(), CreateTodoInput{Title: "no priority"})
	require.NoError(t, err)
	assert.Equal(t, dom.PriorityMedium, created.Priority)
	require.NotNil(t, created.Metadata)
	assert.Equal(t, 0, created.Metadata.ViewCount)
}

func TestCreateInvalidatesListsButNotItems(t *testing.T) {
	svc, r, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateTodoInput{Title: "first"})
	require.NoError(t, err)

	_, err = svc.List(ctx, repo.TodoFilter{}, false)
	require.NoError(t, err)
	_, err = svc.Get(ctx, first.ID, false) // cache the detail entry
	require.NoError(t, err)
	storeReads := r.getCalls

	_, err = svc.Create(ctx, CreateTodoInput{Title: "second"})
	require.NoError(t, err)

	// The new item changes list membership, so list entries go.
	res, err := svc.List(ctx, repo.TodoFilter{}, false)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, res.Count)

	// The first item's detail entry survives; this read is a cache hit.
	_, err = svc.Get(ctx, first.ID, false)
	require.NoError(t, err)
	assert.Equal(t, storeReads, r.getCalls, "detail entry must not have been invalidated")
}

func TestListSecondCallServedFromCache(t *testing.T) {
	svc, r, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTodoInput{Title: "one"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateTodoInput{Title: "two", Priority: dom.PriorityHigh})
	require.NoError(t, err)

	first, err := svc.List(ctx, repo.TodoFilter{}, false)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 2, first.Count)

	second, err := svc.List(ctx, repo.TodoFilter{}, false)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Count, second.Count)
	assert.Equal(t, 1, r.listCalls, "second call must not reach the store")

	titles := func(list []dom.Todo) []string {
		out := make([]string, len(list))
		for i := range list {
			out[i] = list[i].Title
		}
		return out
	}
	assert.Equal(t, titles(first.Items), titles(second.Items))
}

func TestListFilterKeysAreIndependent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTodoInput{Title: "done", Completed: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateTodoInput{Title: "open"})
	require.NoError(t, err)

	yes := true
	completed, err := svc.List(ctx, repo.TodoFilter{Completed: &yes}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, completed.Count)

	all, err := svc.List(ctx, repo.TodoFilter{}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count)
	assert.False(t, all.Cached, "different filter must not share a cache entry")
}

func TestInefficientListReportsQueryCount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateTodoInput{Title: "item"})
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, repo.TodoFilter{}, true)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 7, res.QueriesExecuted) // 1 + 2 per row
	for _, item := range res.Items {
		assert.NotNil(t, item.Metadata, "N+1 path must still attach metadata")
	}
}

func TestGetIncrementsViewCountOnStoreReads(t *testing.T) {
	svc, r, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTodoInput{Title: "watched"})
	require.NoError(t, err)

	// Two skip-cache reads both reach the store.
	_, err = svc.Get(ctx, created.ID, true)
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID, true)
	require.NoError(t, err)

	m, err := r.MetadataByTodo(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.ViewCount)
}

func TestGetCachedReadDoesNotIncrement(t *testing.T) {
	svc, r, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTodoInput{Title: "watched"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, created.ID, false) // miss, populates cache
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID, false) // hit
	require.NoError(t, err)

	m, err := r.MetadataByTodo(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, m.ViewCount)
}

func TestGetNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New(), false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateInvalidatesByDefault(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTodoInput{Title: "before"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID, false) // cache the old copy
	require.NoError(t, err)

	title := "after"
	_, err = svc.Update(ctx, created.ID, UpdateTodoInput{Title: &title}, false)
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
}

func TestUpdateSkipInvalidateServesStaleReads(t *testing.T) {
	svc, r, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTodoInput{Title: "before"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID, false) // cache the old copy
	require.NoError(t, err)

	title := "after"
	_, err = svc.Update(ctx, created.ID, UpdateTodoInput{Title: &title}, true)
	require.NoError(t, err)

	stale, err := svc.Get(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "before", stale.Title, "stale cache copy must be served")

	// The store saw the write; only the cache lags.
	fresh, err := r.GetWithRelations(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", fresh.Title)
}

func TestUpdateSkipInvalidateStaleUntilTTLExpiry(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTodoInput{Title: "before"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID, false)
	require.NoError(t, err)

	title := "after"
	_, err = svc.Update(ctx, created.ID, UpdateTodoInput{Title: &title}, true)
	require.NoError(t, err)

	mr.FastForward(3601 * time.Second)

	got, err := svc.Get(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title, "expiry must end the staleness")
}

func TestUpdateNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	title := "x"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateTodoInput{Title: &title}, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteNotFoundIsDistinct(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteInvalidatesListCache(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTodoInput{Title: "goner"})
	require.NoError(t, err)
	_, err = svc.List(ctx, repo.TodoFilter{}, false)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	res, err := svc.List(ctx, repo.TodoFilter{}, false)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 0, res.Count)

	_, err = svc.Get(ctx, created.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleFlipsAndInvalidates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTodoInput{Title: "flip"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID, false)
	require.NoError(t, err)

	toggled, err := svc.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	got, err := svc.Get(ctx, created.ID, false)
	require.NoError(t, err)
	assert.True(t, got.Completed, "cache entry must have been invalidated")

	back, err := svc.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, back.Completed)
}

func TestSearchFlagsNothingWhenFast(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTodoInput{Title: "find me"})
	require.NoError(t, err)

	res, err := svc.Search(ctx, "find")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}
