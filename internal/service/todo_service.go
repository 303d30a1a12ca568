package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"

	"github.com/paulanunes85/sre-demo/internal/cache"
	dom "github.com/paulanunes85/sre-demo/internal/domain"
	"github.com/paulanunes85/sre-demo/internal/repo"
)

const (
	listCacheTTL     = 300 * time.Second
	itemCacheTTL     = 3600 * time.Second
	listCachePrefix  = "todos:list:"
	listCachePattern = listCachePrefix + "*"
	itemCachePrefix  = "todo:"
)

// ListKey builds the deterministic cache key for a filter. The same
// filter always yields the same key, regardless of how the request
// spelled its query parameters.
func ListKey(f repo.TodoFilter) string {
	completed := "any"
	if f.Completed != nil {
		completed = strconv.FormatBool(*f.Completed)
	}
	priority := "any"
	if f.Priority != nil {
		priority = string(*f.Priority)
	}
	return listCachePrefix + "completed=" + completed + ":priority=" + priority
}

// ItemKey is the cache key for a single todo's detail payload.
func ItemKey(id uuid.UUID) string {
	return itemCachePrefix + id.String()
}

// errTodoNotFound names the entity in the 404 envelope while staying
// matchable with errors.Is(err, ErrNotFound).
func errTodoNotFound() error { return fmt.Errorf("Todo %w", ErrNotFound) }

// listPayload is what a list cache entry holds: the page and its count,
// without the per-request performance block.
type listPayload struct {
	Items []dom.Todo `json:"items"`
	Count int        `json:"count"`
}

// ListResult is a list page plus how it was produced.
type ListResult struct {
	Items    []dom.Todo
	Count    int
	Cached   bool
	Duration time.Duration
	// QueriesExecuted is only meaningful on the inefficient path.
	QueriesExecuted int
}

// SearchResult is a search page plus its query duration.
type SearchResult struct {
	Items    []dom.Todo
	Count    int
	Duration time.Duration
}

type CreateTodoInput struct {
	Title       string
	Description *string
	Completed   bool
	Priority    dom.Priority // zero value means "use default"
	DueDate     *time.Time
}

type UpdateTodoInput struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *dom.Priority
	DueDate     *time.Time
}

// TodoService orchestrates cache-then-store reads and invalidation on
// writes. The cache may silently be a no-op at any time (see package
// cache); nothing here depends on a hit ever happening.
type TodoService struct {
	repo  repo.TodoRepo
	cache *cache.Cache
	log   *slog.Logger
	sf    singleflight.Group
}

func NewTodoService(r repo.TodoRepo, c *cache.Cache, log *slog.Logger) *TodoService {
	return &TodoService{repo: r, cache: c, log: log}
}

// List returns todos matching the filter. Results are cached for five
// minutes under a filter-derived key. When inefficient is set, a cache
// miss takes the deliberate N+1 traversal instead of the joined query;
// that path exists to demonstrate the fault and must stay per-row.
func (s *TodoService) List(ctx context.Context, f repo.TodoFilter, inefficient bool) (ListResult, error) {
	start := time.Now()
	key := ListKey(f)

	var cached listPayload
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return ListResult{Items: cached.Items, Count: cached.Count, Cached: true, Duration: time.Since(start)}, nil
	}

	if inefficient {
		s.log.Warn("chaos: serving list via N+1 query pattern")
		todos, err := s.repo.ListBare(ctx, f)
		if err != nil {
			return ListResult{}, err
		}
		// One query per todo for metadata and another for tags.
		for i := range todos {
			m, err := s.repo.MetadataByTodo(ctx, todos[i].ID)
			if err != nil {
				return ListResult{}, err
			}
			todos[i].Metadata = m
			tags, err := s.repo.TagsByTodo(ctx, todos[i].ID)
			if err != nil {
				return ListResult{}, err
			}
			todos[i].Tags = tags
		}
		duration := time.Since(start)
		queries := len(todos)*2 + 1
		s.log.Warn("N+1 list traversal finished",
			"duration", duration.String(), "todos", len(todos), "queries", queries)
		return ListResult{Items: todos, Count: len(todos), Duration: duration, QueriesExecuted: queries}, nil
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		todos, err := s.repo.List(ctx, f)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(ctx, key, listPayload{Items: todos, Count: len(todos)}, listCacheTTL)
		}
		return todos, nil
	})
	if err != nil {
		return ListResult{}, err
	}
	todos := v.([]dom.Todo)
	return ListResult{Items: todos, Count: len(todos), Duration: time.Since(start)}, nil
}

// Search matches the query against title and description. Neither column
// is indexed; on large datasets this is a full table scan, which is the
// point of the demonstration.
func (s *TodoService) Search(ctx context.Context, q string) (SearchResult, error) {
	start := time.Now()
	todos, err := s.repo.Search(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}
	duration := time.Since(start)
	if duration > time.Second {
		s.log.Warn("slow search query", "q", q, "duration", duration.String(), "results", len(todos))
	}
	return SearchResult{Items: todos, Count: len(todos), Duration: duration}, nil
}

// Get returns one todo with tags and metadata. Every read that reaches
// the store bumps the view counter; the cached copy keeps the
// pre-increment count, same as the payload returned to the caller.
func (s *TodoService) Get(ctx context.Context, id uuid.UUID, skipCache bool) (dom.Todo, error) {
	key := ItemKey(id)
	if !skipCache && s.cache != nil {
		var cached dom.Todo
		if s.cache.Get(ctx, key, &cached) {
			return cached, nil
		}
	}

	t, err := s.repo.GetWithRelations(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, errTodoNotFound()
		}
		return dom.Todo{}, err
	}

	if t.Metadata != nil {
		if err := s.repo.IncrementView(ctx, id); err != nil {
			return dom.Todo{}, err
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, t, itemCacheTTL)
	}
	return t, nil
}

func (s *TodoService) Create(ctx context.Context, in CreateTodoInput) (dom.Todo, error) {
	if err := validateTitle(in.Title); err != nil {
		return dom.Todo{}, err
	}
	priority := in.Priority
	if priority == "" {
		priority = dom.DefaultPriority
	}
	if !priority.Valid() {
		return dom.Todo{}, fmt.Errorf("%w: priority must be one of LOW, MEDIUM, HIGH, URGENT", ErrValidation)
	}

	t, err := s.repo.Create(ctx, dom.Todo{
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
		Priority:    priority,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return dom.Todo{}, err
	}

	// A new item can change any list page's membership; its own detail
	// entry does not exist yet, so only list keys go.
	if s.cache != nil {
		s.cache.DeletePattern(ctx, listCachePattern)
	}
	s.log.Info("todo created", "id", t.ID)
	return t, nil
}

// Update applies a partial patch. By default the item's cache entry and
// every list entry are invalidated before the write is acknowledged.
// skipInvalidate leaves the cache untouched so that subsequent reads are
// observably stale; that opt-out is a deliberate demonstration fixture.
func (s *TodoService) Update(ctx context.Context, id uuid.UUID, patch UpdateTodoInput, skipInvalidate bool) (dom.Todo, error) {
	existing, err := s.repo.GetWithRelations(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, errTodoNotFound()
		}
		return dom.Todo{}, err
	}

	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return dom.Todo{}, err
		}
		existing.Title = *patch.Title
	}
	if patch.Description != nil {
		existing.Description = patch.Description
	}
	if patch.Completed != nil {
		existing.Completed = *patch.Completed
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return dom.Todo{}, fmt.Errorf("%w: priority must be one of LOW, MEDIUM, HIGH, URGENT", ErrValidation)
		}
		existing.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		existing.DueDate = patch.DueDate
	}

	t, err := s.repo.Update(ctx, existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, errTodoNotFound()
		}
		return dom.Todo{}, err
	}

	if skipInvalidate {
		s.log.Warn("chaos: cache not invalidated, stale reads will follow", "id", id)
	} else {
		s.invalidateItem(ctx, id)
	}
	s.log.Info("todo updated", "id", id)
	return t, nil
}

func (s *TodoService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errTodoNotFound()
		}
		return err
	}
	s.invalidateItem(ctx, id)
	s.log.Info("todo deleted", "id", id)
	return nil
}

// Toggle flips the completion flag. Same invalidation contract as
// Update's default path.
func (s *TodoService) Toggle(ctx context.Context, id uuid.UUID) (dom.Todo, error) {
	existing, err := s.repo.GetWithRelations(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, errTodoNotFound()
		}
		return dom.Todo{}, err
	}
	existing.Completed = !existing.Completed
	t, err := s.repo.Update(ctx, existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, errTodoNotFound()
		}
		return dom.Todo{}, err
	}
	s.invalidateItem(ctx, id)
	return t, nil
}

func (s *TodoService) invalidateItem(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(ctx, ItemKey(id))
	s.cache.DeletePattern(ctx, listCachePattern)
}

func validateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < 1 {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if n > 200 {
		return fmt.Errorf("%w: title must be at most 200 characters", ErrValidation)
	}
	return nil
}
