package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dom "github.com/paulanunes85/sre-demo/internal/domain"
)

// TodoFilter is a conjunction over optional predicates.
type TodoFilter struct {
	Completed *bool
	Priority  *dom.Priority
}

type TodoRepo interface {
	Create(ctx context.Context, t dom.Todo) (dom.Todo, error)
	GetWithRelations(ctx context.Context, id uuid.UUID) (dom.Todo, error)
	// List returns todos matching the filter with tags and metadata
	// eagerly attached (one join query plus one tag batch query).
	List(ctx context.Context, f TodoFilter) ([]dom.Todo, error)
	// ListBare returns matching todos without relations. Together with
	// MetadataByTodo and TagsByTodo it forms the deliberately
	// inefficient per-row traversal used by the slow-list demonstration.
	ListBare(ctx context.Context, f TodoFilter) ([]dom.Todo, error)
	MetadataByTodo(ctx context.Context, todoID uuid.UUID) (*dom.TodoMetadata, error)
	TagsByTodo(ctx context.Context, todoID uuid.UUID) ([]dom.Tag, error)
	Search(ctx context.Context, q string) ([]dom.Todo, error)
	Update(ctx context.Context, t dom.Todo) (dom.Todo, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementView(ctx context.Context, todoID uuid.UUID) error
	BulkInsert(ctx context.Context, todos []dom.Todo) (int64, error)
	DeleteByTitlePrefix(ctx context.Context, prefix string) (int64, error)
}

type PGTodoRepo struct {
	db *pgxpool.Pool
}

func NewPGTodoRepo(db *pgxpool.Pool) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

const todoColumns = `t.id, t.title, t.description, t.completed, t.priority, t.due_date,
	t.assignee_id, t.project_id, t.created_at, t.updated_at`

const metadataColumns = `m.id, m.todo_id, m.view_count, m.last_viewed_at,
	m.estimated_time, m.actual_time, m.notes`

func scanTodo(row pgx.Row) (dom.Todo, error) {
	var t dom.Todo
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.Priority, &t.DueDate,
		&t.AssigneeID, &t.ProjectID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func scanTodoWithMetadata(rows pgx.Rows) (dom.Todo, error) {
	var (
		t     dom.Todo
		mID   *uuid.UUID
		mTodo *uuid.UUID
		views *int
		m     dom.TodoMetadata
	)
	err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.Priority, &t.DueDate,
		&t.AssigneeID, &t.ProjectID, &t.CreatedAt, &t.UpdatedAt,
		&mID, &mTodo, &views, &m.LastViewedAt, &m.EstimatedTime, &m.ActualTime, &m.Notes)
	if err != nil {
		return dom.Todo{}, err
	}
	if mID != nil {
		m.ID = *mID
		m.TodoID = *mTodo
		m.ViewCount = *views
		t.Metadata = &m
	}
	return t, nil
}

func (f TodoFilter) where(prefix string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Completed != nil {
		args = append(args, *f.Completed)
		conds = append(conds, fmt.Sprintf("%scompleted = $%d", prefix, len(args)))
	}
	if f.Priority != nil {
		args = append(args, *f.Priority)
		conds = append(conds, fmt.Sprintf("%spriority = $%d", prefix, len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PGTodoRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return dom.Todo{}, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO todos (title, description, completed, priority, due_date, assignee_id, project_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + strings.ReplaceAll(todoColumns, "t.", "")
	out, err := scanTodo(tx.QueryRow(ctx, query,
		t.Title, t.Description, t.Completed, t.Priority, t.DueDate, t.AssigneeID, t.ProjectID))
	if err != nil {
		return dom.Todo{}, err
	}

	// Every created todo gets a fresh metadata row with view_count 0.
	var m dom.TodoMetadata
	err = tx.QueryRow(ctx, `
		INSERT INTO todo_metadata (todo_id, view_count) VALUES ($1, 0)
		RETURNING id, todo_id, view_count, last_viewed_at, estimated_time, actual_time, notes`,
		out.ID).Scan(&m.ID, &m.TodoID, &m.ViewCount, &m.LastViewedAt, &m.EstimatedTime, &m.ActualTime, &m.Notes)
	if err != nil {
		return dom.Todo{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return dom.Todo{}, err
	}
	out.Metadata = &m
	out.Tags = []dom.Tag{}
	return out, nil
}

func (r *PGTodoRepo) GetWithRelations(ctx context.Context, id uuid.UUID) (dom.Todo, error) {
	query := `
		SELECT ` + todoColumns + `, ` + metadataColumns + `
		FROM todos t
		LEFT JOIN todo_metadata m ON m.todo_id = t.id
		WHERE t.id = $1`
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return dom.Todo{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return dom.Todo{}, err
		}
		return dom.Todo{}, pgx.ErrNoRows
	}
	t, err := scanTodoWithMetadata(rows)
	if err != nil {
		return dom.Todo{}, err
	}
	rows.Close()
	tags, err := r.TagsByTodo(ctx, t.ID)
	if err != nil {
		return dom.Todo{}, err
	}
	t.Tags = tags
	return t, nil
}

func (r *PGTodoRepo) List(ctx context.Context, f TodoFilter) ([]dom.Todo, error) {
	where, args := f.where("t.")
	query := `
		SELECT ` + todoColumns + `, ` + metadataColumns + `
		FROM todos t
		LEFT JOIN todo_metadata m ON m.todo_id = t.id` +
		where + ` ORDER BY t.created_at DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.Todo{}
	for rows.Next() {
		t, err := scanTodoWithMetadata(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r.attachTags(ctx, list)
}

func (r *PGTodoRepo) ListBare(ctx context.Context, f TodoFilter) ([]dom.Todo, error) {
	where, args := f.where("")
	query := `SELECT ` + strings.ReplaceAll(todoColumns, "t.", "") + ` FROM todos` +
		where + ` ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PGTodoRepo) MetadataByTodo(ctx context.Context, todoID uuid.UUID) (*dom.TodoMetadata, error) {
	var m dom.TodoMetadata
	err := r.db.QueryRow(ctx, `
		SELECT id, todo_id, view_count, last_viewed_at, estimated_time, actual_time, notes
		FROM todo_metadata WHERE todo_id = $1`, todoID).
		Scan(&m.ID, &m.TodoID, &m.ViewCount, &m.LastViewedAt, &m.EstimatedTime, &m.ActualTime, &m.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PGTodoRepo) TagsByTodo(ctx context.Context, todoID uuid.UUID) ([]dom.Tag, error) {
	rows, err := r.db.Query(ctx, `
		SELECT g.id, g.name, g.color
		FROM tags g
		JOIN todo_tags tt ON tt.tag_id = g.id
		WHERE tt.todo_id = $1
		ORDER BY g.name`, todoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tags := []dom.Tag{}
	for rows.Next() {
		var g dom.Tag
		if err := rows.Scan(&g.ID, &g.Name, &g.Color); err != nil {
			return nil, err
		}
		tags = append(tags, g)
	}
	return tags, rows.Err()
}

// attachTags resolves tags for a batch of todos with a single query.
func (r *PGTodoRepo) attachTags(ctx context.Context, list []dom.Todo) ([]dom.Todo, error) {
	if len(list) == 0 {
		return list, nil
	}
	ids := make([]uuid.UUID, len(list))
	for i := range list {
		ids[i] = list[i].ID
		list[i].Tags = []dom.Tag{}
	}
	rows, err := r.db.Query(ctx, `
		SELECT tt.todo_id, g.id, g.name, g.color
		FROM todo_tags tt
		JOIN tags g ON g.id = tt.tag_id
		WHERE tt.todo_id = ANY($1)
		ORDER BY g.name`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byTodo := make(map[uuid.UUID][]dom.Tag)
	for rows.Next() {
		var (
			todoID uuid.UUID
			g      dom.Tag
		)
		if err := rows.Scan(&todoID, &g.ID, &g.Name, &g.Color); err != nil {
			return nil, err
		}
		byTodo[todoID] = append(byTodo[todoID], g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		if tags, ok := byTodo[list[i].ID]; ok {
			list[i].Tags = tags
		}
	}
	return list, nil
}

// Search matches title or description case-insensitively. There is no
// index over either column, so large datasets take a full table scan.
func (r *PGTodoRepo) Search(ctx context.Context, q string) ([]dom.Todo, error) {
	pattern := "%" + q + "%"
	query := `
		SELECT ` + todoColumns + `, ` + metadataColumns + `
		FROM todos t
		LEFT JOIN todo_metadata m ON m.todo_id = t.id
		WHERE t.title ILIKE $1 OR t.description ILIKE $1
		ORDER BY t.created_at DESC`
	rows, err := r.db.Query(ctx, query, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.Todo{}
	for rows.Next() {
		t, err := scanTodoWithMetadata(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r.attachTags(ctx, list)
}

func (r *PGTodoRepo) Update(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	query := `
		UPDATE todos
		SET title = $2, description = $3, completed = $4, priority = $5, due_date = $6,
		    assignee_id = $7, project_id = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + strings.ReplaceAll(todoColumns, "t.", "")
	out, err := scanTodo(r.db.QueryRow(ctx, query, t.ID,
		t.Title, t.Description, t.Completed, t.Priority, t.DueDate, t.AssigneeID, t.ProjectID))
	if err != nil {
		return dom.Todo{}, err
	}
	out.Metadata, err = r.MetadataByTodo(ctx, out.ID)
	if err != nil {
		return dom.Todo{}, err
	}
	out.Tags, err = r.TagsByTodo(ctx, out.ID)
	if err != nil {
		return dom.Todo{}, err
	}
	return out, nil
}

// Delete removes the todo; metadata, comments, attachments and tag links
// go with it via ON DELETE CASCADE. Returns pgx.ErrNoRows when absent.
func (r *PGTodoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PGTodoRepo) IncrementView(ctx context.Context, todoID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE todo_metadata
		SET view_count = view_count + 1, last_viewed_at = NOW()
		WHERE todo_id = $1`, todoID)
	return err
}

func (r *PGTodoRepo) BulkInsert(ctx context.Context, todos []dom.Todo) (int64, error) {
	rows := make([][]any, len(todos))
	for i, t := range todos {
		rows[i] = []any{t.Title, t.Description, t.Completed, t.Priority}
	}
	return r.db.CopyFrom(ctx,
		pgx.Identifier{"todos"},
		[]string{"title", "description", "completed", "priority"},
		pgx.CopyFromRows(rows))
}

func (r *PGTodoRepo) DeleteByTitlePrefix(ctx context.Context, prefix string) (int64, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM todos WHERE title LIKE $1 || '%'`, prefix)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
