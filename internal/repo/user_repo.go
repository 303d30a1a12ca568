package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	dom "github.com/paulanunes85/sre-demo/internal/domain"
)

// UserFilter narrows the user listing.
type UserFilter struct {
	Role   *dom.Role
	Search string
}

// where builds the filter clause. The role parameter is cast to the
// enum explicitly; without the cast on our side Postgres would have to
// infer it, and comparing an enum column against a text-typed parameter
// fails at parse.
func (f UserFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Role != nil {
		args = append(args, *f.Role)
		conds = append(conds, fmt.Sprintf("u.role = $%d::user_role", len(args)))
	}
	if f.Search != "" {
		args = append(args, f.Search)
		conds = append(conds, fmt.Sprintf(
			"(u.name ILIKE '%%' || $%d || '%%' OR u.email ILIKE '%%' || $%d || '%%')", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type UserRepo interface {
	List(ctx context.Context, f UserFilter) ([]dom.UserWithCounts, error)
	GetByID(ctx context.Context, id uuid.UUID) (dom.User, error)
	RecentTodos(ctx context.Context, userID uuid.UUID, limit int) ([]dom.Todo, error)
	Memberships(ctx context.Context, userID uuid.UUID) ([]dom.ProjectMember, error)
	Stats(ctx context.Context, userID uuid.UUID) (dom.UserStats, error)
}

type PGUserRepo struct {
	db *pgxpool.Pool
}

func NewPGUserRepo(db *pgxpool.Pool) *PGUserRepo {
	return &PGUserRepo{db: db}
}

func (r *PGUserRepo) List(ctx context.Context, f UserFilter) ([]dom.UserWithCounts, error) {
	where, args := f.where()
	query := `
		SELECT u.id, u.email, u.name, u.avatar, u.role, u.created_at, u.updated_at,
		       (SELECT COUNT(*) FROM todos t WHERE t.assignee_id = u.id),
		       (SELECT COUNT(*) FROM comments c WHERE c.author_id = u.id)
		FROM users u` + where + ` ORDER BY u.name ASC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.UserWithCounts{}
	for rows.Next() {
		var u dom.UserWithCounts
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Avatar, &u.Role,
			&u.CreatedAt, &u.UpdatedAt, &u.TodoCount, &u.CommentCount); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func (r *PGUserRepo) GetByID(ctx context.Context, id uuid.UUID) (dom.User, error) {
	var u dom.User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, name, avatar, role, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Avatar, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *PGUserRepo) RecentTodos(ctx context.Context, userID uuid.UUID, limit int) ([]dom.Todo, error) {
	query := `
		SELECT ` + todoColumns + `, ` + metadataColumns + `
		FROM todos t
		LEFT JOIN todo_metadata m ON m.todo_id = t.id
		WHERE t.assignee_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, limit)
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
	return list, rows.Err()
}

func (r *PGUserRepo) Memberships(ctx context.Context, userID uuid.UUID) ([]dom.ProjectMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT pm.id, pm.project_id, pm.user_id, pm.role, pm.created_at
		FROM project_members pm
		WHERE pm.user_id = $1
		ORDER BY pm.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.ProjectMember{}
	for rows.Next() {
		var m dom.ProjectMember
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *PGUserRepo) Stats(ctx context.Context, userID uuid.UUID) (dom.UserStats, error) {
	var s dom.UserStats
	weekAgo := time.Now().UTC().Add(-7 * 24 * time.Hour)
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE completed),
		       COUNT(*) FILTER (WHERE priority = 'URGENT' AND NOT completed),
		       COUNT(*) FILTER (WHERE created_at >= $2)
		FROM todos WHERE assignee_id = $1`, userID, weekAgo).
		Scan(&s.TotalTodos, &s.CompletedTodos, &s.UrgentTodos, &s.TodosThisWeek)
	if err != nil {
		return dom.UserStats{}, err
	}
	s.ActiveTodos = s.TotalTodos - s.CompletedTodos
	if s.TotalTodos > 0 {
		rate := float64(s.CompletedTodos) / float64(s.TotalTodos) * 100
		s.CompletionRate = float64(int(rate*10+0.5)) / 10
	}
	return s, nil
}
