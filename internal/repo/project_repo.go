package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	dom "github.com/paulanunes85/sre-demo/internal/domain"
)

// ProjectFilter narrows the project listing.
type ProjectFilter struct {
	Status *dom.ProjectStatus
	Search string
}

// where builds the filter clause. The status parameter carries an
// explicit cast to the enum, same reasoning as UserFilter.where.
func (f ProjectFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("p.status = $%d::project_status", len(args)))
	}
	if f.Search != "" {
		args = append(args, f.Search)
		conds = append(conds, fmt.Sprintf(
			"(p.name ILIKE '%%' || $%d || '%%' OR p.description ILIKE '%%' || $%d || '%%')", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type ProjectRepo interface {
	List(ctx context.Context, f ProjectFilter) ([]dom.Project, error)
	GetWithDetails(ctx context.Context, id uuid.UUID) (dom.Project, error)
	Stats(ctx context.Context, id uuid.UUID) (dom.ProjectStats, error)
	Create(ctx context.Context, p dom.Project) (dom.Project, error)
	Update(ctx context.Context, p dom.Project) (dom.Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (dom.Project, error)
}

type PGProjectRepo struct {
	db *pgxpool.Pool
}

func NewPGProjectRepo(db *pgxpool.Pool) *PGProjectRepo {
	return &PGProjectRepo{db: db}
}

const projectColumns = `p.id, p.name, p.description, p.color, p.icon, p.status,
	p.start_date, p.end_date, p.created_at, p.updated_at`

func scanProject(row interface{ Scan(...any) error }, p *dom.Project) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.Color, &p.Icon, &p.Status,
		&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PGProjectRepo) List(ctx context.Context, f ProjectFilter) ([]dom.Project, error) {
	where, args := f.where()
	query := `
		SELECT ` + projectColumns + `,
		       (SELECT COUNT(*) FROM todos t WHERE t.project_id = p.id),
		       (SELECT COUNT(*) FROM project_members pm WHERE pm.project_id = p.id)
		FROM projects p` + where + ` ORDER BY p.created_at DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.Project{}
	for rows.Next() {
		var p dom.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Color, &p.Icon, &p.Status,
			&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt,
			&p.TodoCount, &p.MemberCount); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		members, err := r.members(ctx, list[i].ID, 5)
		if err != nil {
			return nil, err
		}
		list[i].Members = members
	}
	return list, nil
}

func (r *PGProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (dom.Project, error) {
	var p dom.Project
	err := scanProject(r.db.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, id), &p)
	return p, err
}

func (r *PGProjectRepo) GetWithDetails(ctx context.Context, id uuid.UUID) (dom.Project, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return dom.Project{}, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+todoColumns+`, `+metadataColumns+`
		FROM todos t
		LEFT JOIN todo_metadata m ON m.todo_id = t.id
		WHERE t.project_id = $1
		ORDER BY t.created_at DESC`, id)
	if err != nil {
		return dom.Project{}, err
	}
	defer rows.Close()
	p.Todos = []dom.Todo{}
	for rows.Next() {
		t, err := scanTodoWithMetadata(rows)
		if err != nil {
			return dom.Project{}, err
		}
		p.Todos = append(p.Todos, t)
	}
	if err := rows.Err(); err != nil {
		return dom.Project{}, err
	}
	p.Members, err = r.members(ctx, id, 0)
	if err != nil {
		return dom.Project{}, err
	}
	p.TodoCount = len(p.Todos)
	p.MemberCount = len(p.Members)
	return p, nil
}

// members returns project memberships with the user row attached.
// limit 0 means no limit.
func (r *PGProjectRepo) members(ctx context.Context, projectID uuid.UUID, limit int) ([]dom.ProjectMember, error) {
	query := `
		SELECT pm.id, pm.project_id, pm.user_id, pm.role, pm.created_at,
		       u.id, u.email, u.name, u.avatar, u.role, u.created_at, u.updated_at
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = $1
		ORDER BY pm.created_at`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.ProjectMember{}
	for rows.Next() {
		var (
			m dom.ProjectMember
			u dom.User
		)
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt,
			&u.ID, &u.Email, &u.Name, &u.Avatar, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		m.User = &u
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *PGProjectRepo) Stats(ctx context.Context, id uuid.UUID) (dom.ProjectStats, error) {
	var s dom.ProjectStats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE completed)
		FROM todos WHERE project_id = $1`, id).
		Scan(&s.TotalTodos, &s.CompletedTodos)
	if err != nil {
		return dom.ProjectStats{}, err
	}
	s.ActiveTodos = s.TotalTodos - s.CompletedTodos
	if s.TotalTodos > 0 {
		rate := float64(s.CompletedTodos) / float64(s.TotalTodos) * 100
		s.CompletionRate = float64(int(rate*10+0.5)) / 10
	}
	s.PriorityBreakdown = map[dom.Priority]int{
		dom.PriorityLow: 0, dom.PriorityMedium: 0, dom.PriorityHigh: 0, dom.PriorityUrgent: 0,
	}
	rows, err := r.db.Query(ctx, `
		SELECT priority, COUNT(*)
		FROM todos WHERE project_id = $1 AND NOT completed
		GROUP BY priority`, id)
	if err != nil {
		return dom.ProjectStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p dom.Priority
			n int
		)
		if err := rows.Scan(&p, &n); err != nil {
			return dom.ProjectStats{}, err
		}
		s.PriorityBreakdown[p] = n
	}
	return s, rows.Err()
}

func (r *PGProjectRepo) Create(ctx context.Context, p dom.Project) (dom.Project, error) {
	query := `
		INSERT INTO projects (name, description, color, icon, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + projectColumnsBare
	var out dom.Project
	err := scanProject(r.db.QueryRow(ctx, query,
		p.Name, p.Description, p.Color, p.Icon, p.Status, p.StartDate, p.EndDate), &out)
	if err != nil {
		return dom.Project{}, err
	}
	out.Members = []dom.ProjectMember{}
	return out, nil
}

func (r *PGProjectRepo) Update(ctx context.Context, p dom.Project) (dom.Project, error) {
	query := `
		UPDATE projects
		SET name = $2, description = $3, color = $4, icon = $5, status = $6,
		    start_date = $7, end_date = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + projectColumnsBare
	var out dom.Project
	err := scanProject(r.db.QueryRow(ctx, query, p.ID,
		p.Name, p.Description, p.Color, p.Icon, p.Status, p.StartDate, p.EndDate), &out)
	if err != nil {
		return dom.Project{}, err
	}
	out.Members, err = r.members(ctx, out.ID, 0)
	if err != nil {
		return dom.Project{}, err
	}
	out.MemberCount = len(out.Members)
	return out, nil
}

const projectColumnsBare = `id, name, description, color, icon, status,
	start_date, end_date, created_at, updated_at`
