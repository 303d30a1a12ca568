// Command seed wipes and repopulates the database with a demo dataset:
// a handful of users, projects with members, shared tags, and todos with
// metadata, comments and attachments. Run it against an empty or
// disposable database only.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paulanunes85/sre-demo/internal/config"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PG.DSN)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := seed(ctx, pool); err != nil {
		log.Error("seeding failed", "err", err)
		os.Exit(1)
	}
	log.Info("seeding complete")
}

func seed(ctx context.Context, pool *pgxpool.Pool) error {
	// Children first so the FKs never block the wipe.
	for _, table := range []string{
		"attachments", "comments", "todo_tags", "todo_metadata",
		"todos", "tags", "project_members", "projects", "users",
	} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	users := []struct {
		email, name, role string
	}{
		{"alice.johnson@company.com", "Alice Johnson", "ADMIN"},
		{"bob.smith@company.com", "Bob Smith", "MANAGER"},
		{"carol.white@company.com", "Carol White", "MEMBER"},
		{"david.brown@company.com", "David Brown", "MEMBER"},
		{"emma.davis@company.com", "Emma Davis", "MEMBER"},
	}
	userIDs := make([]string, len(users))
	for i, u := range users {
		avatar := "https://api.dicebear.com/7.x/avataaars/svg?seed=" + u.name[:5]
		err := pool.QueryRow(ctx, `
			INSERT INTO users (email, name, avatar, role) VALUES ($1, $2, $3, $4)
			RETURNING id`, u.email, u.name, avatar, u.role).Scan(&userIDs[i])
		if err != nil {
			return fmt.Errorf("insert user %s: %w", u.email, err)
		}
	}

	projects := []struct {
		name, desc, color, icon, status string
	}{
		{"SRE Platform Migration", "Migrate legacy monitoring to cloud native solutions", "#3b82f6", "🚀", "ACTIVE"},
		{"Observability Rollout", "Dashboards, alerts and SLOs for every service", "#10b981", "📈", "ACTIVE"},
		{"Incident Response Playbooks", "Documented runbooks for the on-call rotation", "#f59e0b", "📚", "PLANNING"},
	}
	projectIDs := make([]string, len(projects))
	for i, p := range projects {
		err := pool.QueryRow(ctx, `
			INSERT INTO projects (name, description, color, icon, status, start_date)
			VALUES ($1, $2, $3, $4, $5, NOW())
			RETURNING id`, p.name, p.desc, p.color, p.icon, p.status).Scan(&projectIDs[i])
		if err != nil {
			return fmt.Errorf("insert project %s: %w", p.name, err)
		}
	}

	for i, pid := range projectIDs {
		for j, uid := range userIDs {
			if (i+j)%2 != 0 {
				continue
			}
			role := "MEMBER"
			if j == 0 {
				role = "OWNER"
			}
			if _, err := pool.Exec(ctx, `
				INSERT INTO project_members (project_id, user_id, role)
				VALUES ($1, $2, $3)
				ON CONFLICT (project_id, user_id) DO NOTHING`, pid, uid, role); err != nil {
				return fmt.Errorf("insert membership: %w", err)
			}
		}
	}

	tags := []struct{ name, color string }{
		{"bug", "#ef4444"}, {"feature", "#8b5cf6"}, {"ops", "#0ea5e9"},
		{"urgent", "#f97316"}, {"docs", "#64748b"},
	}
	tagIDs := make([]string, len(tags))
	for i, t := range tags {
		err := pool.QueryRow(ctx, `
			INSERT INTO tags (name, color) VALUES ($1, $2) RETURNING id`,
			t.name, t.color).Scan(&tagIDs[i])
		if err != nil {
			return fmt.Errorf("insert tag %s: %w", t.name, err)
		}
	}

	priorities := []string{"LOW", "MEDIUM", "HIGH", "URGENT"}
	titles := []string{
		"Set up alert routing", "Tune slow dashboard queries", "Write postmortem template",
		"Review error budgets", "Migrate logging pipeline", "Audit on-call schedule",
		"Fix flaky deployment job", "Document cache invalidation", "Capacity-plan Q3 traffic",
		"Rotate database credentials", "Add readiness probes", "Clean up stale feature flags",
	}
	for i, title := range titles {
		desc := fmt.Sprintf("Tracked work item: %s.", title)
		var todoID string
		err := pool.QueryRow(ctx, `
			INSERT INTO todos (title, description, completed, priority, due_date, assignee_id, project_id)
			VALUES ($1, $2, $3, $4, NOW() + make_interval(days => $5), $6, $7)
			RETURNING id`,
			title, desc, i%3 == 0, priorities[rand.Intn(len(priorities))], i+1,
			userIDs[i%len(userIDs)], projectIDs[i%len(projectIDs)]).Scan(&todoID)
		if err != nil {
			return fmt.Errorf("insert todo %q: %w", title, err)
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO todo_metadata (todo_id, view_count, estimated_time, notes)
			VALUES ($1, 0, $2, $3)`, todoID, (i+1)*30, "seeded"); err != nil {
			return fmt.Errorf("insert metadata: %w", err)
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO todo_tags (todo_id, tag_id) VALUES ($1, $2)`,
			todoID, tagIDs[i%len(tagIDs)]); err != nil {
			return fmt.Errorf("insert todo tag: %w", err)
		}
		if i%2 == 0 {
			if _, err := pool.Exec(ctx, `
				INSERT INTO comments (content, author_id, todo_id)
				VALUES ($1, $2, $3)`,
				"Picked this up, will report back tomorrow.", userIDs[(i+1)%len(userIDs)], todoID); err != nil {
				return fmt.Errorf("insert comment: %w", err)
			}
		}
		if i%4 == 0 {
			if _, err := pool.Exec(ctx, `
				INSERT INTO attachments (filename, file_url, file_size, mime_type, todo_id)
				VALUES ($1, $2, $3, $4, $5)`,
				"runbook.pdf", "https://files.example.com/runbook.pdf", 52431, "application/pdf", todoID); err != nil {
				return fmt.Errorf("insert attachment: %w", err)
			}
		}
	}

	return nil
}
