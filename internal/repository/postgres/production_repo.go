package postgres

/*
Файл production_repo.go хранит задачи продакшна, подчиненный жизненный цикл одобренного брифа.
*/

import (
	"context"
	"fmt"

	"github.com/xela07ax/brief-governance/internal/domain"
)

func (r *Repo) GetProductionTask(ctx context.Context, briefID string) (*domain.ProductionTask, error) {
	query := `
		SELECT id, brief_id, status, priority, assignee_id, due_date, created_at, updated_at
		FROM production_tasks WHERE brief_id = $1`

	var t domain.ProductionTask
	err := r.pool.QueryRow(ctx, query, briefID).Scan(
		&t.ID, &t.BriefID, &t.Status, &t.Priority, &t.AssigneeID, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "production task for brief", briefID)
	}
	return &t, nil
}

// TransitionProductionTask условие WHERE status = $from исключает двойной переход.
func (r *Repo) TransitionProductionTask(ctx context.Context, task *domain.ProductionTask, from domain.ProductionStatus) error {
	query := `
		UPDATE production_tasks
		SET status = $1, assignee_id = $2, updated_at = $3
		WHERE id = $4 AND status = $5`

	ct, err := r.pool.Exec(ctx, query, string(task.Status), task.AssigneeID, task.UpdatedAt, task.ID, string(from))
	if err != nil {
		return fmt.Errorf("postgres: failed to transition production task: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return missOrConflict(ctx, r.pool, "production_tasks", task.ID)
	}
	return nil
}
