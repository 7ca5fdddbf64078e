package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xela07ax/brief-governance/internal/domain"
)

func (r *Repo) GetDashboard(ctx context.Context, now time.Time) (*domain.Dashboard, error) {
	d := &domain.Dashboard{}
	d.Briefs.ByStatus = make(map[domain.BriefStatus]int)

	// 1. Очередь брифов по статусам
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM briefs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to count briefs: %w", err)
	}
	for rows.Next() {
		var (
			status domain.BriefStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("postgres: failed to scan brief count: %w", err)
		}
		d.Briefs.ByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}

	// 2. Отправленные брифы, которые ждут владельца или правились после прогона политики
	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE requires_owner_approval),
			COUNT(*) FILTER (WHERE policy_evaluated_at < updated_at)
		FROM briefs
		WHERE status = 'SUBMITTED'`).Scan(&d.Briefs.AwaitingOwnerApproval, &d.Briefs.StalePolicy)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to count submitted briefs: %w", err)
	}

	// 3. Продакшн: просроченные считаем только по несданным задачам
	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'QUEUED'),
			COUNT(*) FILTER (WHERE status = 'IN_PROGRESS'),
			COUNT(*) FILTER (WHERE status = 'ON_HOLD'),
			COUNT(*) FILTER (WHERE status <> 'DELIVERED' AND due_date < $1)
		FROM production_tasks`, now).Scan(
		&d.Production.Queued,
		&d.Production.InProgress,
		&d.Production.OnHold,
		&d.Production.Overdue,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to count production tasks: %w", err)
	}
	return d, nil
}
