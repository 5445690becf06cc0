package repository

import (
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

const approvalColumns = `id, client_id, title, body, platform, scheduled_for, status, feedback, submitted_by, decided_by, decided_at, created_at, version`

func scanApproval(row interface{ Scan(...any) error }) (*domain.ContentApproval, error) {
	a := &domain.ContentApproval{}
	dst := []any{&a.ID, &a.ClientID, &a.Title, &a.Body, &a.Platform, &a.ScheduledFor, &a.Status, &a.Feedback, &a.SubmittedBy, &a.DecidedBy, &a.DecidedAt, &a.CreatedAt, &a.Version}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Repository) CreateContentApproval(a *domain.ContentApproval) error {
	query := `
		INSERT INTO content_approvals (client_id, title, body, platform, scheduled_for, submitted_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{a.ClientID, a.Title, a.Body, a.Platform, a.ScheduledFor, a.SubmittedBy}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Status, &a.CreatedAt, &a.Version)
}

func (r *Repository) GetContentApprovalByID(id int64) (*domain.ContentApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM content_approvals WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanApproval(r.dbpool.QueryRowContext(ctx, query, id))
}

// GetContentApprovals 按条件过滤，clientID 和 status 为 nil 时不过滤
func (r *Repository) GetContentApprovals(clientID *int64, status *domain.ApprovalStatus) ([]*domain.ContentApproval, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM content_approvals
		WHERE ($1::BIGINT IS NULL OR client_id = $1)
		  AND ($2::TEXT IS NULL OR status = $2)
		ORDER BY created_at DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, clientID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	approvals := make([]*domain.ContentApproval, 0)
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return approvals, nil
}

// DecideContentApproval 只允许处理待审核的内容，已经处理过的返回 sql.ErrNoRows
func (r *Repository) DecideContentApproval(a *domain.ContentApproval) error {
	query := `
		UPDATE content_approvals
		SET
			status = $1,
			feedback = $2,
			decided_by = $3,
			decided_at = NOW(),
			version = version + 1
		WHERE id = $4 AND version = $5 AND status = 'pending'
		RETURNING decided_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{a.Status, a.Feedback, a.DecidedBy, a.ID, a.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&a.DecidedAt, &a.Version)
}

func (r *Repository) DeleteContentApproval(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM content_approvals WHERE id = $1`, id)
	return err
}

type DashboardSummary struct {
	Clients          int `json:"clients"`
	ActiveClients    int `json:"activeClients"`
	PendingApprovals int `json:"pendingApprovals"`
	Users            int `json:"users"`
}

func (r *Repository) GetDashboardSummary() (*DashboardSummary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM clients),
			(SELECT COUNT(*) FROM clients WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM content_approvals WHERE status = 'pending'),
			(SELECT COUNT(*) FROM users)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	s := &DashboardSummary{}
	if err := r.dbpool.QueryRowContext(ctx, query).Scan(&s.Clients, &s.ActiveClients, &s.PendingApprovals, &s.Users); err != nil {
		return nil, err
	}
	return s, nil
}
