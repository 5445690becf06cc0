package repository

import (
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

func (r *Repository) InsertSocialMetrics(m *domain.SocialMetrics) error {
	query := `
		INSERT INTO social_metrics (client_id, platform, followers, engagement, reach, impressions, posts_count, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		RETURNING id, recorded_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	var recordedAt any
	if !m.RecordedAt.IsZero() {
		recordedAt = m.RecordedAt
	}

	args := []any{m.ClientID, m.Platform, m.Followers, m.Engagement, m.Reach, m.Impressions, m.PostsCount, recordedAt}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&m.ID, &m.RecordedAt)
}

// GetSocialMetricsByClientID 按记录时间倒序返回，limit <= 0 表示不限制
func (r *Repository) GetSocialMetricsByClientID(clientID int64, limit int) ([]*domain.SocialMetrics, error) {
	query := `
		SELECT id, client_id, platform, followers, engagement, reach, impressions, posts_count, recorded_at
		FROM social_metrics
		WHERE client_id = $1
		ORDER BY recorded_at DESC
		LIMIT NULLIF($2, 0)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if limit < 0 {
		limit = 0
	}

	rows, err := r.dbpool.QueryContext(ctx, query, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := make([]*domain.SocialMetrics, 0)
	for rows.Next() {
		m := &domain.SocialMetrics{}
		dst := []any{&m.ID, &m.ClientID, &m.Platform, &m.Followers, &m.Engagement, &m.Reach, &m.Impressions, &m.PostsCount, &m.RecordedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metrics, nil
}
