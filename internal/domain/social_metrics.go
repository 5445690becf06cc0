package domain

import "time"

type SocialMetrics struct {
	ID          int64     `json:"id"`
	ClientID    int64     `json:"clientID"`
	Platform    string    `json:"platform"`
	Followers   *int64    `json:"followers,omitempty"`
	Engagement  *float64  `json:"engagement,omitempty"` // 互动率，百分比
	Reach       *int64    `json:"reach,omitempty"`
	Impressions *int64    `json:"impressions,omitempty"`
	PostsCount  *int32    `json:"postsCount,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}
