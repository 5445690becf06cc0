package domain

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type ContentApproval struct {
	ID           int64          `json:"id"`
	ClientID     int64          `json:"clientID"`
	Title        string         `json:"title"`
	Body         *string        `json:"body,omitempty"`
	Platform     *string        `json:"platform,omitempty"`
	ScheduledFor *time.Time     `json:"scheduledFor,omitempty"`
	Status       ApprovalStatus `json:"status"`
	Feedback     *string        `json:"feedback,omitempty"`
	SubmittedBy  int64          `json:"submittedBy"`
	DecidedBy    *int64         `json:"decidedBy,omitempty"`
	DecidedAt    *time.Time     `json:"decidedAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	Version      int32          `json:"-"`
}
