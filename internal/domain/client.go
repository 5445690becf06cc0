package domain

import "time"

type Client struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ContactName *string   `json:"contactName,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"` // 存储格式（E.164）
	Industry    *string   `json:"industry,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	Version     int32     `json:"-"`
}
