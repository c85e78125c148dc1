package models

import "time"

// IdempotencyKey provides durable, DB-backed idempotency for posting
// operations and event handlers. Unique constraint: (client_id, handler_name,
// message_id); a duplicate insert means the operation already ran.
type IdempotencyKey struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ClientId    string    `gorm:"type:char(36);not null;index:uniq_idem,unique" json:"client_id"`
	HandlerName string    `gorm:"size:100;not null;index:uniq_idem,unique" json:"handler_name"`
	MessageId   string    `gorm:"size:255;not null;index:uniq_idem,unique" json:"message_id"`
	Status      string    `gorm:"size:20;not null;index" json:"status"`
	LastError   *string   `gorm:"type:text" json:"last_error"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
