package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimbuscrm/crm_backend/utils"
	"gorm.io/gorm"
)

// OutboxEvent is the transactional outbox row. It is written inside the
// posting transaction; the dispatcher publishes it to Pub/Sub after commit so
// external delivery never holds the ledger transaction open.
type OutboxEvent struct {
	ID            int            `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	ClientId      string         `gorm:"type:char(36);not null;index" json:"client_id"`
	ReferenceId   int            `json:"reference_id"`
	ReferenceType ReferenceType  `gorm:"size:50;not null" json:"reference_type"`
	Action        ActivityAction `gorm:"size:30;not null" json:"action"`
	Payload       []byte         `gorm:"type:blob" json:"payload"`
	PublishStatus string         `gorm:"size:20;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`

	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`

	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// QueueOutboxEvent writes the event record inside the caller's transaction.
// No publish happens here.
func QueueOutboxEvent(tx *gorm.DB, ctx context.Context, clientId string, refId int, refType ReferenceType, action ActivityAction, payload string) error {
	event := OutboxEvent{
		ClientId:      clientId,
		ReferenceId:   refId,
		ReferenceType: refType,
		Action:        action,
		Payload:       []byte(payload),
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&event).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
