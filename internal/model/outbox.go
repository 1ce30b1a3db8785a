package model

import (
	"time"

	"github.com/google/uuid"
)

// Outbox message lifecycle states.
const (
	OutboxPending   = "pending"
	OutboxProcessed = "processed"
	OutboxFailed    = "failed"
)

// OutboxMessage is an outbound notification staged in the same transaction as
// the domain mutation that produced it, and published to the transport by the
// outbox worker.
type OutboxMessage struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Topic       string     `json:"topic" gorm:"size:191;index"`
	Key         string     `json:"key" gorm:"size:191"`
	Payload     []byte     `json:"payload" gorm:"type:json"`
	Status      string     `json:"status" gorm:"size:16;default:'pending';index"`
	RetryCount  int        `json:"retry_count" gorm:"default:0"`
	NextAttempt time.Time  `json:"next_attempt" gorm:"index"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}
