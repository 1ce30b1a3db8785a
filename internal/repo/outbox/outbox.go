// Package outbox stages outbound notifications in the same transaction as
// the domain mutation that produced them, and republishes them to the
// transport with bounded retries.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calendarinvite/event-management/internal/model"
)

// Append stages one outbound message inside the caller's transaction. The
// message becomes visible to the worker only if the transaction commits, so a
// notification is never published for a mutation that rolled back.
func Append(tx *gorm.DB, topic, key string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal payload for %s: %w", topic, err)
	}

	message := model.OutboxMessage{
		ID:          uuid.New(),
		Topic:       topic,
		Key:         key,
		Payload:     raw,
		Status:      model.OutboxPending,
		NextAttempt: time.Now(),
		CreatedAt:   time.Now(),
	}
	if err := tx.Create(&message).Error; err != nil {
		return fmt.Errorf("outbox: append %s: %w", topic, err)
	}
	return nil
}
