package outbox

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/calendarinvite/event-management/internal/model"
)

// Publisher delivers one staged message to the transport.
type Publisher interface {
	Send(topic string, key string, payload []byte) error
}

// Worker polls the outbox table and publishes pending messages. Failed
// publishes are retried with exponential backoff until maxRetries, then
// marked failed for operator attention.
type Worker struct {
	db             *gorm.DB
	publisher      Publisher
	interval       time.Duration
	batchSize      int
	maxRetries     int
	baseRetryDelay time.Duration
	stopCh         chan struct{}
}

// NewWorker returns a worker over db publishing through publisher.
func NewWorker(db *gorm.DB, publisher Publisher) *Worker {
	return &Worker{
		db:             db,
		publisher:      publisher,
		interval:       10 * time.Second,
		batchSize:      50,
		maxRetries:     5,
		baseRetryDelay: 500 * time.Millisecond,
		stopCh:         make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called.
func (w *Worker) Start() {
	logrus.Info("Starting outbox worker")
	go w.processLoop()
}

// Stop terminates the polling loop.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) processLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.Drain()
		case <-w.stopCh:
			logrus.Info("Stopping outbox worker")
			return
		}
	}
}

// Drain publishes every currently eligible pending message once. Exposed so
// tests and shutdown paths can flush without waiting for the ticker.
func (w *Worker) Drain() {
	messages, err := w.pending()
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch outbox messages")
		return
	}

	for _, message := range messages {
		if err := w.publisher.Send(message.Topic, message.Key, message.Payload); err != nil {
			logrus.WithError(err).WithField("outbox_id", message.ID).Warn("Outbox publish failed")
			w.markFailed(message, err)
			continue
		}
		w.markProcessed(message)
	}
}

func (w *Worker) pending() ([]model.OutboxMessage, error) {
	var messages []model.OutboxMessage
	err := w.db.
		Where("status = ? AND retry_count < ? AND next_attempt <= ?",
			model.OutboxPending, w.maxRetries, time.Now()).
		Order("created_at ASC").
		Limit(w.batchSize).
		Find(&messages).Error
	return messages, err
}

func (w *Worker) markProcessed(message model.OutboxMessage) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       model.OutboxProcessed,
		"processed_at": &now,
		"last_error":   nil,
	}
	if err := w.db.Model(&message).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("outbox_id", message.ID).Error("Failed to mark outbox message processed")
	}
}

func (w *Worker) markFailed(message model.OutboxMessage, publishErr error) {
	retries := message.RetryCount + 1
	status := model.OutboxPending
	if retries >= w.maxRetries {
		status = model.OutboxFailed
		logrus.WithField("outbox_id", message.ID).
			Errorf("Outbox message failed permanently after %d retries: %v", w.maxRetries, publishErr)
	}

	errorString := publishErr.Error()
	backoff := w.baseRetryDelay * (1 << (retries - 1))
	updates := map[string]interface{}{
		"status":       status,
		"retry_count":  retries,
		"last_error":   &errorString,
		"next_attempt": time.Now().Add(backoff),
	}
	if err := w.db.Model(&message).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("outbox_id", message.ID).Error("Failed to update outbox retry state")
	}
}
