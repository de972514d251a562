package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// Service posts transactions to local storage and announces them on AMQP so
// the mirror worker can sync them downstream. The broker is optional: a nil
// client degrades to SQLite-only operation.
type Service struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *Service {
	return &Service{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

var _ Writer = (*Service)(nil)

// CreateTransaction saves a transaction locally and publishes a posted message.
// A publish failure does not fail the call; the periodic sweep picks the row
// up later via its pending sync status.
func (s *Service) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	id, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping posted message", "transaction_id", id)
		return id, nil
	}

	if err := s.amqpClient.PublishTransactionPosted(ctx, id, t.UserID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish posted message",
			"transaction_id", id, "error", err)
	}

	return id, nil
}

// GetTransaction returns a posted transaction by ID.
func (s *Service) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	return s.storage.GetTransaction(ctx, id)
}
