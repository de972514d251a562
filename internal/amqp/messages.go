package amqp

import (
	"encoding/json"
	"time"
)

// TransactionPostedMessage announces a ledger transaction that still needs
// mirroring to the spreadsheet. It carries only the ID and owner; the worker
// fetches the full transaction from the database.
type TransactionPostedMessage struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionPostedMessage creates a posted message for a transaction ID.
func NewTransactionPostedMessage(transactionID, userID string) *TransactionPostedMessage {
	return &TransactionPostedMessage{
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionPostedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionPostedMessageFromJSON creates a message from JSON bytes.
func TransactionPostedMessageFromJSON(data []byte) (*TransactionPostedMessage, error) {
	var msg TransactionPostedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
