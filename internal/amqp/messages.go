package amqp

import (
	"encoding/json"
	"time"

	"finbook/internal/core"
)

// BudgetResyncedMessage announces that a month's cached spent was
// recomputed. It carries the full refreshed state so consumers never
// have to read the database.
type BudgetResyncedMessage struct {
	UserID     string    `json:"user_id"`
	Month      string    `json:"month"`
	LimitCents int64     `json:"limit_cents"`
	SpentCents int64     `json:"spent_cents"`
	Overspent  bool      `json:"overspent"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewBudgetResyncedMessage builds a message from a refreshed budget.
func NewBudgetResyncedMessage(b core.Budget, overspent bool) *BudgetResyncedMessage {
	return &BudgetResyncedMessage{
		UserID:     b.UserID,
		Month:      b.Month,
		LimitCents: b.Limit.Cents,
		SpentCents: b.Spent.Cents,
		Overspent:  overspent,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *BudgetResyncedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetResyncedMessageFromJSON creates a message from JSON bytes.
func BudgetResyncedMessageFromJSON(data []byte) (*BudgetResyncedMessage, error) {
	var msg BudgetResyncedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
