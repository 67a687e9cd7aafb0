package ledger

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// EventTransactionCommitted is the type of the event emitted for every commit.
const EventTransactionCommitted = "stock.transaction.committed"

// Event describes a committed transaction.
type Event struct {
	Type            string                 `json:"type"`
	TransactionID   id.ID                  `json:"transactionId"`
	ReferenceNumber string                 `json:"referenceNumber"`
	TransactionType entity.TransactionType `json:"transactionType"`
	CreatedBy       string                 `json:"createdBy"`
	OccurredAt      time.Time              `json:"occurredAt"`
	Changes         []BalanceChange        `json:"changes"`
}

// BalanceChange is the effect of one movement.
type BalanceChange struct {
	ProductID      id.ID `json:"productId"`
	Sequence       int64 `json:"sequence"`
	QuantityBefore int64 `json:"quantityBefore"`
	QuantityChange int64 `json:"quantityChange"`
	QuantityAfter  int64 `json:"quantityAfter"`
}

// NewEvent builds the commit event of txn.
func NewEvent(txn *entity.StockTransaction) Event {
	changes := make([]BalanceChange, len(txn.Movements))
	for i, m := range txn.Movements {
		changes[i] = BalanceChange{
			ProductID:      m.ProductID,
			Sequence:       m.Sequence,
			QuantityBefore: m.QuantityBefore,
			QuantityChange: m.QuantityChange,
			QuantityAfter:  m.QuantityAfter,
		}
	}
	return Event{
		Type:            EventTransactionCommitted,
		TransactionID:   txn.ID,
		ReferenceNumber: txn.ReferenceNumber,
		TransactionType: txn.Type,
		CreatedBy:       txn.CreatedBy,
		OccurredAt:      txn.CreatedAt,
		Changes:         changes,
	}
}

// EventRecorder stages an event inside the write unit so it is published only
// if the transaction commits (transactional outbox).
type EventRecorder interface {
	Record(ctx context.Context, event Event) error
}

// AuditRecorder writes an audit entry inside the write unit.
type AuditRecorder interface {
	RecordTransaction(ctx context.Context, txn *entity.StockTransaction) error
}

// Subscriber is notified after a transaction has committed.
type Subscriber func(ctx context.Context, event Event)
