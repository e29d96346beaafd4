package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType classifies a balance-affecting event
type TransactionType string

const (
	TransactionTypePayment           TransactionType = "payment"
	TransactionTypeEarning           TransactionType = "earning"
	TransactionTypeRefund            TransactionType = "refund"
	TransactionTypeClawback          TransactionType = "clawback"
	TransactionTypeWithdrawalRequest TransactionType = "withdrawal_request"
	TransactionTypeWithdrawal        TransactionType = "withdrawal"
)

// TransactionStatus represents the status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	// Deferred marks a clawback that could not be applied because the wallet balance was too low.
	TransactionStatusDeferred TransactionStatus = "deferred"
)

// Transaction is an audit entry written for every balance-affecting event.
// Only Status changes after creation.
type Transaction struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Type          TransactionType   `gorm:"type:varchar(30);not null;index" json:"type"`
	Amount        decimal.Decimal   `gorm:"type:decimal(14,4);not null" json:"amount"`
	ReferenceID   string            `gorm:"type:varchar(100);index" json:"reference_id"`
	ReferenceType string            `gorm:"type:varchar(50)" json:"reference_type"`
	Status        TransactionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Method        string            `gorm:"type:varchar(50)" json:"method,omitempty"`
	Description   string            `gorm:"type:text" json:"description,omitempty"`
	CreatedAt     time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Reference types used on transactions
const (
	ReferenceTypePayment    = "payment"
	ReferenceTypeEarning    = "upcoming_earning"
	ReferenceTypeWithdrawal = "withdrawal"
)
