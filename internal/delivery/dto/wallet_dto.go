package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type WithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required,max=50"`
	Note   string          `json:"note" validate:"max=255"`
}

// Response DTOs

type WalletResponse struct {
	ID               uuid.UUID       `json:"id"`
	DoctorID         uuid.UUID       `json:"doctor_id"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	TotalEarned      decimal.Decimal `json:"total_earned"`
	TotalWithdrawn   decimal.Decimal `json:"total_withdrawn"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	LastPaymentAt    *time.Time      `json:"last_payment_at,omitempty"`
	LastWithdrawalAt *time.Time      `json:"last_withdrawal_at,omitempty"`
}

type TransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	ReferenceType string          `json:"reference_type,omitempty"`
	Status        string          `json:"status"`
	Method        string          `json:"method,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
}

type ProcessWithdrawalResponse struct {
	Request    TransactionResponse `json:"request"`
	Withdrawal TransactionResponse `json:"withdrawal"`
	Wallet     WalletResponse      `json:"wallet"`
}
