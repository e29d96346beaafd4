package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// Wallet is a doctor's spendable balance. One per doctor.
type Wallet struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"doctor_id"`
	CurrentBalance   decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"current_balance"`
	TotalEarned      decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"total_earned"`
	TotalWithdrawn   decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"total_withdrawn"`
	TotalSpent       decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"total_spent"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:20" json:"commission_rate"`
	LastPaymentAt    *time.Time      `json:"last_payment_at,omitempty"`
	LastWithdrawalAt *time.Time      `json:"last_withdrawal_at,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// DoctorSharePercentage is the percentage of a payment the doctor keeps.
func (w *Wallet) DoctorSharePercentage() decimal.Decimal {
	return hundred.Sub(w.CommissionRate)
}

// DoctorShare computes amount × (100 − commissionRate) / 100.
func DoctorShare(amount, commissionRate decimal.Decimal) decimal.Decimal {
	return amount.Mul(hundred.Sub(commissionRate)).Div(hundred)
}

// Credit adds released funds to the balance and lifetime earnings.
func (w *Wallet) Credit(amount decimal.Decimal, at time.Time) {
	w.CurrentBalance = w.CurrentBalance.Add(amount)
	w.TotalEarned = w.TotalEarned.Add(amount)
	w.LastPaymentAt = &at
}

// Clawback reverses previously credited funds. It refuses to drive the balance negative.
func (w *Wallet) Clawback(amount decimal.Decimal) bool {
	if w.CurrentBalance.LessThan(amount) {
		return false
	}
	w.CurrentBalance = w.CurrentBalance.Sub(amount)
	w.TotalEarned = w.TotalEarned.Sub(amount)
	return true
}

// Withdraw debits a payout. It refuses to drive the balance negative.
func (w *Wallet) Withdraw(amount decimal.Decimal, at time.Time) bool {
	if w.CurrentBalance.LessThan(amount) {
		return false
	}
	w.CurrentBalance = w.CurrentBalance.Sub(amount)
	w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
	w.LastWithdrawalAt = &at
	return true
}
