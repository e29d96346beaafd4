package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EarningStatus represents the escrow state of an upcoming earning
type EarningStatus string

const (
	EarningStatusPending  EarningStatus = "pending"
	EarningStatusReleased EarningStatus = "released"
	EarningStatusRefunded EarningStatus = "refunded"
)

// UpcomingEarning holds a doctor's share of a captured payment until it is
// released into the wallet or reversed by a refund.
type UpcomingEarning struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"doctor_id"`
	AppointmentID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"appointment_id"`
	PaymentID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"payment_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"amount"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_rate"`
	Status         EarningStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ScheduledDate  time.Time       `gorm:"not null;index" json:"scheduled_date"`
	ReleasedAt     *time.Time      `json:"released_at,omitempty"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UpcomingEarning) TableName() string {
	return "upcoming_earnings"
}

func (e *UpcomingEarning) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsPending checks if the earning is still held in escrow
func (e *UpcomingEarning) IsPending() bool {
	return e.Status == EarningStatusPending
}
