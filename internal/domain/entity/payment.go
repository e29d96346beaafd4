package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusAuthorized        PaymentStatus = "authorized"
	PaymentStatusCaptured          PaymentStatus = "captured"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusFailed            PaymentStatus = "failed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusAuthorized, PaymentStatusCaptured, PaymentStatusFailed},
	PaymentStatusAuthorized: {PaymentStatusCaptured, PaymentStatusFailed},
	PaymentStatusCaptured:   {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
}

// CanTransitionTo reports whether the payment state machine allows s -> next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment is the money a patient pays for one appointment.
type Payment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AppointmentID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"appointment_id"`
	DoctorID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"doctor_id"`
	PatientID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"patient_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"amount"`
	Method            string          `gorm:"type:varchar(50);not null" json:"method"`
	Status            PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	GatewayReference  string          `gorm:"type:varchar(255);index" json:"gateway_reference,omitempty"`
	UpcomingEarningID *uuid.UUID      `gorm:"type:uuid" json:"upcoming_earning_id,omitempty"`
	FailureReason     string          `gorm:"type:text" json:"failure_reason,omitempty"`
	CapturedAt        *time.Time      `json:"captured_at,omitempty"`

	// Refund record
	RefundAmount      decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"refund_amount"`
	RefundReason      string          `gorm:"type:text" json:"refund_reason,omitempty"`
	RefundInitiatedBy *uuid.UUID      `gorm:"type:uuid" json:"refund_initiated_by,omitempty"`
	RefundReference   string          `gorm:"type:varchar(255)" json:"refund_reference,omitempty"`
	RefundedAt        *time.Time      `json:"refunded_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsCaptured checks if the payment has been captured and not refunded
func (p *Payment) IsCaptured() bool {
	return p.Status == PaymentStatusCaptured
}
