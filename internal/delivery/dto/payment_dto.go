package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreatePaymentRequest struct {
	AppointmentID    uuid.UUID       `json:"appointment_id" validate:"required"`
	Amount           decimal.Decimal `json:"amount"`
	Method           string          `json:"method" validate:"required,max=50"`
	Status           string          `json:"status" validate:"omitempty,oneof=pending authorized captured"`
	GatewayReference string          `json:"gateway_reference" validate:"max=255"`
}

type GatewayEventRequest struct {
	GatewayReference string `json:"gateway_reference" validate:"max=255"`
}

type FailPaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"required,max=500"`
}

// Response DTOs

type PaymentResponse struct {
	ID                uuid.UUID       `json:"id"`
	AppointmentID     uuid.UUID       `json:"appointment_id"`
	DoctorID          uuid.UUID       `json:"doctor_id"`
	PatientID         uuid.UUID       `json:"patient_id"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method"`
	Status            string          `json:"status"`
	GatewayReference  string          `json:"gateway_reference,omitempty"`
	UpcomingEarningID *uuid.UUID      `json:"upcoming_earning_id,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	CapturedAt        *time.Time      `json:"captured_at,omitempty"`
	Refund            *RefundRecord   `json:"refund,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type RefundRecord struct {
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	InitiatedBy *uuid.UUID      `json:"initiated_by,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	RefundedAt  *time.Time      `json:"refunded_at,omitempty"`
}

type UpcomingEarningResponse struct {
	ID             uuid.UUID       `json:"id"`
	DoctorID       uuid.UUID       `json:"doctor_id"`
	AppointmentID  uuid.UUID       `json:"appointment_id"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Status         string          `json:"status"`
	ScheduledDate  time.Time       `json:"scheduled_date"`
	ReleasedAt     *time.Time      `json:"released_at,omitempty"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
}

type UpcomingEarningListResponse struct {
	Earnings []UpcomingEarningResponse `json:"earnings"`
	Total    int                       `json:"total"`
}

type ProcessPaymentResponse struct {
	Payment        PaymentResponse         `json:"payment"`
	Earning        UpcomingEarningResponse `json:"earning"`
	DoctorShare    decimal.Decimal         `json:"doctor_share"`
	PlatformShare  decimal.Decimal         `json:"platform_share"`
	CommissionRate decimal.Decimal         `json:"commission_rate"`
	Wallet         WalletResponse          `json:"wallet"`
}

type RefundSettlementResponse struct {
	EarningStatus   string          `json:"earning_status,omitempty"`
	EarningAmount   decimal.Decimal `json:"earning_amount"`
	ClawbackAmount  decimal.Decimal `json:"clawback_amount"`
	ClawbackApplied bool            `json:"clawback_applied"`
	ClawbackTxID    *uuid.UUID      `json:"clawback_transaction_id,omitempty"`
}

type RefundResponse struct {
	Payment    PaymentResponse          `json:"payment"`
	Settlement RefundSettlementResponse `json:"settlement"`
}
