package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DoctorProfile is the read side of the doctor directory. The directory itself is
// managed elsewhere; this service only reads consultation fees from it.
type DoctorProfile struct {
	UserID           uuid.UUID                  `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName         string                     `gorm:"type:varchar(255)" json:"full_name"`
	Specialization   string                     `gorm:"type:varchar(100);index" json:"specialization"`
	ConsultationFee  decimal.Decimal            `gorm:"type:decimal(14,4);not null;default:0" json:"consultation_fee"`
	ConsultationFees map[string]decimal.Decimal `gorm:"type:jsonb;serializer:json" json:"consultation_fees,omitempty"`
	IsActive         *bool                      `gorm:"not null;default:true" json:"is_active"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}

// FeeFor returns the fee for a consultation type, falling back to the base fee.
func (d *DoctorProfile) FeeFor(consultationType string) decimal.Decimal {
	if fee, ok := d.ConsultationFees[consultationType]; ok {
		return fee
	}
	return d.ConsultationFee
}

// Active reports whether the doctor accepts bookings.
func (d *DoctorProfile) Active() bool {
	return d.IsActive == nil || *d.IsActive
}
