package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "pending"
	AppointmentStatusConfirmed   AppointmentStatus = "confirmed"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusNoShow      AppointmentStatus = "no_show"
)

// ParseAppointmentStatus validates a status string.
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	switch st := AppointmentStatus(s); st {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusRescheduled,
		AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further transitions are allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled || s == AppointmentStatusNoShow
}

// CanTransitionTo reports whether moving from s to next is a valid status change.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s.IsTerminal() || s == next {
		return false
	}
	switch next {
	case AppointmentStatusPending:
		return false
	case AppointmentStatusConfirmed:
		return s == AppointmentStatusPending || s == AppointmentStatusRescheduled
	case AppointmentStatusRescheduled:
		return s == AppointmentStatusConfirmed || s == AppointmentStatusPending
	default:
		return true
	}
}

// BookedSlotStatus returns the booked-slot log state matching a terminal appointment status.
func (s AppointmentStatus) BookedSlotStatus() (BookedSlotStatus, bool) {
	switch s {
	case AppointmentStatusCompleted:
		return BookedSlotStatusCompleted, true
	case AppointmentStatusCancelled:
		return BookedSlotStatusCancelled, true
	case AppointmentStatusNoShow:
		return BookedSlotStatusNoShow, true
	}
	return "", false
}

// RescheduleEntry records where an appointment was before a reschedule and who moved it.
type RescheduleEntry struct {
	PreviousDate      string    `json:"previous_date"`
	PreviousStartTime string    `json:"previous_start_time"`
	PreviousEndTime   string    `json:"previous_end_time"`
	RescheduledBy     uuid.UUID `json:"rescheduled_by"`
	RescheduledByRole string    `json:"rescheduled_by_role"`
	Reason            string    `json:"reason,omitempty"`
	RescheduledAt     time.Time `json:"rescheduled_at"`
}

// Review is the patient's feedback on a completed appointment.
type Review struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Appointment is a patient's reservation of one doctor slot.
type Appointment struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"doctor_id"`
	Date              string            `gorm:"type:varchar(10);not null;index" json:"date"`
	StartTime         string            `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime           string            `gorm:"type:varchar(5);not null" json:"end_time"`
	ConsultationType  string            `gorm:"type:varchar(50);not null" json:"consultation_type"`
	ConsultationFee   decimal.Decimal   `gorm:"type:decimal(14,4);not null;default:0" json:"consultation_fee"`
	Reason            string            `gorm:"type:text" json:"reason,omitempty"`
	Status            AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RescheduleHistory []RescheduleEntry `gorm:"type:jsonb;serializer:json" json:"reschedule_history,omitempty"`
	Review            *Review           `gorm:"type:jsonb;serializer:json" json:"review,omitempty"`
	CreatedAt         time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsPending checks if appointment is awaiting payment
func (a *Appointment) IsPending() bool {
	return a.Status == AppointmentStatusPending
}

// StartsAt returns the instant the appointment begins in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return SlotInstant(a.Date, a.StartTime, loc)
}
