package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type BookAppointmentRequest struct {
	DoctorID         uuid.UUID `json:"doctor_id" validate:"required"`
	Date             string    `json:"date" validate:"required,date"`
	StartTime        string    `json:"start_time" validate:"required,clock"`
	ConsultationType string    `json:"consultation_type" validate:"required,max=50"`
	Reason           string    `json:"reason" validate:"max=1000"`
}

type RescheduleAppointmentRequest struct {
	Date      string `json:"date" validate:"required,date"`
	StartTime string `json:"start_time" validate:"required,clock"`
	Reason    string `json:"reason" validate:"max=500"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled no_show"`
	Reason string `json:"reason" validate:"max=500"`
}

type AddReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// Response DTOs

type RescheduleEntryResponse struct {
	PreviousDate      string    `json:"previous_date"`
	PreviousStartTime string    `json:"previous_start_time"`
	PreviousEndTime   string    `json:"previous_end_time"`
	RescheduledBy     uuid.UUID `json:"rescheduled_by"`
	RescheduledByRole string    `json:"rescheduled_by_role"`
	Reason            string    `json:"reason,omitempty"`
	RescheduledAt     time.Time `json:"rescheduled_at"`
}

type ReviewResponse struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AppointmentResponse struct {
	ID                uuid.UUID                 `json:"id"`
	PatientID         uuid.UUID                 `json:"patient_id"`
	DoctorID          uuid.UUID                 `json:"doctor_id"`
	Date              string                    `json:"date"`
	StartTime         string                    `json:"start_time"`
	EndTime           string                    `json:"end_time"`
	ConsultationType  string                    `json:"consultation_type"`
	ConsultationFee   decimal.Decimal           `json:"consultation_fee"`
	Reason            string                    `json:"reason,omitempty"`
	Status            string                    `json:"status"`
	RescheduleHistory []RescheduleEntryResponse `json:"reschedule_history,omitempty"`
	Review            *ReviewResponse           `json:"review,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
