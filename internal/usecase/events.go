package usecase

import (
	"context"
	"time"

	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type appointmentEvent struct {
	AppointmentID    uuid.UUID `json:"appointment_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	DoctorID         uuid.UUID `json:"doctor_id"`
	Date             string    `json:"date"`
	StartTime        string    `json:"start_time"`
	EndTime          string    `json:"end_time"`
	ConsultationType string    `json:"consultation_type"`
	Status           string    `json:"status"`
	PreviousStatus   string    `json:"previous_status,omitempty"`
	PreviousDate     string    `json:"previous_date,omitempty"`
	PreviousStart    string    `json:"previous_start_time,omitempty"`
	Reason           string    `json:"reason,omitempty"`
}

func newAppointmentEvent(a *entity.Appointment) appointmentEvent {
	return appointmentEvent{
		AppointmentID:    a.ID,
		PatientID:        a.PatientID,
		DoctorID:         a.DoctorID,
		Date:             a.Date,
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		ConsultationType: a.ConsultationType,
		Status:           string(a.Status),
	}
}

type reviewEvent struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment,omitempty"`
}

type refundEvent struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	AppointmentID uuid.UUID       `json:"appointment_id"`
	PatientID     uuid.UUID       `json:"patient_id"`
	DoctorID      uuid.UUID       `json:"doctor_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Reason        string          `json:"reason"`
}

type withdrawalEvent struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	DoctorID      uuid.UUID       `json:"doctor_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
}

// publishEvent sends an event after the change has committed. Failures are
// logged only; the committed change stands.
func publishEvent(ctx context.Context, publisher service.NotificationPublisher, log *logrus.Logger, now time.Time, eventType string, payload interface{}) {
	if publisher == nil {
		return
	}
	event := service.Event{Type: eventType, OccurredAt: now, Payload: payload}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Warnf("Failed to publish %s event: %+v", eventType, err)
	}
}
