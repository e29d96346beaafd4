package repository

import (
	"time"

	"healthcare-booking-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID, date string) ([]entity.Appointment, error)
	Update(db *gorm.DB, appointment *entity.Appointment) error
	// ConfirmPending confirms the appointment only if it is still pending.
	ConfirmPending(db *gorm.DB, id uuid.UUID) (int64, error)
	FindExpiredPending(db *gorm.DB, createdBefore time.Time, limit int) ([]entity.Appointment, error)
	// DeletePending soft-deletes the appointment only if it is still pending and
	// was created before the cutoff. Returns affected rows.
	DeletePending(db *gorm.DB, id uuid.UUID, createdBefore time.Time) (int64, error)
}
