package repository

import (
	"healthcare-booking-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(db *gorm.DB, payment *entity.Payment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Payment, error)
	FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Payment, error)
	FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.Payment, error)
	Update(db *gorm.DB, payment *entity.Payment) error
	CountByAppointmentAndStatus(db *gorm.DB, appointmentID uuid.UUID, statuses ...entity.PaymentStatus) (int64, error)
	// FindCapturedOfCancelled returns captured payments whose appointment is already cancelled.
	FindCapturedOfCancelled(db *gorm.DB, limit int) ([]entity.Payment, error)
}
