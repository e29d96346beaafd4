package repository

import (
	"healthcare-booking-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookedSlotRepository interface {
	Create(db *gorm.DB, slot *entity.BookedSlot) error
	FindActiveByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date string) ([]entity.BookedSlot, error)
	FindActive(db *gorm.DB, doctorID uuid.UUID, date, startTime, consultationType string) (*entity.BookedSlot, error)
	FindActiveByAppointment(db *gorm.DB, appointmentID uuid.UUID) (*entity.BookedSlot, error)
	// ReleaseByAppointment moves the appointment's booked entry to status.
	// Returns affected rows: 0 when the appointment holds no booked slot.
	ReleaseByAppointment(db *gorm.DB, appointmentID uuid.UUID, status entity.BookedSlotStatus) (int64, error)
}
