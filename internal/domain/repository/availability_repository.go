package repository

import (
	"healthcare-booking-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AvailabilityRepository interface {
	Create(db *gorm.DB, availability *entity.Availability) error
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) (*entity.Availability, error)
	// FindByDoctorIDForUpdate locks the availability row until the surrounding transaction ends.
	FindByDoctorIDForUpdate(db *gorm.DB, doctorID uuid.UUID) (*entity.Availability, error)
	Update(db *gorm.DB, availability *entity.Availability) error
}
