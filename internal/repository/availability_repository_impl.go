package repository

import (
	"errors"

	"healthcare-booking-service/internal/domain/entity"
	domainRepo "healthcare-booking-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type availabilityRepository struct{}

func NewAvailabilityRepository() domainRepo.AvailabilityRepository {
	return &availabilityRepository{}
}

func (r *availabilityRepository) Create(db *gorm.DB, availability *entity.Availability) error {
	return db.Create(availability).Error
}

func (r *availabilityRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) (*entity.Availability, error) {
	var availability entity.Availability
	err := db.Where("doctor_id = ?", doctorID).First(&availability).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &availability, nil
}

func (r *availabilityRepository) FindByDoctorIDForUpdate(db *gorm.DB, doctorID uuid.UUID) (*entity.Availability, error) {
	return r.FindByDoctorID(db.Clauses(clause.Locking{Strength: "UPDATE"}), doctorID)
}

// Update saves the availability and bumps its version so cached slot views expire.
func (r *availabilityRepository) Update(db *gorm.DB, availability *entity.Availability) error {
	availability.Version++
	return db.Save(availability).Error
}
