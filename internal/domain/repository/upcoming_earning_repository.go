package repository

import (
	"time"

	"healthcare-booking-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UpcomingEarningRepository interface {
	Create(db *gorm.DB, earning *entity.UpcomingEarning) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.UpcomingEarning, error)
	FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.UpcomingEarning, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID, status entity.EarningStatus) ([]entity.UpcomingEarning, error)
	Update(db *gorm.DB, earning *entity.UpcomingEarning) error
	// FindReleasable returns pending earnings due by now whose appointment is completed.
	FindReleasable(db *gorm.DB, now time.Time, limit int) ([]entity.UpcomingEarning, error)
}
