package repository

import (
	"errors"
	"time"

	"healthcare-booking-service/internal/domain/entity"
	domainRepo "healthcare-booking-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type upcomingEarningRepository struct{}

func NewUpcomingEarningRepository() domainRepo.UpcomingEarningRepository {
	return &upcomingEarningRepository{}
}

func (r *upcomingEarningRepository) Create(db *gorm.DB, earning *entity.UpcomingEarning) error {
	return db.Create(earning).Error
}

func (r *upcomingEarningRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.UpcomingEarning, error) {
	var earning entity.UpcomingEarning
	err := db.Where("id = ?", id).First(&earning).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &earning, nil
}

func (r *upcomingEarningRepository) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.UpcomingEarning, error) {
	return r.FindByID(db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *upcomingEarningRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID, status entity.EarningStatus) ([]entity.UpcomingEarning, error) {
	var earnings []entity.UpcomingEarning
	query := db.Where("doctor_id = ?", doctorID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("scheduled_date ASC").Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *upcomingEarningRepository) Update(db *gorm.DB, earning *entity.UpcomingEarning) error {
	return db.Save(earning).Error
}

func (r *upcomingEarningRepository) FindReleasable(db *gorm.DB, now time.Time, limit int) ([]entity.UpcomingEarning, error) {
	var earnings []entity.UpcomingEarning
	err := db.
		Joins("JOIN appointments ON appointments.id = upcoming_earnings.appointment_id").
		Where("upcoming_earnings.status = ? AND upcoming_earnings.scheduled_date <= ? AND appointments.status = ?",
			entity.EarningStatusPending, now, entity.AppointmentStatusCompleted).
		Order("upcoming_earnings.scheduled_date ASC").
		Limit(limit).
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}
