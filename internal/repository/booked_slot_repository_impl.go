package repository

import (
	"errors"

	"healthcare-booking-service/internal/domain/entity"
	domainRepo "healthcare-booking-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type bookedSlotRepository struct{}

func NewBookedSlotRepository() domainRepo.BookedSlotRepository {
	return &bookedSlotRepository{}
}

func (r *bookedSlotRepository) Create(db *gorm.DB, slot *entity.BookedSlot) error {
	return db.Create(slot).Error
}

func (r *bookedSlotRepository) FindActiveByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date string) ([]entity.BookedSlot, error) {
	var slots []entity.BookedSlot
	err := db.Where("doctor_id = ? AND date = ? AND status = ?", doctorID, date, entity.BookedSlotStatusBooked).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *bookedSlotRepository) FindActive(db *gorm.DB, doctorID uuid.UUID, date, startTime, consultationType string) (*entity.BookedSlot, error) {
	var slot entity.BookedSlot
	err := db.Where("doctor_id = ? AND date = ? AND start_time = ? AND consultation_type = ? AND status = ?",
		doctorID, date, startTime, consultationType, entity.BookedSlotStatusBooked).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

func (r *bookedSlotRepository) FindActiveByAppointment(db *gorm.DB, appointmentID uuid.UUID) (*entity.BookedSlot, error) {
	var slot entity.BookedSlot
	err := db.Where("appointment_id = ? AND status = ?", appointmentID, entity.BookedSlotStatusBooked).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

func (r *bookedSlotRepository) ReleaseByAppointment(db *gorm.DB, appointmentID uuid.UUID, status entity.BookedSlotStatus) (int64, error) {
	result := db.Model(&entity.BookedSlot{}).
		Where("appointment_id = ? AND status = ?", appointmentID, entity.BookedSlotStatusBooked).
		Update("status", status)
	return result.RowsAffected, result.Error
}
