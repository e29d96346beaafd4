package repository

import (
	"errors"

	"healthcare-booking-service/internal/domain/entity"
	domainRepo "healthcare-booking-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type paymentRepository struct{}

func NewPaymentRepository() domainRepo.PaymentRepository {
	return &paymentRepository{}
}

func (r *paymentRepository) Create(db *gorm.DB, payment *entity.Payment) error {
	return db.Create(payment).Error
}

func (r *paymentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Payment, error) {
	var payment entity.Payment
	err := db.Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Payment, error) {
	return r.FindByID(db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *paymentRepository) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := db.Where("appointment_id = ?", appointmentID).Order("created_at DESC").Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) Update(db *gorm.DB, payment *entity.Payment) error {
	return db.Save(payment).Error
}

func (r *paymentRepository) CountByAppointmentAndStatus(db *gorm.DB, appointmentID uuid.UUID, statuses ...entity.PaymentStatus) (int64, error) {
	var count int64
	err := db.Model(&entity.Payment{}).
		Where("appointment_id = ? AND status IN ?", appointmentID, statuses).
		Count(&count).Error
	return count, err
}

func (r *paymentRepository) FindCapturedOfCancelled(db *gorm.DB, limit int) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := db.
		Joins("JOIN appointments ON appointments.id = payments.appointment_id").
		Where("payments.status = ? AND appointments.status = ?",
			entity.PaymentStatusCaptured, entity.AppointmentStatusCancelled).
		Order("payments.updated_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
