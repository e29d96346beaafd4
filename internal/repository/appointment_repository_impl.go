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

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return db.Create(appointment).Error
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return r.FindByID(db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *appointmentRepository) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("patient_id = ?", patientID).
		Order("date DESC, start_time DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID, date string) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	query := db.Where("doctor_id = ?", doctorID)
	if date != "" {
		query = query.Where("date = ?", date)
	}
	err := query.Order("date ASC, start_time ASC").Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) Update(db *gorm.DB, appointment *entity.Appointment) error {
	return db.Save(appointment).Error
}

func (r *appointmentRepository) ConfirmPending(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, entity.AppointmentStatusPending).
		Update("status", entity.AppointmentStatusConfirmed)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) FindExpiredPending(db *gorm.DB, createdBefore time.Time, limit int) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("status = ? AND created_at < ?", entity.AppointmentStatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// DeletePending re-checks status and age in the WHERE clause so a booking that
// got confirmed after it was listed is never removed.
func (r *appointmentRepository) DeletePending(db *gorm.DB, id uuid.UUID, createdBefore time.Time) (int64, error) {
	result := db.Where("id = ? AND status = ? AND created_at < ?", id, entity.AppointmentStatusPending, createdBefore).
		Delete(&entity.Appointment{})
	return result.RowsAffected, result.Error
}
