package repository

import (
	"healthcare-booking-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WalletRepository interface {
	Create(db *gorm.DB, wallet *entity.Wallet) error
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) (*entity.Wallet, error)
	FindByDoctorIDForUpdate(db *gorm.DB, doctorID uuid.UUID) (*entity.Wallet, error)
	Update(db *gorm.DB, wallet *entity.Wallet) error
}
