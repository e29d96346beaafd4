package repository

import (
	"errors"

	"healthcare-booking-service/internal/domain/entity"
	domainRepo "healthcare-booking-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct{}

func NewWalletRepository() domainRepo.WalletRepository {
	return &walletRepository{}
}

func (r *walletRepository) Create(db *gorm.DB, wallet *entity.Wallet) error {
	return db.Create(wallet).Error
}

func (r *walletRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) (*entity.Wallet, error) {
	var wallet entity.Wallet
	err := db.Where("doctor_id = ?", doctorID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepository) FindByDoctorIDForUpdate(db *gorm.DB, doctorID uuid.UUID) (*entity.Wallet, error) {
	return r.FindByDoctorID(db.Clauses(clause.Locking{Strength: "UPDATE"}), doctorID)
}

func (r *walletRepository) Update(db *gorm.DB, wallet *entity.Wallet) error {
	return db.Save(wallet).Error
}
