package repository

import (
	"errors"

	"healthcare-booking-service/internal/domain/entity"
	domainRepo "healthcare-booking-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type transactionRepository struct{}

func NewTransactionRepository() domainRepo.TransactionRepository {
	return &transactionRepository{}
}

func (r *transactionRepository) Create(db *gorm.DB, transaction *entity.Transaction) error {
	return db.Create(transaction).Error
}

func (r *transactionRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Transaction, error) {
	var transaction entity.Transaction
	err := db.Where("id = ?", id).First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

func (r *transactionRepository) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Transaction, error) {
	return r.FindByID(db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *transactionRepository) FindByReference(db *gorm.DB, referenceType, referenceID string, txType entity.TransactionType) (*entity.Transaction, error) {
	var transaction entity.Transaction
	err := db.Where("reference_type = ? AND reference_id = ? AND type = ?", referenceType, referenceID, txType).
		Order("created_at DESC").
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

func (r *transactionRepository) FindByUserID(db *gorm.DB, userID uuid.UUID, limit, offset int) ([]entity.Transaction, int64, error) {
	var total int64
	if err := db.Model(&entity.Transaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []entity.Transaction
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (r *transactionRepository) UpdateStatus(db *gorm.DB, id uuid.UUID, from, to entity.TransactionStatus) (int64, error) {
	result := db.Model(&entity.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}
