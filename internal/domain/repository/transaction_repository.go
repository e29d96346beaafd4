package repository

import (
	"healthcare-booking-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	Create(db *gorm.DB, transaction *entity.Transaction) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Transaction, error)
	FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Transaction, error)
	FindByReference(db *gorm.DB, referenceType, referenceID string, txType entity.TransactionType) (*entity.Transaction, error)
	FindByUserID(db *gorm.DB, userID uuid.UUID, limit, offset int) ([]entity.Transaction, int64, error)
	// UpdateStatus moves a transaction from one status to another.
	// Returns affected rows: 0 when the transaction was not in the from status.
	UpdateStatus(db *gorm.DB, id uuid.UUID, from, to entity.TransactionStatus) (int64, error)
}
