package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/internal/domain/repository"
	"healthcare-booking-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEarningNotFound   = apperror.New(apperror.ErrNotFound, "upcoming earning not found")
	ErrEarningNotPending = apperror.New(apperror.ErrStateViolation, "upcoming earning is no longer pending")
)

// RefundSettlement describes how a refund was reconciled against escrow and wallet.
type RefundSettlement struct {
	EarningStatus   entity.EarningStatus `json:"earning_status,omitempty"`
	EarningAmount   decimal.Decimal      `json:"earning_amount"`
	ClawbackAmount  decimal.Decimal      `json:"clawback_amount"`
	ClawbackApplied bool                 `json:"clawback_applied"`
	ClawbackTxID    *uuid.UUID           `json:"clawback_transaction_id,omitempty"`
}

// EscrowService moves a doctor's share of captured payments through escrow
// into the wallet, and back out again on refund. Every method runs on the
// caller's transaction.
type EscrowService interface {
	// Wallet returns the doctor's wallet, creating it with the default
	// commission rate on first access. lock holds the row until tx ends.
	Wallet(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, lock bool) (*entity.Wallet, error)
	// CommissionRate is the single source of the platform commission for a doctor.
	CommissionRate(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID) (decimal.Decimal, error)
	Hold(ctx context.Context, tx *gorm.DB, payment *entity.Payment, releaseAt time.Time) (*entity.UpcomingEarning, error)
	Release(ctx context.Context, tx *gorm.DB, earningID uuid.UUID, now time.Time) (*entity.UpcomingEarning, *entity.Wallet, error)
	AddFunds(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, amount decimal.Decimal, source, description, referenceID string, now time.Time) (*entity.Wallet, error)
	SettleRefund(ctx context.Context, tx *gorm.DB, payment *entity.Payment, refundAmount decimal.Decimal, now time.Time) (*RefundSettlement, error)
}

type escrowService struct {
	log                   *logrus.Logger
	walletRepo            repository.WalletRepository
	earningRepo           repository.UpcomingEarningRepository
	transactionRepo       repository.TransactionRepository
	defaultCommissionRate decimal.Decimal
}

func NewEscrowService(
	log *logrus.Logger,
	walletRepo repository.WalletRepository,
	earningRepo repository.UpcomingEarningRepository,
	transactionRepo repository.TransactionRepository,
	defaultCommissionRate decimal.Decimal,
) EscrowService {
	return &escrowService{
		log:                   log,
		walletRepo:            walletRepo,
		earningRepo:           earningRepo,
		transactionRepo:       transactionRepo,
		defaultCommissionRate: defaultCommissionRate,
	}
}

func (s *escrowService) Wallet(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, lock bool) (*entity.Wallet, error) {
	db := tx.WithContext(ctx)
	find := s.walletRepo.FindByDoctorID
	if lock {
		find = s.walletRepo.FindByDoctorIDForUpdate
	}

	wallet, err := find(db, doctorID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}

	// A concurrent first access may create the row first; ignore the conflict and re-read.
	created := &entity.Wallet{
		DoctorID:       doctorID,
		CurrentBalance: decimal.Zero,
		TotalEarned:    decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		TotalSpent:     decimal.Zero,
		CommissionRate: s.defaultCommissionRate,
	}
	if err := s.walletRepo.Create(db.Clauses(clause.OnConflict{DoNothing: true}), created); err != nil {
		return nil, err
	}

	wallet, err = find(db, doctorID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet for doctor %s missing after create", doctorID)
	}
	s.log.Infof("Wallet created: doctor=%s, commission_rate=%s", doctorID, wallet.CommissionRate)
	return wallet, nil
}

func (s *escrowService) CommissionRate(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID) (decimal.Decimal, error) {
	wallet, err := s.Wallet(ctx, tx, doctorID, false)
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.CommissionRate, nil
}

// Hold puts the doctor's share of a captured payment into escrow and links it to the payment.
func (s *escrowService) Hold(ctx context.Context, tx *gorm.DB, payment *entity.Payment, releaseAt time.Time) (*entity.UpcomingEarning, error) {
	rate, err := s.CommissionRate(ctx, tx, payment.DoctorID)
	if err != nil {
		return nil, err
	}

	earning := &entity.UpcomingEarning{
		DoctorID:       payment.DoctorID,
		AppointmentID:  payment.AppointmentID,
		PaymentID:      payment.ID,
		Amount:         entity.DoctorShare(payment.Amount, rate),
		CommissionRate: rate,
		Status:         entity.EarningStatusPending,
		ScheduledDate:  releaseAt,
	}
	if err := s.earningRepo.Create(tx.WithContext(ctx), earning); err != nil {
		s.log.Warnf("Failed to create upcoming earning for payment %s: %+v", payment.ID, err)
		return nil, err
	}

	payment.UpcomingEarningID = &earning.ID
	return earning, nil
}

// Release credits a pending earning to the wallet. Flipping the earning and
// crediting the wallet share the caller's transaction.
func (s *escrowService) Release(ctx context.Context, tx *gorm.DB, earningID uuid.UUID, now time.Time) (*entity.UpcomingEarning, *entity.Wallet, error) {
	db := tx.WithContext(ctx)

	earning, err := s.earningRepo.FindByIDForUpdate(db, earningID)
	if err != nil {
		return nil, nil, err
	}
	if earning == nil {
		return nil, nil, ErrEarningNotFound
	}
	if !earning.IsPending() {
		return nil, nil, ErrEarningNotPending
	}

	wallet, err := s.AddFunds(ctx, tx, earning.DoctorID, earning.Amount, entity.ReferenceTypeEarning,
		fmt.Sprintf("Earning released for appointment %s", earning.AppointmentID), earning.ID.String(), now)
	if err != nil {
		return nil, nil, err
	}

	earning.Status = entity.EarningStatusReleased
	earning.ReleasedAt = &now
	if err := s.earningRepo.Update(db, earning); err != nil {
		return nil, nil, err
	}

	s.log.Infof("Earning released: id=%s, doctor=%s, amount=%s", earning.ID, earning.DoctorID, earning.Amount)
	return earning, wallet, nil
}

func (s *escrowService) AddFunds(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, amount decimal.Decimal, source, description, referenceID string, now time.Time) (*entity.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.New(apperror.ErrInvalidInput, "amount must be positive")
	}

	db := tx.WithContext(ctx)
	wallet, err := s.Wallet(ctx, tx, doctorID, true)
	if err != nil {
		return nil, err
	}

	wallet.Credit(amount, now)
	if err := s.walletRepo.Update(db, wallet); err != nil {
		return nil, err
	}

	credit := &entity.Transaction{
		UserID:        doctorID,
		Type:          entity.TransactionTypeEarning,
		Amount:        amount,
		ReferenceID:   referenceID,
		ReferenceType: source,
		Status:        entity.TransactionStatusCompleted,
		Description:   description,
	}
	if err := s.transactionRepo.Create(db, credit); err != nil {
		return nil, err
	}

	return wallet, nil
}

// SettleRefund reconciles the payment's escrowed earning after a refund of
// refundAmount. A pending earning is refunded or shrunk by the refund ratio.
// A released earning is clawed back from the wallet; when the balance cannot
// cover it the debt is recorded as a deferred clawback instead.
func (s *escrowService) SettleRefund(ctx context.Context, tx *gorm.DB, payment *entity.Payment, refundAmount decimal.Decimal, now time.Time) (*RefundSettlement, error) {
	settlement := &RefundSettlement{
		EarningAmount:  decimal.Zero,
		ClawbackAmount: decimal.Zero,
	}
	if payment.UpcomingEarningID == nil {
		return settlement, nil
	}

	db := tx.WithContext(ctx)
	earning, err := s.earningRepo.FindByIDForUpdate(db, *payment.UpcomingEarningID)
	if err != nil {
		return nil, err
	}
	if earning == nil {
		return nil, ErrEarningNotFound
	}

	full := refundAmount.Equal(payment.Amount)

	switch earning.Status {
	case entity.EarningStatusPending:
		if full {
			earning.Status = entity.EarningStatusRefunded
			earning.RefundedAt = &now
		} else {
			ratio := refundAmount.Div(payment.Amount)
			earning.Amount = earning.Amount.Sub(earning.Amount.Mul(ratio))
		}
		if err := s.earningRepo.Update(db, earning); err != nil {
			return nil, err
		}

	case entity.EarningStatusReleased:
		wallet, err := s.Wallet(ctx, tx, earning.DoctorID, true)
		if err != nil {
			return nil, err
		}

		// The rate the earning was credited at, not the wallet's current one.
		clawback := entity.DoctorShare(refundAmount, earning.CommissionRate)
		settlement.ClawbackAmount = clawback
		settlement.ClawbackApplied = wallet.Clawback(clawback)

		record := &entity.Transaction{
			UserID:        earning.DoctorID,
			Type:          entity.TransactionTypeClawback,
			Amount:        clawback.Neg(),
			ReferenceID:   payment.ID.String(),
			ReferenceType: entity.ReferenceTypePayment,
			Status:        entity.TransactionStatusCompleted,
			Description:   fmt.Sprintf("Clawback for refund of payment %s", payment.ID),
		}
		if settlement.ClawbackApplied {
			if err := s.walletRepo.Update(db, wallet); err != nil {
				return nil, err
			}
		} else {
			record.Status = entity.TransactionStatusDeferred
			record.Description = fmt.Sprintf("Deferred clawback for refund of payment %s: balance %s below %s",
				payment.ID, wallet.CurrentBalance, clawback)
			s.log.Warnf("Insufficient balance for clawback: doctor=%s, payment=%s, owed=%s, balance=%s",
				earning.DoctorID, payment.ID, clawback, wallet.CurrentBalance)
		}
		if err := s.transactionRepo.Create(db, record); err != nil {
			return nil, err
		}
		settlement.ClawbackTxID = &record.ID

	case entity.EarningStatusRefunded:
		// Nothing left to reverse.
	default:
		return nil, errors.New("unknown earning status " + string(earning.Status))
	}

	settlement.EarningStatus = earning.Status
	settlement.EarningAmount = earning.Amount
	return settlement, nil
}
