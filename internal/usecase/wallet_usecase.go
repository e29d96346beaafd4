package usecase

import (
	"context"
	"fmt"

	"healthcare-booking-service/internal/converter"
	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/internal/domain/repository"
	"healthcare-booking-service/internal/service"
	"healthcare-booking-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrDoctorOnly              = apperror.New(apperror.ErrForbidden, "only doctors have wallets")
	ErrInsufficientBalance     = apperror.New(apperror.ErrInsufficientBalance, "insufficient wallet balance")
	ErrWithdrawalNotFound      = apperror.New(apperror.ErrNotFound, "withdrawal request not found")
	ErrWithdrawalNotPending    = apperror.New(apperror.ErrStateViolation, "withdrawal request is no longer pending")
	ErrInvalidWithdrawalAmount = apperror.New(apperror.ErrInvalidInput, "withdrawal amount must be positive")
)

type WalletUsecase interface {
	GetWallet(ctx context.Context, doctorID uuid.UUID) (*dto.WalletResponse, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, page, limit int) (*dto.TransactionListResponse, error)
	ListUpcomingEarnings(ctx context.Context, doctorID uuid.UUID, status string) (*dto.UpcomingEarningListResponse, error)
	// RequestWithdrawal records a pending withdrawal without touching the balance.
	RequestWithdrawal(ctx context.Context, req *dto.WithdrawalRequest) (*dto.TransactionResponse, error)
	// ProcessWithdrawal settles a pending request against the balance at settlement time.
	ProcessWithdrawal(ctx context.Context, requestID uuid.UUID) (*dto.ProcessWithdrawalResponse, error)
}

type walletUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	walletRepo      repository.WalletRepository
	transactionRepo repository.TransactionRepository
	earningRepo     repository.UpcomingEarningRepository
	escrow          service.EscrowService
	auditService    service.AuditService
	publisher       service.NotificationPublisher
	now             service.Clock
}

func NewWalletUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	earningRepo repository.UpcomingEarningRepository,
	escrow service.EscrowService,
	auditService service.AuditService,
	publisher service.NotificationPublisher,
	clock service.Clock,
) WalletUsecase {
	if clock == nil {
		clock = service.SystemClock
	}
	return &walletUsecase{
		db:              db,
		log:             log,
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		earningRepo:     earningRepo,
		escrow:          escrow,
		auditService:    auditService,
		publisher:       publisher,
		now:             clock,
	}
}

func (u *walletUsecase) GetWallet(ctx context.Context, doctorID uuid.UUID) (*dto.WalletResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.canActForDoctor(doctorID) {
		return nil, ErrNotOwner
	}

	wallet, err := u.escrow.Wallet(ctx, u.db, doctorID, false)
	if err != nil {
		u.log.Warnf("Failed to get wallet for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	return converter.WalletToResponse(wallet), nil
}

// ListTransactions pages through a user's ledger, newest first.
func (u *walletUsecase) ListTransactions(ctx context.Context, userID uuid.UUID, page, limit int) (*dto.TransactionListResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && caller.ID != userID {
		return nil, ErrNotOwner
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	transactions, total, err := u.transactionRepo.FindByUserID(u.db.WithContext(ctx), userID, limit, (page-1)*limit)
	if err != nil {
		u.log.Warnf("Failed to list transactions for %s: %+v", userID, err)
		return nil, err
	}

	return &dto.TransactionListResponse{
		Transactions: converter.TransactionsToResponses(transactions),
		Total:        total,
	}, nil
}

func (u *walletUsecase) ListUpcomingEarnings(ctx context.Context, doctorID uuid.UUID, status string) (*dto.UpcomingEarningListResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.canActForDoctor(doctorID) {
		return nil, ErrNotOwner
	}

	earningStatus := entity.EarningStatus(status)
	switch earningStatus {
	case "", entity.EarningStatusPending, entity.EarningStatusReleased, entity.EarningStatusRefunded:
	default:
		return nil, apperror.New(apperror.ErrInvalidInput, "unknown earning status "+status)
	}

	earnings, err := u.earningRepo.FindByDoctorID(u.db.WithContext(ctx), doctorID, earningStatus)
	if err != nil {
		u.log.Warnf("Failed to list upcoming earnings for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	return &dto.UpcomingEarningListResponse{
		Earnings: converter.UpcomingEarningsToResponses(earnings),
		Total:    len(earnings),
	}, nil
}

func (u *walletUsecase) RequestWithdrawal(ctx context.Context, req *dto.WithdrawalRequest) (*dto.TransactionResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.IsDoctor() {
		return nil, ErrDoctorOnly
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidWithdrawalAmount
	}

	var request *entity.Transaction
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := u.escrow.Wallet(ctx, tx, caller.ID, false)
		if err != nil {
			return err
		}
		// Checked again at settlement time, the balance may change in between.
		if wallet.CurrentBalance.LessThan(req.Amount) {
			return ErrInsufficientBalance
		}

		request = &entity.Transaction{
			UserID:        caller.ID,
			Type:          entity.TransactionTypeWithdrawalRequest,
			Amount:        req.Amount,
			ReferenceID:   wallet.ID.String(),
			ReferenceType: entity.ReferenceTypeWithdrawal,
			Status:        entity.TransactionStatusPending,
			Method:        req.Method,
			Description:   req.Note,
		}
		return u.transactionRepo.Create(tx, request)
	})
	if err != nil {
		if !apperror.IsClientError(err) {
			u.log.Warnf("Failed to request withdrawal for doctor %s: %+v", caller.ID, err)
		}
		return nil, err
	}

	u.log.Infof("Withdrawal requested: id=%s, doctor=%s, amount=%s", request.ID, caller.ID, request.Amount)
	return converter.TransactionToResponse(request), nil
}

func (u *walletUsecase) ProcessWithdrawal(ctx context.Context, requestID uuid.UUID) (*dto.ProcessWithdrawalResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		return nil, apperror.New(apperror.ErrForbidden, "only admins can process withdrawals")
	}

	var (
		request    *entity.Transaction
		withdrawal *entity.Transaction
		wallet     *entity.Wallet
		short      bool
	)
	now := u.now()
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := u.transactionRepo.FindByIDForUpdate(tx, requestID)
		if err != nil {
			return err
		}
		if locked == nil || locked.Type != entity.TransactionTypeWithdrawalRequest {
			return ErrWithdrawalNotFound
		}
		if locked.Status != entity.TransactionStatusPending {
			return ErrWithdrawalNotPending
		}
		request = locked

		wallet, err = u.escrow.Wallet(ctx, tx, request.UserID, true)
		if err != nil {
			return err
		}

		if !wallet.Withdraw(request.Amount, now) {
			// Only the request fails; the balance stays as it is.
			short = true
			request.Status = entity.TransactionStatusFailed
			_, err := u.transactionRepo.UpdateStatus(tx, request.ID, entity.TransactionStatusPending, entity.TransactionStatusFailed)
			return err
		}
		if err := u.walletRepo.Update(tx, wallet); err != nil {
			return err
		}

		if _, err := u.transactionRepo.UpdateStatus(tx, request.ID, entity.TransactionStatusPending, entity.TransactionStatusCompleted); err != nil {
			return err
		}
		request.Status = entity.TransactionStatusCompleted

		withdrawal = &entity.Transaction{
			UserID:        request.UserID,
			Type:          entity.TransactionTypeWithdrawal,
			Amount:        request.Amount.Neg(),
			ReferenceID:   request.ID.String(),
			ReferenceType: entity.ReferenceTypeWithdrawal,
			Status:        entity.TransactionStatusCompleted,
			Method:        request.Method,
			Description:   fmt.Sprintf("Withdrawal of %s", request.Amount),
		}
		if err := u.transactionRepo.Create(tx, withdrawal); err != nil {
			return err
		}

		return u.auditService.LogUpdate(ctx, tx, caller.idPtr(), entity.AuditActionWithdrawalProcess,
			"transaction", request.ID.String(),
			map[string]interface{}{"status": entity.TransactionStatusPending},
			map[string]interface{}{"status": request.Status, "withdrawal_id": withdrawal.ID, "balance": wallet.CurrentBalance})
	})
	if err != nil {
		if !apperror.IsClientError(err) {
			u.log.Warnf("Failed to process withdrawal %s: %+v", requestID, err)
		}
		return nil, err
	}

	publishEvent(ctx, u.publisher, u.log, now, service.EventWithdrawalProcessed, withdrawalEvent{
		TransactionID: request.ID,
		DoctorID:      request.UserID,
		Amount:        request.Amount,
		Status:        string(request.Status),
	})

	if short {
		u.log.Warnf("Withdrawal %s failed: doctor=%s, amount=%s, balance=%s",
			request.ID, request.UserID, request.Amount, wallet.CurrentBalance)
		return nil, ErrInsufficientBalance
	}

	u.log.Infof("Withdrawal processed: id=%s, doctor=%s, amount=%s", request.ID, request.UserID, request.Amount)
	return &dto.ProcessWithdrawalResponse{
		Request:    *converter.TransactionToResponse(request),
		Withdrawal: *converter.TransactionToResponse(withdrawal),
		Wallet:     *converter.WalletToResponse(wallet),
	}, nil
}
