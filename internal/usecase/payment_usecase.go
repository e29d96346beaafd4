package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthcare-booking-service/config"
	"healthcare-booking-service/internal/converter"
	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/internal/domain/repository"
	"healthcare-booking-service/internal/service"
	"healthcare-booking-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound          = apperror.New(apperror.ErrNotFound, "payment not found")
	ErrPaymentExists            = apperror.New(apperror.ErrConflict, "appointment already has an active payment")
	ErrInvalidPaymentTransition = apperror.New(apperror.ErrStateViolation, "invalid payment status transition")
	ErrPaymentNotCaptured       = apperror.New(apperror.ErrStateViolation, "payment is not captured")
	ErrRefundExceedsAmount      = apperror.New(apperror.ErrStateViolation, "refund amount exceeds payment amount")
	ErrGatewayRefundFailed      = apperror.New(apperror.ErrExternalFailure, "payment gateway refund failed")
	ErrGatewayOnly              = apperror.New(apperror.ErrForbidden, "only the payment gateway can authorize or capture payments")
	ErrPaymentAmountMismatch    = apperror.New(apperror.ErrInvalidInput, "payment amount must equal the consultation fee")
)

const releaseBatchSize = 100

// PaymentUsecase is the per-appointment payment ledger.
type PaymentUsecase interface {
	CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.PaymentResponse, error)
	AuthorizePayment(ctx context.Context, paymentID uuid.UUID, req *dto.GatewayEventRequest) (*dto.PaymentResponse, error)
	CapturePayment(ctx context.Context, paymentID uuid.UUID, req *dto.GatewayEventRequest) (*dto.PaymentResponse, error)
	FailPayment(ctx context.Context, paymentID uuid.UUID, req *dto.FailPaymentRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*dto.PaymentResponse, error)
	// ProcessPayment releases the escrowed earning of a captured payment into the doctor's wallet.
	ProcessPayment(ctx context.Context, paymentID uuid.UUID) (*dto.ProcessPaymentResponse, error)
	ProcessRefund(ctx context.Context, paymentID uuid.UUID, req *dto.RefundPaymentRequest) (*dto.RefundResponse, error)
	// AutoRefund fully refunds a payment on behalf of the cancellation path.
	AutoRefund(ctx context.Context, paymentID uuid.UUID, reason string) (*dto.RefundResponse, error)
	// ReleaseDueEarnings releases pending earnings that are due and whose appointment is completed.
	ReleaseDueEarnings(ctx context.Context) (int, error)
	// RetryCancelledRefunds refunds captured payments left behind by a cancellation
	// whose automatic refund did not go through.
	RetryCancelledRefunds(ctx context.Context) (int, error)
	// FailOpenPayments fails every pending or authorized payment of the appointment
	// inside the caller's transaction, together with their patient transactions.
	FailOpenPayments(ctx context.Context, tx *gorm.DB, appointmentID uuid.UUID, reason string) (int, error)
}

type paymentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	paymentRepo     repository.PaymentRepository
	appointmentRepo repository.AppointmentRepository
	earningRepo     repository.UpcomingEarningRepository
	transactionRepo repository.TransactionRepository
	escrow          service.EscrowService
	gateway         service.PaymentGateway
	auditService    service.AuditService
	publisher       service.NotificationPublisher
	cfg             config.EscrowConfig
	loc             *time.Location
	now             service.Clock
}

func NewPaymentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	paymentRepo repository.PaymentRepository,
	appointmentRepo repository.AppointmentRepository,
	earningRepo repository.UpcomingEarningRepository,
	transactionRepo repository.TransactionRepository,
	escrow service.EscrowService,
	gateway service.PaymentGateway,
	auditService service.AuditService,
	publisher service.NotificationPublisher,
	cfg config.EscrowConfig,
	loc *time.Location,
	clock service.Clock,
) PaymentUsecase {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = service.SystemClock
	}
	return &paymentUsecase{
		db:              db,
		log:             log,
		paymentRepo:     paymentRepo,
		appointmentRepo: appointmentRepo,
		earningRepo:     earningRepo,
		transactionRepo: transactionRepo,
		escrow:          escrow,
		gateway:         gateway,
		auditService:    auditService,
		publisher:       publisher,
		cfg:             cfg,
		loc:             loc,
		now:             clock,
	}
}

// CreatePayment writes the payment and the patient's payment transaction in
// one unit. A payment created already captured goes straight into escrow.
// Only admins, acting for the gateway, may create a payment past pending or
// with an amount other than the consultation fee.
func (u *paymentUsecase) CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.PaymentResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	status := entity.PaymentStatusPending
	if req.Status != "" {
		status = entity.PaymentStatus(req.Status)
	}
	switch status {
	case entity.PaymentStatusPending, entity.PaymentStatusAuthorized, entity.PaymentStatusCaptured:
	default:
		return nil, apperror.New(apperror.ErrInvalidInput, "payment can only be created pending, authorized or captured")
	}
	if status != entity.PaymentStatusPending && !caller.IsAdmin() {
		return nil, ErrGatewayOnly
	}

	var payment *entity.Payment
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appointment, err := u.appointmentRepo.FindByIDForUpdate(tx, req.AppointmentID)
		if err != nil {
			return err
		}
		if appointment == nil {
			return ErrAppointmentNotFound
		}
		if !caller.IsAdmin() && appointment.PatientID != caller.ID {
			return ErrNotOwner
		}
		if appointment.Status.IsTerminal() {
			return ErrAppointmentClosed
		}

		amount := req.Amount
		if amount.IsZero() {
			amount = appointment.ConsultationFee
		}
		if !amount.IsPositive() {
			return apperror.New(apperror.ErrInvalidInput, "payment amount must be positive")
		}
		if !caller.IsAdmin() && !amount.Equal(appointment.ConsultationFee) {
			return ErrPaymentAmountMismatch
		}

		active, err := u.paymentRepo.CountByAppointmentAndStatus(tx, appointment.ID,
			entity.PaymentStatusPending, entity.PaymentStatusAuthorized, entity.PaymentStatusCaptured)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrPaymentExists
		}

		payment = &entity.Payment{
			ID:               uuid.New(),
			AppointmentID:    appointment.ID,
			DoctorID:         appointment.DoctorID,
			PatientID:        appointment.PatientID,
			Amount:           amount,
			Method:           req.Method,
			Status:           status,
			GatewayReference: req.GatewayReference,
		}
		if err := u.paymentRepo.Create(tx, payment); err != nil {
			return err
		}
		// The earning references the payment row, so it is held after the insert.
		if status == entity.PaymentStatusCaptured {
			if err := u.hold(ctx, tx, payment, appointment); err != nil {
				return err
			}
			if err := u.paymentRepo.Update(tx, payment); err != nil {
				return err
			}
		}

		return u.transactionRepo.Create(tx, &entity.Transaction{
			UserID:        payment.PatientID,
			Type:          entity.TransactionTypePayment,
			Amount:        payment.Amount,
			ReferenceID:   payment.ID.String(),
			ReferenceType: entity.ReferenceTypePayment,
			Status:        entity.TransactionStatusPending,
			Method:        payment.Method,
			Description:   fmt.Sprintf("Payment for appointment %s", appointment.ID),
		})
	})
	if err != nil {
		if !apperror.IsClientError(err) {
			u.log.Warnf("Failed to create payment for appointment %s: %+v", req.AppointmentID, err)
		}
		return nil, err
	}

	u.log.Infof("Payment created: id=%s, appointment=%s, amount=%s, status=%s",
		payment.ID, payment.AppointmentID, payment.Amount, payment.Status)
	return converter.PaymentToResponse(payment), nil
}

// hold escrows the doctor's share of a payment being captured and confirms the
// appointment if it is still pending. The caller persists the payment.
func (u *paymentUsecase) hold(ctx context.Context, tx *gorm.DB, payment *entity.Payment, appointment *entity.Appointment) error {
	startsAt, err := appointment.StartsAt(u.loc)
	if err != nil {
		return err
	}

	now := u.now()
	payment.Status = entity.PaymentStatusCaptured
	payment.CapturedAt = &now

	if _, err := u.escrow.Hold(ctx, tx, payment, startsAt.Add(u.cfg.HoldPeriod)); err != nil {
		return err
	}
	_, err = u.appointmentRepo.ConfirmPending(tx, appointment.ID)
	return err
}

func (u *paymentUsecase) AuthorizePayment(ctx context.Context, paymentID uuid.UUID, req *dto.GatewayEventRequest) (*dto.PaymentResponse, error) {
	if err := requireGateway(ctx); err != nil {
		return nil, err
	}
	return u.transition(ctx, paymentID, entity.PaymentStatusAuthorized, func(tx *gorm.DB, payment *entity.Payment) error {
		if req.GatewayReference != "" {
			payment.GatewayReference = req.GatewayReference
		}
		return nil
	})
}

// CapturePayment captures the payment and creates its escrowed earning. An
// appointment removed by the cleanup sweep can no longer be captured.
func (u *paymentUsecase) CapturePayment(ctx context.Context, paymentID uuid.UUID, req *dto.GatewayEventRequest) (*dto.PaymentResponse, error) {
	if err := requireGateway(ctx); err != nil {
		return nil, err
	}
	return u.transition(ctx, paymentID, entity.PaymentStatusCaptured, func(tx *gorm.DB, payment *entity.Payment) error {
		appointment, err := u.appointmentRepo.FindByIDForUpdate(tx, payment.AppointmentID)
		if err != nil {
			return err
		}
		if appointment == nil {
			return ErrAppointmentExpired
		}
		if appointment.Status.IsTerminal() {
			return ErrAppointmentClosed
		}

		if req.GatewayReference != "" {
			payment.GatewayReference = req.GatewayReference
		}
		return u.hold(ctx, tx, payment, appointment)
	})
}

func (u *paymentUsecase) FailPayment(ctx context.Context, paymentID uuid.UUID, req *dto.FailPaymentRequest) (*dto.PaymentResponse, error) {
	return u.transition(ctx, paymentID, entity.PaymentStatusFailed, func(tx *gorm.DB, payment *entity.Payment) error {
		payment.FailureReason = req.Reason
		return u.settlePatientTransaction(tx, payment.ID, entity.TransactionStatusFailed)
	})
}

func (u *paymentUsecase) FailOpenPayments(ctx context.Context, tx *gorm.DB, appointmentID uuid.UUID, reason string) (int, error) {
	payments, err := u.paymentRepo.FindByAppointmentID(tx, appointmentID)
	if err != nil {
		return 0, err
	}

	failed := 0
	for i := range payments {
		payment := &payments[i]
		if payment.Status != entity.PaymentStatusPending && payment.Status != entity.PaymentStatusAuthorized {
			continue
		}
		payment.Status = entity.PaymentStatusFailed
		payment.FailureReason = reason
		if err := u.paymentRepo.Update(tx, payment); err != nil {
			return failed, err
		}
		if err := u.settlePatientTransaction(tx, payment.ID, entity.TransactionStatusFailed); err != nil {
			return failed, err
		}
		failed++
	}
	return failed, nil
}

// requireGateway admits the admin callers that relay gateway events.
func requireGateway(ctx context.Context) error {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return ErrGatewayOnly
	}
	return nil
}

// transition applies a gateway-driven status change under a row lock.
func (u *paymentUsecase) transition(ctx context.Context, paymentID uuid.UUID, next entity.PaymentStatus, apply func(tx *gorm.DB, payment *entity.Payment) error) (*dto.PaymentResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var payment *entity.Payment
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := u.paymentRepo.FindByIDForUpdate(tx, paymentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPaymentNotFound
		}
		if !caller.IsAdmin() && locked.PatientID != caller.ID {
			return ErrNotOwner
		}
		if !locked.Status.CanTransitionTo(next) {
			return ErrInvalidPaymentTransition
		}

		locked.Status = next
		if err := apply(tx, locked); err != nil {
			return err
		}
		payment = locked
		return u.paymentRepo.Update(tx, locked)
	})
	if err != nil {
		if !apperror.IsClientError(err) {
			u.log.Warnf("Failed to move payment %s to %s: %+v", paymentID, next, err)
		}
		return nil, err
	}

	u.log.Infof("Payment %s: id=%s, appointment=%s", next, payment.ID, payment.AppointmentID)
	return converter.PaymentToResponse(payment), nil
}

func (u *paymentUsecase) GetPayment(ctx context.Context, paymentID uuid.UUID) (*dto.PaymentResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	payment, err := u.paymentRepo.FindByID(u.db.WithContext(ctx), paymentID)
	if err != nil {
		u.log.Warnf("Failed to find payment %s: %+v", paymentID, err)
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.PatientID != caller.ID && !caller.canActForDoctor(payment.DoctorID) {
		return nil, ErrNotOwner
	}

	return converter.PaymentToResponse(payment), nil
}

func (u *paymentUsecase) ProcessPayment(ctx context.Context, paymentID uuid.UUID) (*dto.ProcessPaymentResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		payment *entity.Payment
		earning *entity.UpcomingEarning
		wallet  *entity.Wallet
	)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := u.paymentRepo.FindByIDForUpdate(tx, paymentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPaymentNotFound
		}
		if !caller.canActForDoctor(locked.DoctorID) {
			return ErrNotOwner
		}
		if !locked.IsCaptured() {
			return ErrPaymentNotCaptured
		}
		if locked.UpcomingEarningID == nil {
			return service.ErrEarningNotFound
		}

		earning, wallet, err = u.escrow.Release(ctx, tx, *locked.UpcomingEarningID, u.now())
		if err != nil {
			return err
		}
		payment = locked
		return u.settlePatientTransaction(tx, locked.ID, entity.TransactionStatusCompleted)
	})
	if err != nil {
		if !apperror.IsClientError(err) {
			u.log.Warnf("Failed to process payment %s: %+v", paymentID, err)
		}
		return nil, err
	}

	u.log.Infof("Payment processed: id=%s, doctor=%s, doctor_share=%s", payment.ID, payment.DoctorID, earning.Amount)
	return &dto.ProcessPaymentResponse{
		Payment:        *converter.PaymentToResponse(payment),
		Earning:        *converter.UpcomingEarningToResponse(earning),
		DoctorShare:    earning.Amount,
		PlatformShare:  payment.Amount.Sub(earning.Amount),
		CommissionRate: earning.CommissionRate,
		Wallet:         *converter.WalletToResponse(wallet),
	}, nil
}

func (u *paymentUsecase) ProcessRefund(ctx context.Context, paymentID uuid.UUID, req *dto.RefundPaymentRequest) (*dto.RefundResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.New(apperror.ErrInvalidInput, "refund amount must be positive")
	}

	return u.refund(ctx, caller.idPtr(), paymentID, req.Amount, req.Reason, func(p *entity.Payment) error {
		if !caller.canActForDoctor(p.DoctorID) {
			return ErrNotOwner
		}
		return nil
	})
}

func (u *paymentUsecase) AutoRefund(ctx context.Context, paymentID uuid.UUID, reason string) (*dto.RefundResponse, error) {
	var initiatedBy *uuid.UUID
	if caller, err := actorFromContext(ctx); err == nil {
		initiatedBy = caller.idPtr()
	}
	return u.refund(ctx, initiatedBy, paymentID, decimal.Zero, reason, nil)
}

// refund calls the gateway first and only then records the refund locally, so a
// gateway failure leaves local state untouched. A zero amount refunds in full.
func (u *paymentUsecase) refund(ctx context.Context, initiatedBy *uuid.UUID, paymentID uuid.UUID, amount decimal.Decimal, reason string, authorize func(*entity.Payment) error) (*dto.RefundResponse, error) {
	payment, err := u.paymentRepo.FindByID(u.db.WithContext(ctx), paymentID)
	if err != nil {
		u.log.Warnf("Failed to find payment %s: %+v", paymentID, err)
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if authorize != nil {
		if err := authorize(payment); err != nil {
			return nil, err
		}
	}
	if amount.IsZero() {
		amount = payment.Amount
	}
	if !payment.IsCaptured() {
		return nil, ErrPaymentNotCaptured
	}
	if amount.GreaterThan(payment.Amount) {
		return nil, ErrRefundExceedsAmount
	}

	result, err := u.gateway.Refund(ctx, service.RefundRequest{
		PaymentID:        payment.ID.String(),
		GatewayReference: payment.GatewayReference,
		Amount:           amount,
		Reason:           reason,
	})
	if err != nil {
		u.log.Warnf("Gateway refund failed for payment %s: %+v", paymentID, err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayRefundFailed, err)
	}

	now := u.now()
	var settlement *service.RefundSettlement
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := u.paymentRepo.FindByIDForUpdate(tx, paymentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPaymentNotFound
		}
		if !locked.IsCaptured() {
			return ErrPaymentNotCaptured
		}

		previous := locked.Status
		locked.Status = entity.PaymentStatusPartiallyRefunded
		if amount.Equal(locked.Amount) {
			locked.Status = entity.PaymentStatusRefunded
		}
		locked.RefundAmount = amount
		locked.RefundReason = reason
		locked.RefundInitiatedBy = initiatedBy
		locked.RefundReference = result.Reference
		locked.RefundedAt = &now
		if err := u.paymentRepo.Update(tx, locked); err != nil {
			return err
		}
		payment = locked

		if err := u.transactionRepo.Create(tx, &entity.Transaction{
			UserID:        locked.PatientID,
			Type:          entity.TransactionTypeRefund,
			Amount:        amount,
			ReferenceID:   locked.ID.String(),
			ReferenceType: entity.ReferenceTypePayment,
			Status:        entity.TransactionStatusCompleted,
			Method:        locked.Method,
			Description:   fmt.Sprintf("Refund for appointment %s: %s", locked.AppointmentID, reason),
		}); err != nil {
			return err
		}

		settlement, err = u.escrow.SettleRefund(ctx, tx, locked, amount, now)
		if err != nil {
			return err
		}

		return u.auditService.LogUpdate(ctx, tx, initiatedBy, entity.AuditActionPaymentRefund,
			"payment", locked.ID.String(),
			map[string]interface{}{"status": previous},
			map[string]interface{}{"status": locked.Status, "refund_amount": amount, "reason": reason, "settlement": settlement})
	})
	if err != nil {
		// The gateway has refunded already; this is the acknowledged gap between gateway and local commit.
		u.log.Errorf("Refund of payment %s succeeded at gateway (ref=%s) but local commit failed: %+v",
			paymentID, result.Reference, err)
		return nil, err
	}

	publishEvent(ctx, u.publisher, u.log, now, service.EventPaymentRefunded, refundEvent{
		PaymentID:     payment.ID,
		AppointmentID: payment.AppointmentID,
		PatientID:     payment.PatientID,
		DoctorID:      payment.DoctorID,
		Amount:        amount,
		Status:        string(payment.Status),
		Reason:        reason,
	})

	u.log.Infof("Payment refunded: id=%s, amount=%s, status=%s, clawback=%s",
		payment.ID, amount, payment.Status, settlement.ClawbackAmount)
	return &dto.RefundResponse{
		Payment:    *converter.PaymentToResponse(payment),
		Settlement: converter.RefundSettlementToResponse(settlement),
	}, nil
}

func (u *paymentUsecase) ReleaseDueEarnings(ctx context.Context) (int, error) {
	now := u.now()
	earnings, err := u.earningRepo.FindReleasable(u.db.WithContext(ctx), now, releaseBatchSize)
	if err != nil {
		u.log.Warnf("Failed to find releasable earnings: %+v", err)
		return 0, err
	}

	released := 0
	for _, earning := range earnings {
		err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, _, err := u.escrow.Release(ctx, tx, earning.ID, now); err != nil {
				return err
			}
			return u.settlePatientTransaction(tx, earning.PaymentID, entity.TransactionStatusCompleted)
		})
		if err != nil {
			if !errors.Is(err, service.ErrEarningNotPending) {
				u.log.Warnf("Failed to release earning %s: %+v", earning.ID, err)
			}
			continue
		}
		released++
	}

	if released > 0 {
		u.log.Infof("Released %d escrowed earnings", released)
	}
	return released, nil
}

func (u *paymentUsecase) RetryCancelledRefunds(ctx context.Context) (int, error) {
	payments, err := u.paymentRepo.FindCapturedOfCancelled(u.db.WithContext(ctx), releaseBatchSize)
	if err != nil {
		u.log.Warnf("Failed to find unrefunded payments of cancelled appointments: %+v", err)
		return 0, err
	}

	refunded := 0
	for _, payment := range payments {
		if _, err := u.AutoRefund(ctx, payment.ID, "appointment cancelled"); err != nil {
			u.log.Warnf("Refund retry failed for payment %s: %+v", payment.ID, err)
			continue
		}
		refunded++
	}

	if refunded > 0 {
		u.log.Infof("Refunded %d payments of cancelled appointments", refunded)
	}
	return refunded, nil
}

// settlePatientTransaction moves the patient's pending payment transaction to status.
func (u *paymentUsecase) settlePatientTransaction(tx *gorm.DB, paymentID uuid.UUID, status entity.TransactionStatus) error {
	record, err := u.transactionRepo.FindByReference(tx, entity.ReferenceTypePayment, paymentID.String(), entity.TransactionTypePayment)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}
	_, err = u.transactionRepo.UpdateStatus(tx, record.ID, entity.TransactionStatusPending, status)
	return err
}
