package usecase_test

import (
	"testing"
	"time"

	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/internal/service"
	"healthcare-booking-service/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturePayment_HoldsDoctorShare(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	appointment, payment := f.capturedPayment(t, "09:00")

	assert.Equal(t, string(entity.PaymentStatusCaptured), payment.Status)
	require.NotNil(t, payment.UpcomingEarningID)
	require.NotNil(t, payment.CapturedAt)

	got, err := f.appointments.GetAppointment(f.asPatient(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusConfirmed), got.Status)

	earnings, err := f.wallets.ListUpcomingEarnings(f.asDoctor(), f.doctorID, string(entity.EarningStatusPending))
	require.NoError(t, err)
	require.Len(t, earnings.Earnings, 1)
	requireDecimal(t, 80, earnings.Earnings[0].Amount)
	requireDecimal(t, 20, earnings.Earnings[0].CommissionRate)
	assert.True(t, earnings.Earnings[0].ScheduledDate.Equal(time.Date(2030, 1, 8, 9, 0, 0, 0, time.UTC)))

	// Nothing reaches the wallet while the share sits in escrow.
	wallet, err := f.wallets.GetWallet(f.asDoctor(), f.doctorID)
	require.NoError(t, err)
	requireDecimal(t, 0, wallet.CurrentBalance)
}

func TestCreatePayment_Rules(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	appointment := f.book(t, slotDate, "09:00")

	payment, err := f.payments.CreatePayment(f.asPatient(), &dto.CreatePaymentRequest{AppointmentID: appointment.ID, Method: "card"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.PaymentStatusPending), payment.Status)
	requireDecimal(t, 100, payment.Amount)

	_, err = f.payments.CreatePayment(f.asPatient(), &dto.CreatePaymentRequest{AppointmentID: appointment.ID, Method: "card"})
	assert.ErrorIs(t, err, usecase.ErrPaymentExists)

	_, err = f.payments.FailPayment(f.asPatient(), payment.ID, &dto.FailPaymentRequest{Reason: "card declined"})
	require.NoError(t, err)

	// A failed attempt frees the appointment for a new payment, reported captured by the gateway this time.
	f.clock.Advance(time.Minute)
	captured, err := f.payments.CreatePayment(f.asAdmin(), &dto.CreatePaymentRequest{
		AppointmentID: appointment.ID,
		Method:        "card",
		Status:        string(entity.PaymentStatusCaptured),
	})
	require.NoError(t, err)
	require.NotNil(t, captured.UpcomingEarningID)

	var patientTx []entity.Transaction
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", f.patientID, entity.TransactionTypePayment).
		Order("created_at").Find(&patientTx).Error)
	require.Len(t, patientTx, 2)
	assert.Equal(t, entity.TransactionStatusFailed, patientTx[0].Status)
	assert.Equal(t, entity.TransactionStatusPending, patientTx[1].Status)

	_, err = f.payments.CreatePayment(f.asDoctor(), &dto.CreatePaymentRequest{AppointmentID: appointment.ID, Method: "card"})
	assert.ErrorIs(t, err, usecase.ErrNotOwner)
}

func TestPayment_PatientCannotSelfCapture(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	appointment := f.book(t, slotDate, "09:00")

	_, err := f.payments.CreatePayment(f.asPatient(), &dto.CreatePaymentRequest{
		AppointmentID: appointment.ID,
		Method:        "card",
		Amount:        decimal.NewFromInt(10000),
		Status:        string(entity.PaymentStatusCaptured),
	})
	assert.ErrorIs(t, err, usecase.ErrGatewayOnly)

	_, err = f.payments.CreatePayment(f.asPatient(), &dto.CreatePaymentRequest{
		AppointmentID: appointment.ID,
		Method:        "card",
		Amount:        decimal.NewFromInt(10000),
	})
	assert.ErrorIs(t, err, usecase.ErrPaymentAmountMismatch)

	payment, err := f.payments.CreatePayment(f.asPatient(), &dto.CreatePaymentRequest{AppointmentID: appointment.ID, Method: "card"})
	require.NoError(t, err)

	_, err = f.payments.AuthorizePayment(f.asPatient(), payment.ID, &dto.GatewayEventRequest{})
	assert.ErrorIs(t, err, usecase.ErrGatewayOnly)
	_, err = f.payments.CapturePayment(f.asPatient(), payment.ID, &dto.GatewayEventRequest{})
	assert.ErrorIs(t, err, usecase.ErrGatewayOnly)

	// Nothing was escrowed and the booking is still unpaid.
	got, err := f.appointments.GetAppointment(f.asPatient(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusPending), got.Status)

	var earnings int64
	require.NoError(t, f.db.Model(&entity.UpcomingEarning{}).Count(&earnings).Error)
	assert.Zero(t, earnings)
}

func TestPaymentTransitions(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	appointment := f.book(t, slotDate, "09:00")

	payment, err := f.payments.CreatePayment(f.asPatient(), &dto.CreatePaymentRequest{AppointmentID: appointment.ID, Method: "card"})
	require.NoError(t, err)

	authorized, err := f.payments.AuthorizePayment(f.asAdmin(), payment.ID, &dto.GatewayEventRequest{GatewayReference: "auth-1"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.PaymentStatusAuthorized), authorized.Status)
	assert.Equal(t, "auth-1", authorized.GatewayReference)

	_, err = f.payments.CapturePayment(f.asAdmin(), payment.ID, &dto.GatewayEventRequest{})
	require.NoError(t, err)

	_, err = f.payments.AuthorizePayment(f.asAdmin(), payment.ID, &dto.GatewayEventRequest{})
	assert.ErrorIs(t, err, usecase.ErrInvalidPaymentTransition)
	_, err = f.payments.FailPayment(f.asPatient(), payment.ID, &dto.FailPaymentRequest{Reason: "late"})
	assert.ErrorIs(t, err, usecase.ErrInvalidPaymentTransition)
}

func TestProcessPayment_CreditsWallet(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	_, payment := f.capturedPayment(t, "09:00")

	processed, err := f.payments.ProcessPayment(f.asDoctor(), payment.ID)
	require.NoError(t, err)
	requireDecimal(t, 80, processed.DoctorShare)
	requireDecimal(t, 20, processed.PlatformShare)
	requireDecimal(t, 80, processed.Wallet.CurrentBalance)
	requireDecimal(t, 80, processed.Wallet.TotalEarned)
	assert.Equal(t, string(entity.EarningStatusReleased), processed.Earning.Status)

	_, err = f.payments.ProcessPayment(f.asDoctor(), payment.ID)
	assert.ErrorIs(t, err, service.ErrEarningNotPending)

	_, err = f.payments.ProcessPayment(f.asPatient(), payment.ID)
	assert.ErrorIs(t, err, usecase.ErrNotOwner)

	record, err := f.wallets.ListTransactions(f.asPatient(), f.patientID, 1, 10)
	require.NoError(t, err)
	require.Len(t, record.Transactions, 1)
	assert.Equal(t, string(entity.TransactionStatusCompleted), record.Transactions[0].Status)
}

func TestProcessRefund_FullAfterRelease(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	_, payment := f.capturedPayment(t, "09:00")

	_, err := f.payments.ProcessPayment(f.asDoctor(), payment.ID)
	require.NoError(t, err)

	refund, err := f.payments.ProcessRefund(f.asDoctor(), payment.ID, &dto.RefundPaymentRequest{
		Amount: decimal.NewFromInt(100),
		Reason: "doctor unavailable",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.PaymentStatusRefunded), refund.Payment.Status)
	assert.True(t, refund.Settlement.ClawbackApplied)
	requireDecimal(t, 80, refund.Settlement.ClawbackAmount)

	wallet, err := f.wallets.GetWallet(f.asDoctor(), f.doctorID)
	require.NoError(t, err)
	requireDecimal(t, 0, wallet.CurrentBalance)
	requireDecimal(t, 0, wallet.TotalEarned)

	assert.Contains(t, f.publisher.Types(), service.EventPaymentRefunded)
	require.Len(t, f.gateway.requests, 1)
	assert.Equal(t, "gw-1", f.gateway.requests[0].GatewayReference)
}

func TestProcessRefund_ClawbackUsesCreditedRate(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	_, payment := f.capturedPayment(t, "09:00")

	_, err := f.payments.ProcessPayment(f.asDoctor(), payment.ID)
	require.NoError(t, err)

	// The platform renegotiates the doctor's rate after the earning was credited.
	require.NoError(t, f.db.Model(&entity.Wallet{}).Where("doctor_id = ?", f.doctorID).
		Update("commission_rate", decimal.NewFromInt(50)).Error)

	refund, err := f.payments.ProcessRefund(f.asAdmin(), payment.ID, &dto.RefundPaymentRequest{
		Amount: decimal.NewFromInt(100),
		Reason: "doctor unavailable",
	})
	require.NoError(t, err)
	requireDecimal(t, 80, refund.Settlement.ClawbackAmount)

	wallet, err := f.wallets.GetWallet(f.asDoctor(), f.doctorID)
	require.NoError(t, err)
	requireDecimal(t, 0, wallet.CurrentBalance)
	requireDecimal(t, 0, wallet.TotalEarned)
}

func TestProcessRefund_PartialBeforeRelease(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	_, payment := f.capturedPayment(t, "09:00")

	refund, err := f.payments.ProcessRefund(f.asAdmin(), payment.ID, &dto.RefundPaymentRequest{
		Amount: decimal.NewFromInt(50),
		Reason: "shortened consultation",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.PaymentStatusPartiallyRefunded), refund.Payment.Status)
	assert.Equal(t, string(entity.EarningStatusPending), refund.Settlement.EarningStatus)
	requireDecimal(t, 40, refund.Settlement.EarningAmount)
	require.NotNil(t, refund.Payment.Refund)
	requireDecimal(t, 50, refund.Payment.Refund.Amount)
	assert.Equal(t, f.adminID, *refund.Payment.Refund.InitiatedBy)

	// A partially refunded payment is no longer captured.
	_, err = f.payments.ProcessRefund(f.asAdmin(), payment.ID, &dto.RefundPaymentRequest{
		Amount: decimal.NewFromInt(10),
		Reason: "again",
	})
	assert.ErrorIs(t, err, usecase.ErrPaymentNotCaptured)
}

func TestProcessRefund_Rejections(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	_, payment := f.capturedPayment(t, "09:00")

	_, err := f.payments.ProcessRefund(f.asDoctor(), payment.ID, &dto.RefundPaymentRequest{
		Amount: decimal.NewFromInt(150),
		Reason: "too much",
	})
	assert.ErrorIs(t, err, usecase.ErrRefundExceedsAmount)

	_, err = f.payments.ProcessRefund(f.asPatient(), payment.ID, &dto.RefundPaymentRequest{
		Amount: decimal.NewFromInt(10),
		Reason: "self service",
	})
	assert.ErrorIs(t, err, usecase.ErrNotOwner)

	f.gateway.fail = true
	_, err = f.payments.ProcessRefund(f.asDoctor(), payment.ID, &dto.RefundPaymentRequest{
		Amount: decimal.NewFromInt(10),
		Reason: "gateway down",
	})
	assert.ErrorIs(t, err, usecase.ErrGatewayRefundFailed)

	unchanged, err := f.payments.GetPayment(f.asPatient(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.PaymentStatusCaptured), unchanged.Status)
	assert.Nil(t, unchanged.Refund)
}

func TestProcessRefund_DefersClawbackWhenBalanceIsShort(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	_, payment := f.capturedPayment(t, "09:00")

	_, err := f.payments.ProcessPayment(f.asDoctor(), payment.ID)
	require.NoError(t, err)

	request, err := f.wallets.RequestWithdrawal(f.asDoctor(), &dto.WithdrawalRequest{Amount: decimal.NewFromInt(80), Method: "bank_transfer"})
	require.NoError(t, err)
	_, err = f.wallets.ProcessWithdrawal(f.asAdmin(), request.ID)
	require.NoError(t, err)

	refund, err := f.payments.ProcessRefund(f.asDoctor(), payment.ID, &dto.RefundPaymentRequest{
		Amount: decimal.NewFromInt(100),
		Reason: "complaint",
	})
	require.NoError(t, err)
	assert.False(t, refund.Settlement.ClawbackApplied)
	requireDecimal(t, 80, refund.Settlement.ClawbackAmount)
	require.NotNil(t, refund.Settlement.ClawbackTxID)

	var deferred entity.Transaction
	require.NoError(t, f.db.Where("id = ?", *refund.Settlement.ClawbackTxID).First(&deferred).Error)
	assert.Equal(t, entity.TransactionStatusDeferred, deferred.Status)
	assert.Equal(t, entity.TransactionTypeClawback, deferred.Type)

	wallet, err := f.wallets.GetWallet(f.asDoctor(), f.doctorID)
	require.NoError(t, err)
	requireDecimal(t, 0, wallet.CurrentBalance)
}

func TestReleaseDueEarnings(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	appointment, _ := f.capturedPayment(t, "09:00")

	// Not due yet and not completed.
	released, err := f.payments.ReleaseDueEarnings(f.asAdmin())
	require.NoError(t, err)
	assert.Zero(t, released)

	f.clock.Set(time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC))
	_, err = f.appointments.UpdateStatus(f.asDoctor(), appointment.ID, &dto.UpdateAppointmentStatusRequest{Status: "completed"})
	require.NoError(t, err)

	// Completed but still inside the hold period.
	released, err = f.payments.ReleaseDueEarnings(f.asAdmin())
	require.NoError(t, err)
	assert.Zero(t, released)

	f.clock.Set(time.Date(2030, 1, 8, 9, 30, 0, 0, time.UTC))
	released, err = f.payments.ReleaseDueEarnings(f.asAdmin())
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	wallet, err := f.wallets.GetWallet(f.asDoctor(), f.doctorID)
	require.NoError(t, err)
	requireDecimal(t, 80, wallet.CurrentBalance)

	released, err = f.payments.ReleaseDueEarnings(f.asAdmin())
	require.NoError(t, err)
	assert.Zero(t, released)
}
