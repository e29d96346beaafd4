package usecase_test

import (
	"testing"

	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/internal/usecase"
	"healthcare-booking-service/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fundedWallet leaves 80 in the doctor's wallet.
func (f *fixture) fundedWallet(t *testing.T) {
	t.Helper()
	f.withMondayMorning(t)
	_, payment := f.capturedPayment(t, "09:00")
	_, err := f.payments.ProcessPayment(f.asDoctor(), payment.ID)
	require.NoError(t, err)
}

func TestGetWallet_CreatedOnFirstAccess(t *testing.T) {
	f := newFixture(t)

	wallet, err := f.wallets.GetWallet(f.asDoctor(), f.doctorID)
	require.NoError(t, err)
	requireDecimal(t, 0, wallet.CurrentBalance)
	requireDecimal(t, 20, wallet.CommissionRate)

	_, err = f.wallets.GetWallet(f.asPatient(), f.doctorID)
	assert.ErrorIs(t, err, usecase.ErrNotOwner)
}

func TestWithdrawal_Success(t *testing.T) {
	f := newFixture(t)
	f.fundedWallet(t)

	request, err := f.wallets.RequestWithdrawal(f.asDoctor(), &dto.WithdrawalRequest{
		Amount: decimal.NewFromInt(30),
		Method: "bank_transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.TransactionStatusPending), request.Status)

	// The request alone does not touch the balance.
	wallet, err := f.wallets.GetWallet(f.asDoctor(), f.doctorID)
	require.NoError(t, err)
	requireDecimal(t, 80, wallet.CurrentBalance)

	_, err = f.wallets.ProcessWithdrawal(f.asDoctor(), request.ID)
	assert.True(t, apperror.IsClientError(err))

	processed, err := f.wallets.ProcessWithdrawal(f.asAdmin(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.TransactionStatusCompleted), processed.Request.Status)
	requireDecimal(t, -30, processed.Withdrawal.Amount)
	requireDecimal(t, 50, processed.Wallet.CurrentBalance)
	requireDecimal(t, 30, processed.Wallet.TotalWithdrawn)
	assert.NotNil(t, processed.Wallet.LastWithdrawalAt)

	_, err = f.wallets.ProcessWithdrawal(f.asAdmin(), request.ID)
	assert.ErrorIs(t, err, usecase.ErrWithdrawalNotPending)

	ledger, err := f.wallets.ListTransactions(f.asDoctor(), f.doctorID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, ledger.Total)
}

func TestWithdrawal_InsufficientBalanceAtSettlement(t *testing.T) {
	f := newFixture(t)
	f.fundedWallet(t)

	_, err := f.wallets.RequestWithdrawal(f.asDoctor(), &dto.WithdrawalRequest{Amount: decimal.NewFromInt(100), Method: "bank_transfer"})
	assert.ErrorIs(t, err, usecase.ErrInsufficientBalance)

	first, err := f.wallets.RequestWithdrawal(f.asDoctor(), &dto.WithdrawalRequest{Amount: decimal.NewFromInt(60), Method: "bank_transfer"})
	require.NoError(t, err)
	second, err := f.wallets.RequestWithdrawal(f.asDoctor(), &dto.WithdrawalRequest{Amount: decimal.NewFromInt(60), Method: "bank_transfer"})
	require.NoError(t, err)

	_, err = f.wallets.ProcessWithdrawal(f.asAdmin(), first.ID)
	require.NoError(t, err)

	_, err = f.wallets.ProcessWithdrawal(f.asAdmin(), second.ID)
	assert.ErrorIs(t, err, usecase.ErrInsufficientBalance)

	var failed entity.Transaction
	require.NoError(t, f.db.Where("id = ?", second.ID).First(&failed).Error)
	assert.Equal(t, entity.TransactionStatusFailed, failed.Status)

	wallet, err := f.wallets.GetWallet(f.asDoctor(), f.doctorID)
	require.NoError(t, err)
	requireDecimal(t, 20, wallet.CurrentBalance)
}

func TestRequestWithdrawal_Rejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.wallets.RequestWithdrawal(f.asPatient(), &dto.WithdrawalRequest{Amount: decimal.NewFromInt(10), Method: "bank_transfer"})
	assert.ErrorIs(t, err, usecase.ErrDoctorOnly)

	_, err = f.wallets.RequestWithdrawal(f.asDoctor(), &dto.WithdrawalRequest{Amount: decimal.Zero, Method: "bank_transfer"})
	assert.ErrorIs(t, err, usecase.ErrInvalidWithdrawalAmount)
}

func TestListTransactions_OwnerOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.wallets.ListTransactions(f.asPatient(), f.doctorID, 1, 10)
	assert.ErrorIs(t, err, usecase.ErrNotOwner)

	_, err = f.wallets.ListTransactions(f.asAdmin(), f.doctorID, 1, 10)
	assert.NoError(t, err)
}

func TestAuditLogs(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)
	f.book(t, slotDate, "09:00")

	_, err := f.auditLogs.ListAuditLogs(f.asPatient(), "", 1, 10)
	assert.ErrorIs(t, err, usecase.ErrAdminOnly)

	all, err := f.auditLogs.ListAuditLogs(f.asAdmin(), "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	bookings, err := f.auditLogs.ListAuditLogs(f.asAdmin(), entity.AuditActionAppointmentCreate, 1, 10)
	require.NoError(t, err)
	require.Len(t, bookings.Logs, 1)

	entry, err := f.auditLogs.GetAuditLog(f.asAdmin(), bookings.Logs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.AuditActionAppointmentCreate, entry.Action)

	_, err = f.auditLogs.GetAuditLog(f.asAdmin(), 9999)
	assert.ErrorIs(t, err, usecase.ErrAuditLogNotFound)
}
