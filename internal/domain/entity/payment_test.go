package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPaymentTransitions(t *testing.T) {
	allowed := [][2]PaymentStatus{
		{PaymentStatusPending, PaymentStatusAuthorized},
		{PaymentStatusPending, PaymentStatusCaptured},
		{PaymentStatusPending, PaymentStatusFailed},
		{PaymentStatusAuthorized, PaymentStatusCaptured},
		{PaymentStatusAuthorized, PaymentStatusFailed},
		{PaymentStatusCaptured, PaymentStatusRefunded},
		{PaymentStatusCaptured, PaymentStatusPartiallyRefunded},
	}
	for _, tr := range allowed {
		assert.True(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]PaymentStatus{
		{PaymentStatusCaptured, PaymentStatusFailed},
		{PaymentStatusRefunded, PaymentStatusCaptured},
		{PaymentStatusFailed, PaymentStatusCaptured},
		{PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
		{PaymentStatusPending, PaymentStatusRefunded},
	}
	for _, tr := range denied {
		assert.False(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestAppointmentTransitions(t *testing.T) {
	assert.True(t, AppointmentStatusPending.CanTransitionTo(AppointmentStatusConfirmed))
	assert.True(t, AppointmentStatusPending.CanTransitionTo(AppointmentStatusCancelled))
	assert.True(t, AppointmentStatusConfirmed.CanTransitionTo(AppointmentStatusCompleted))
	assert.True(t, AppointmentStatusRescheduled.CanTransitionTo(AppointmentStatusNoShow))
	assert.False(t, AppointmentStatusCancelled.CanTransitionTo(AppointmentStatusConfirmed))
	assert.False(t, AppointmentStatusConfirmed.CanTransitionTo(AppointmentStatusPending))
	assert.False(t, AppointmentStatusCompleted.CanTransitionTo(AppointmentStatusCompleted))

	_, ok := ParseAppointmentStatus("archived")
	assert.False(t, ok)
}

func TestDoctorShareAndWalletMovements(t *testing.T) {
	share := DoctorShare(decimal.NewFromInt(1000), decimal.NewFromInt(20))
	assert.True(t, share.Equal(decimal.NewFromInt(800)))

	w := &Wallet{CommissionRate: decimal.NewFromInt(20)}
	assert.True(t, w.DoctorSharePercentage().Equal(decimal.NewFromInt(80)))

	now := time.Now()
	w.Credit(share, now)
	assert.True(t, w.CurrentBalance.Equal(share))
	assert.True(t, w.TotalEarned.Equal(share))
	assert.Equal(t, &now, w.LastPaymentAt)

	assert.False(t, w.Clawback(decimal.NewFromInt(801)))
	assert.True(t, w.Clawback(decimal.NewFromInt(300)))
	assert.True(t, w.CurrentBalance.Equal(decimal.NewFromInt(500)))
	assert.True(t, w.TotalEarned.Equal(decimal.NewFromInt(500)))

	assert.False(t, w.Withdraw(decimal.NewFromInt(600), now))
	assert.True(t, w.Withdraw(decimal.NewFromInt(200), now))
	assert.True(t, w.CurrentBalance.Equal(decimal.NewFromInt(300)))
	assert.True(t, w.TotalWithdrawn.Equal(decimal.NewFromInt(200)))
}
