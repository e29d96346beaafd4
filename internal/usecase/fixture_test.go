package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"healthcare-booking-service/config"
	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/delivery/http/middleware"
	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/internal/infrastructure/database"
	"healthcare-booking-service/internal/repository"
	"healthcare-booking-service/internal/service"
	"healthcare-booking-service/internal/usecase"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Monday 2030-01-07 09:00 UTC is the first bookable slot; the clock starts a day earlier.
const (
	slotDate   = "2030-01-07"
	nextMonday = "2030-01-14"
	inPerson   = "in_person"
	video      = "video"
)

var startOfTest = time.Date(2030, 1, 6, 8, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []service.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event service.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

type fakeGateway struct {
	mu       sync.Mutex
	fail     bool
	requests []service.RefundRequest
}

func (g *fakeGateway) Refund(ctx context.Context, req service.RefundRequest) (*service.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return nil, errors.New("gateway unavailable")
	}
	g.requests = append(g.requests, req)
	return &service.RefundResult{Reference: "rf-" + req.PaymentID, Status: "succeeded"}, nil
}

type fixture struct {
	db        *gorm.DB
	redis     *miniredis.Miniredis
	clock     *testClock
	publisher *recordingPublisher
	gateway   *fakeGateway

	availability usecase.AvailabilityUsecase
	appointments usecase.AppointmentUsecase
	payments     usecase.PaymentUsecase
	wallets      usecase.WalletUsecase
	auditLogs    usecase.AuditLogUsecase

	doctorID  uuid.UUID
	patientID uuid.UUID
	adminID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: startOfTest}

	gormConfig := database.GormConfig(logger.Silent)
	gormConfig.NowFunc = clock.Now
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), gormConfig)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection serializes transactions the way row locks do in postgres.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entity.DoctorProfile{},
		&entity.Availability{},
		&entity.BookedSlot{},
		&entity.Appointment{},
		&entity.Payment{},
		&entity.UpcomingEarning{},
		&entity.Wallet{},
		&entity.Transaction{},
		&entity.AuditLog{},
	))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	availabilityRepo := repository.NewAvailabilityRepository()
	bookedSlotRepo := repository.NewBookedSlotRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	doctorProfileRepo := repository.NewDoctorProfileRepository()
	paymentRepo := repository.NewPaymentRepository()
	earningRepo := repository.NewUpcomingEarningRepository()
	walletRepo := repository.NewWalletRepository()
	transactionRepo := repository.NewTransactionRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	auditService := service.NewAuditService(log, auditLogRepo)
	slotCache := service.NewSlotCache(redisClient, 5*time.Minute, log)
	escrow := service.NewEscrowService(log, walletRepo, earningRepo, transactionRepo, decimal.NewFromInt(20))

	publisher := &recordingPublisher{}
	gateway := &fakeGateway{}

	f := &fixture{
		db:        db,
		redis:     mr,
		clock:     clock,
		publisher: publisher,
		gateway:   gateway,
		doctorID:  uuid.New(),
		patientID: uuid.New(),
		adminID:   uuid.New(),
	}

	f.availability = usecase.NewAvailabilityUsecase(db, log, availabilityRepo, bookedSlotRepo, auditService, slotCache)
	f.payments = usecase.NewPaymentUsecase(db, log, paymentRepo, appointmentRepo, earningRepo, transactionRepo,
		escrow, gateway, auditService, publisher,
		config.EscrowConfig{HoldPeriod: 24 * time.Hour, DefaultCommissionRate: decimal.NewFromInt(20)},
		time.UTC, clock.Now)
	f.appointments = usecase.NewAppointmentUsecase(db, log, appointmentRepo, paymentRepo, doctorProfileRepo,
		f.availability, f.payments, auditService, publisher,
		config.BookingConfig{
			PendingTimeout:          15 * time.Minute,
			DoctorRescheduleNotice:  time.Hour,
			PatientRescheduleNotice: 24 * time.Hour,
		},
		time.UTC, clock.Now)
	f.wallets = usecase.NewWalletUsecase(db, log, walletRepo, transactionRepo, earningRepo,
		escrow, auditService, publisher, clock.Now)
	f.auditLogs = usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	require.NoError(t, doctorProfileRepo.Create(db, &entity.DoctorProfile{
		UserID:          f.doctorID,
		FullName:        "Dr. Test",
		Specialization:  "general",
		ConsultationFee: decimal.NewFromInt(100),
		ConsultationFees: map[string]decimal.Decimal{
			video: decimal.NewFromInt(60),
		},
	}))

	return f
}

func (f *fixture) asDoctor() context.Context {
	return middleware.WithIdentity(context.Background(), f.doctorID, entity.RoleIDDoctor)
}

func (f *fixture) asPatient() context.Context {
	return middleware.WithIdentity(context.Background(), f.patientID, entity.RoleIDPatient)
}

func (f *fixture) asAdmin() context.Context {
	return middleware.WithIdentity(context.Background(), f.adminID, entity.RoleIDAdmin)
}

func shiftRequest(start, end string, types ...string) dto.ShiftRequest {
	shift := dto.ShiftRequest{StartTime: start, EndTime: end}
	for _, typ := range types {
		shift.ConsultationTypes = append(shift.ConsultationTypes, dto.ConsultationOptionRequest{
			Type:        typ,
			Fee:         decimal.NewFromInt(100),
			MaxPatients: 10,
		})
	}
	return shift
}

// withMondayMorning gives the doctor a Monday 09:00-12:00 shift of 30 minute slots.
func (f *fixture) withMondayMorning(t *testing.T, types ...string) {
	t.Helper()
	if len(types) == 0 {
		types = []string{inPerson}
	}
	_, err := f.availability.UpsertAvailability(f.asDoctor(), f.doctorID, &dto.UpsertAvailabilityRequest{
		SlotDuration: 30,
		Schedule: map[string][]dto.ShiftRequest{
			"monday": {shiftRequest("09:00", "12:00", types...)},
		},
	})
	require.NoError(t, err)
}

func (f *fixture) book(t *testing.T, date, start string) *dto.AppointmentResponse {
	t.Helper()
	appointment, err := f.appointments.BookAppointment(f.asPatient(), &dto.BookAppointmentRequest{
		DoctorID:         f.doctorID,
		Date:             date,
		StartTime:        start,
		ConsultationType: inPerson,
	})
	require.NoError(t, err)
	return appointment
}

// capturedPayment books a slot and pays for it in full.
func (f *fixture) capturedPayment(t *testing.T, start string) (*dto.AppointmentResponse, *dto.PaymentResponse) {
	t.Helper()
	appointment := f.book(t, slotDate, start)
	payment, err := f.payments.CreatePayment(f.asPatient(), &dto.CreatePaymentRequest{
		AppointmentID: appointment.ID,
		Method:        "card",
	})
	require.NoError(t, err)
	payment, err = f.payments.CapturePayment(f.asAdmin(), payment.ID, &dto.GatewayEventRequest{GatewayReference: "gw-1"})
	require.NoError(t, err)
	return appointment, payment
}

func slotStarts(resp *dto.AvailableSlotsResponse, consultationType string) []string {
	var starts []string
	for _, group := range resp.Groups {
		if group.ConsultationType != consultationType {
			continue
		}
		for _, slot := range group.Slots {
			starts = append(starts, slot.StartTime)
		}
	}
	return starts
}

func requireDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}
