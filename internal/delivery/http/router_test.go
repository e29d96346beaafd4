package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"healthcare-booking-service/config"
	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/delivery/http/handler"
	"healthcare-booking-service/internal/delivery/http/middleware"
	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/internal/usecase"
	"healthcare-booking-service/pkg/jwt"
	"healthcare-booking-service/pkg/response"
	"healthcare-booking-service/pkg/validator"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The stubs embed the use case interfaces; calling a method that is not
// overridden panics, which keeps each test honest about what it reaches.

type stubAvailability struct {
	usecase.AvailabilityUsecase
}

func (s *stubAvailability) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date, consultationType string) (*dto.AvailableSlotsResponse, error) {
	return &dto.AvailableSlotsResponse{DoctorID: doctorID, Date: date}, nil
}

type stubAppointments struct {
	usecase.AppointmentUsecase
	book func(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error)
}

func (s *stubAppointments) BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	return s.book(ctx, req)
}

type stubPayments struct {
	usecase.PaymentUsecase
	refundErr error
}

func (s *stubPayments) ProcessRefund(ctx context.Context, paymentID uuid.UUID, req *dto.RefundPaymentRequest) (*dto.RefundResponse, error) {
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	return &dto.RefundResponse{}, nil
}

type stubWallets struct {
	usecase.WalletUsecase
}

type stubAuditLogs struct {
	usecase.AuditLogUsecase
}

type routerFixture struct {
	handler      http.Handler
	jwtService   *jwt.JWTService
	redis        *miniredis.Miniredis
	appointments *stubAppointments
	payments     *stubPayments
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	v := validator.NewValidator()
	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "router-test-secret"})
	appointments := &stubAppointments{}
	payments := &stubPayments{}

	router := NewRouter(
		handler.NewAvailabilityHandler(&stubAvailability{}, v),
		handler.NewAppointmentHandler(appointments, v),
		handler.NewPaymentHandler(payments, v),
		handler.NewWalletHandler(&stubWallets{}, v),
		handler.NewAuditLogHandler(&stubAuditLogs{}),
		middleware.NewAuthMiddleware(jwtService, client, log),
		middleware.NewCORSMiddleware(),
	)

	return &routerFixture{
		handler:      router.Setup(),
		jwtService:   jwtService,
		redis:        mr,
		appointments: appointments,
		payments:     payments,
	}
}

func (f *routerFixture) token(t *testing.T, userID uuid.UUID, roleID int) (string, string) {
	t.Helper()
	token, tokenID, err := f.jwtService.GenerateAccessToken(userID, roleID, time.Hour)
	require.NoError(t, err)
	return token, tokenID
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var envelope response.Response
	if rec.Header().Get("Content-Type") == "application/json" && rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	}
	return rec, envelope
}

func validBooking(doctorID uuid.UUID) map[string]string {
	return map[string]string{
		"doctor_id":         doctorID.String(),
		"date":              "2030-01-07",
		"start_time":        "09:00",
		"consultation_type": "in_person",
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_PublicSlotBrowsing(t *testing.T) {
	f := newRouterFixture(t)
	doctorID := uuid.New()

	rec, envelope := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/doctors/%s/slots?date=2030-01-07", doctorID), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)

	rec, _ = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/doctors/%s/slots", doctorID), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/v1/doctors/not-a-uuid/slots?date=2030-01-07", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_BookAppointment(t *testing.T) {
	f := newRouterFixture(t)
	patientID := uuid.New()
	doctorID := uuid.New()

	f.appointments.book = func(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
		caller, ok := middleware.GetUserIDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, patientID, caller)
		role, _ := middleware.GetRoleIDFromContext(ctx)
		assert.Equal(t, entity.RoleIDPatient, role)
		return &dto.AppointmentResponse{ID: uuid.New(), DoctorID: req.DoctorID, PatientID: caller}, nil
	}

	token, _ := f.token(t, patientID, entity.RoleIDPatient)
	rec, envelope := f.do(t, http.MethodPost, "/api/v1/appointments", token, validBooking(doctorID))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, envelope.Success)
}

func TestRouter_BookAppointmentRejections(t *testing.T) {
	f := newRouterFixture(t)
	doctorID := uuid.New()
	f.appointments.book = func(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
		return nil, usecase.ErrSlotUnavailable
	}

	rec, _ := f.do(t, http.MethodPost, "/api/v1/appointments", "", validBooking(doctorID))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/v1/appointments", "garbage", validBooking(doctorID))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	doctorToken, _ := f.token(t, doctorID, entity.RoleIDDoctor)
	rec, _ = f.do(t, http.MethodPost, "/api/v1/appointments", doctorToken, validBooking(doctorID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	patientToken, _ := f.token(t, uuid.New(), entity.RoleIDPatient)
	invalid := validBooking(doctorID)
	invalid["start_time"] = "9am"
	rec, envelope := f.do(t, http.MethodPost, "/api/v1/appointments", patientToken, invalid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)

	rec, _ = f.do(t, http.MethodPost, "/api/v1/appointments", patientToken, validBooking(doctorID))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_RevokedToken(t *testing.T) {
	f := newRouterFixture(t)
	f.appointments.book = func(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
		t.Fatal("revoked token reached the handler")
		return nil, nil
	}

	token, tokenID := f.token(t, uuid.New(), entity.RoleIDPatient)
	require.NoError(t, f.redis.Set(middleware.RevokedTokenKeyPrefix+tokenID, "1"))

	rec, _ := f.do(t, http.MethodPost, "/api/v1/appointments", token, validBooking(uuid.New()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdminRoutesRequireAdmin(t *testing.T) {
	f := newRouterFixture(t)

	token, _ := f.token(t, uuid.New(), entity.RoleIDPatient)
	rec, _ := f.do(t, http.MethodGet, "/api/v1/admin/audit-logs", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/v1/admin/audit-logs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_GatewayFailureMapsToBadGateway(t *testing.T) {
	f := newRouterFixture(t)
	f.payments.refundErr = fmt.Errorf("%w: connection refused", usecase.ErrGatewayRefundFailed)

	token, _ := f.token(t, uuid.New(), entity.RoleIDAdmin)
	path := fmt.Sprintf("/api/v1/payments/%s/refund", uuid.New())

	rec, envelope := f.do(t, http.MethodPost, path, token, map[string]string{"reason": "duplicate charge"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, envelope.Success)

	f.payments.refundErr = nil
	rec, _ = f.do(t, http.MethodPost, path, token, map[string]string{"reason": "duplicate charge"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CaptureIsAdminOnly(t *testing.T) {
	f := newRouterFixture(t)
	path := fmt.Sprintf("/api/v1/payments/%s/capture", uuid.New())

	token, _ := f.token(t, uuid.New(), entity.RoleIDPatient)
	rec, _ := f.do(t, http.MethodPost, path, token, map[string]string{"gateway_reference": "gw-1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/payments/%s/authorize", uuid.New()), token, map[string]string{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
