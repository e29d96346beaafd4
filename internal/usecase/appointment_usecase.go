package usecase

import (
	"context"
	"time"

	"healthcare-booking-service/config"
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
	ErrAppointmentNotFound     = apperror.New(apperror.ErrNotFound, "appointment not found")
	ErrAppointmentExpired      = apperror.New(apperror.ErrStateViolation, "appointment has expired")
	ErrAppointmentClosed       = apperror.New(apperror.ErrStateViolation, "appointment is already closed")
	ErrDoctorNotFound          = apperror.New(apperror.ErrNotFound, "doctor not found")
	ErrDoctorInactive          = apperror.New(apperror.ErrStateViolation, "doctor is not accepting bookings")
	ErrPatientOnly             = apperror.New(apperror.ErrForbidden, "only patients can book appointments")
	ErrSlotInPast              = apperror.New(apperror.ErrInvalidInput, "cannot book a slot in the past")
	ErrSameSlot                = apperror.New(apperror.ErrInvalidInput, "new slot is the current slot")
	ErrRescheduleTooLate       = apperror.New(apperror.ErrForbidden, "too late to reschedule this appointment")
	ErrRescheduleUnpaid        = apperror.New(apperror.ErrStateViolation, "unpaid appointments cannot be rescheduled")
	ErrPatientCancelOnly       = apperror.New(apperror.ErrForbidden, "patients can only cancel appointments")
	ErrInvalidStatusTransition = apperror.New(apperror.ErrStateViolation, "invalid appointment status transition")
	ErrReviewNotAllowed        = apperror.New(apperror.ErrStateViolation, "only completed appointments can be reviewed")
	ErrReviewExists            = apperror.New(apperror.ErrConflict, "appointment has already been reviewed")
)

const cleanupBatchSize = 100

// AppointmentUsecase coordinates appointment writes with slot reservations.
type AppointmentUsecase interface {
	BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error)
	RescheduleAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error)
	UpdateStatus(ctx context.Context, appointmentID uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error)
	AddReview(ctx context.Context, appointmentID uuid.UUID, req *dto.AddReviewRequest) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	ListMyAppointments(ctx context.Context, date string) (*dto.AppointmentListResponse, error)
	ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AppointmentListResponse, error)
	// CleanupExpiredPending deletes pending appointments older than the
	// pending timeout and frees their slots. Returns how many were removed.
	CleanupExpiredPending(ctx context.Context) (int, error)
}

type appointmentUsecase struct {
	db                *gorm.DB
	log               *logrus.Logger
	appointmentRepo   repository.AppointmentRepository
	paymentRepo       repository.PaymentRepository
	doctorProfileRepo repository.DoctorProfileRepository
	availability      AvailabilityUsecase
	payments          PaymentUsecase
	auditService      service.AuditService
	publisher         service.NotificationPublisher
	cfg               config.BookingConfig
	loc               *time.Location
	now               service.Clock
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	paymentRepo repository.PaymentRepository,
	doctorProfileRepo repository.DoctorProfileRepository,
	availability AvailabilityUsecase,
	payments PaymentUsecase,
	auditService service.AuditService,
	publisher service.NotificationPublisher,
	cfg config.BookingConfig,
	loc *time.Location,
	clock service.Clock,
) AppointmentUsecase {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = service.SystemClock
	}
	return &appointmentUsecase{
		db:                db,
		log:               log,
		appointmentRepo:   appointmentRepo,
		paymentRepo:       paymentRepo,
		doctorProfileRepo: doctorProfileRepo,
		availability:      availability,
		payments:          payments,
		auditService:      auditService,
		publisher:         publisher,
		cfg:               cfg,
		loc:               loc,
		now:               clock,
	}
}

// BookAppointment reserves the slot and creates a pending appointment in one
// transaction. No charge is made here.
func (u *appointmentUsecase) BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.IsPatient() {
		return nil, ErrPatientOnly
	}

	profile, err := u.doctorProfileRepo.FindByUserID(u.db.WithContext(ctx), req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrDoctorNotFound
	}
	if !profile.Active() {
		return nil, ErrDoctorInactive
	}

	startsAt, err := entity.SlotInstant(req.Date, req.StartTime, u.loc)
	if err != nil {
		return nil, apperror.New(apperror.ErrInvalidInput, err.Error())
	}
	if !startsAt.After(u.now()) {
		return nil, ErrSlotInPast
	}

	appointment := &entity.Appointment{
		ID:               uuid.New(),
		PatientID:        caller.ID,
		DoctorID:         req.DoctorID,
		Date:             req.Date,
		StartTime:        req.StartTime,
		ConsultationType: req.ConsultationType,
		ConsultationFee:  profile.FeeFor(req.ConsultationType),
		Reason:           req.Reason,
		Status:           entity.AppointmentStatusPending,
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := u.availability.BookSlot(ctx, tx, req.DoctorID, req.Date, req.StartTime, req.ConsultationType, appointment.ID)
		if err != nil {
			return err
		}
		appointment.EndTime = slot.EndTime

		if err := u.appointmentRepo.Create(tx, appointment); err != nil {
			return err
		}
		return u.auditService.LogCreate(ctx, tx, caller.idPtr(), entity.AuditActionAppointmentCreate,
			"appointment", appointment.ID.String(), appointment)
	})
	if err != nil {
		if !apperror.IsClientError(err) {
			u.log.Warnf("Failed to book appointment with doctor %s on %s %s: %+v", req.DoctorID, req.Date, req.StartTime, err)
		}
		return nil, err
	}

	u.availability.InvalidateSlots(ctx, appointment.DoctorID, appointment.Date)
	publishEvent(ctx, u.publisher, u.log, u.now(), service.EventAppointmentBooked, newAppointmentEvent(appointment))

	u.log.Infof("Appointment booked: id=%s, patient=%s, doctor=%s, slot=%s %s",
		appointment.ID, appointment.PatientID, appointment.DoctorID, appointment.Date, appointment.StartTime)
	return converter.AppointmentToResponse(appointment), nil
}

// RescheduleAppointment moves the appointment to a new slot. The notice window
// is measured against the current slot start and depends on who asks.
func (u *appointmentUsecase) RescheduleAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	appointment, err := u.findAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	var notice time.Duration
	switch {
	case caller.IsPatient() && appointment.PatientID == caller.ID:
		notice = u.cfg.PatientRescheduleNotice
	case caller.canActForDoctor(appointment.DoctorID):
		notice = u.cfg.DoctorRescheduleNotice
	default:
		return nil, ErrNotOwner
	}

	now := u.now()
	newStart, err := entity.SlotInstant(req.Date, req.StartTime, u.loc)
	if err != nil {
		return nil, apperror.New(apperror.ErrInvalidInput, err.Error())
	}
	if !newStart.After(now) {
		return nil, ErrSlotInPast
	}

	var (
		updated  *entity.Appointment
		previous entity.Appointment
	)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrAppointmentNotFound
		}
		if locked.Status.IsTerminal() {
			return ErrAppointmentClosed
		}
		// Unpaid bookings stay pending so the cleanup sweep can reclaim them.
		if locked.Status == entity.AppointmentStatusPending {
			return ErrRescheduleUnpaid
		}

		currentStart, err := locked.StartsAt(u.loc)
		if err != nil {
			return err
		}
		if currentStart.Sub(now) < notice {
			return ErrRescheduleTooLate
		}
		if req.Date == locked.Date && req.StartTime == locked.StartTime {
			return ErrSameSlot
		}
		previous = *locked

		if _, err := u.availability.ReleaseSlot(ctx, tx, locked.ID, entity.BookedSlotStatusCancelled); err != nil {
			return err
		}
		slot, err := u.availability.BookSlot(ctx, tx, locked.DoctorID, req.Date, req.StartTime, locked.ConsultationType, locked.ID)
		if err != nil {
			return err
		}

		locked.RescheduleHistory = append(locked.RescheduleHistory, entity.RescheduleEntry{
			PreviousDate:      locked.Date,
			PreviousStartTime: locked.StartTime,
			PreviousEndTime:   locked.EndTime,
			RescheduledBy:     caller.ID,
			RescheduledByRole: caller.RoleName(),
			Reason:            req.Reason,
			RescheduledAt:     now,
		})
		locked.Date = req.Date
		locked.StartTime = slot.StartTime
		locked.EndTime = slot.EndTime
		locked.Status = entity.AppointmentStatusRescheduled
		if err := u.appointmentRepo.Update(tx, locked); err != nil {
			return err
		}
		updated = locked

		return u.auditService.LogUpdate(ctx, tx, caller.idPtr(), entity.AuditActionAppointmentReschedule,
			"appointment", locked.ID.String(), previous, locked)
	})
	if err != nil {
		if !apperror.IsClientError(err) {
			u.log.Warnf("Failed to reschedule appointment %s: %+v", appointmentID, err)
		}
		return nil, err
	}

	u.availability.InvalidateSlots(ctx, updated.DoctorID, previous.Date, updated.Date)

	event := newAppointmentEvent(updated)
	event.PreviousStatus = string(previous.Status)
	event.PreviousDate = previous.Date
	event.PreviousStart = previous.StartTime
	event.Reason = req.Reason
	publishEvent(ctx, u.publisher, u.log, now, service.EventAppointmentRescheduled, event)

	u.log.Infof("Appointment rescheduled: id=%s, by=%s, from=%s %s, to=%s %s",
		updated.ID, caller.ID, previous.Date, previous.StartTime, updated.Date, updated.StartTime)
	return converter.AppointmentToResponse(updated), nil
}

// UpdateStatus moves the appointment through its lifecycle. A terminal status
// frees the slot. Cancelling fails open payments and refunds captured ones.
func (u *appointmentUsecase) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	next, ok := entity.ParseAppointmentStatus(req.Status)
	if !ok || next == entity.AppointmentStatusPending || next == entity.AppointmentStatusRescheduled {
		return nil, apperror.New(apperror.ErrInvalidInput, "unsupported status "+req.Status)
	}

	appointment, err := u.findAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	switch {
	case caller.IsPatient() && appointment.PatientID == caller.ID:
		if next != entity.AppointmentStatusCancelled {
			return nil, ErrPatientCancelOnly
		}
	case caller.canActForDoctor(appointment.DoctorID):
	default:
		return nil, ErrNotOwner
	}

	var (
		updated        *entity.Appointment
		previousStatus entity.AppointmentStatus
		released       bool
	)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrAppointmentNotFound
		}
		if !locked.Status.CanTransitionTo(next) {
			return ErrInvalidStatusTransition
		}

		previousStatus = locked.Status
		locked.Status = next
		if err := u.appointmentRepo.Update(tx, locked); err != nil {
			return err
		}
		updated = locked

		if slotStatus, terminal := next.BookedSlotStatus(); terminal {
			slot, err := u.availability.ReleaseSlot(ctx, tx, locked.ID, slotStatus)
			if err != nil {
				return err
			}
			released = slot != nil
		}
		if next == entity.AppointmentStatusCancelled {
			if _, err := u.payments.FailOpenPayments(ctx, tx, locked.ID, "appointment cancelled"); err != nil {
				return err
			}
		}

		return u.auditService.LogUpdate(ctx, tx, caller.idPtr(), entity.AuditActionAppointmentStatus,
			"appointment", locked.ID.String(),
			map[string]interface{}{"status": previousStatus},
			map[string]interface{}{"status": next, "reason": req.Reason})
	})
	if err != nil {
		if !apperror.IsClientError(err) {
			u.log.Warnf("Failed to update status of appointment %s: %+v", appointmentID, err)
		}
		return nil, err
	}

	if released {
		u.availability.InvalidateSlots(ctx, updated.DoctorID, updated.Date)
	}
	if next == entity.AppointmentStatusCancelled {
		u.refundCaptured(ctx, updated.ID, req.Reason)
	}

	event := newAppointmentEvent(updated)
	event.PreviousStatus = string(previousStatus)
	event.Reason = req.Reason
	publishEvent(ctx, u.publisher, u.log, u.now(), service.EventAppointmentStatusChanged, event)

	u.log.Infof("Appointment status updated: id=%s, %s -> %s, by=%s", updated.ID, previousStatus, next, caller.ID)
	return converter.AppointmentToResponse(updated), nil
}

// refundCaptured fully refunds every captured payment of a cancelled
// appointment. The cancellation has committed already, so failures are logged
// and left for the refund retry sweep.
func (u *appointmentUsecase) refundCaptured(ctx context.Context, appointmentID uuid.UUID, reason string) {
	payments, err := u.paymentRepo.FindByAppointmentID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to load payments of cancelled appointment %s: %+v", appointmentID, err)
		return
	}

	if reason == "" {
		reason = "appointment cancelled"
	}
	for _, payment := range payments {
		if !payment.IsCaptured() {
			continue
		}
		if _, err := u.payments.AutoRefund(ctx, payment.ID, reason); err != nil {
			u.log.Warnf("Auto refund failed for payment %s of appointment %s: %+v", payment.ID, appointmentID, err)
		}
	}
}

func (u *appointmentUsecase) AddReview(ctx context.Context, appointmentID uuid.UUID, req *dto.AddReviewRequest) (*dto.AppointmentResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var updated *entity.Appointment
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appointment, err := u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
		if err != nil {
			return err
		}
		if appointment == nil {
			return ErrAppointmentNotFound
		}
		if !caller.IsPatient() || appointment.PatientID != caller.ID {
			return ErrNotOwner
		}
		if appointment.Status != entity.AppointmentStatusCompleted {
			return ErrReviewNotAllowed
		}
		if appointment.Review != nil {
			return ErrReviewExists
		}

		appointment.Review = &entity.Review{
			Rating:    req.Rating,
			Comment:   req.Comment,
			CreatedAt: u.now(),
		}
		if err := u.appointmentRepo.Update(tx, appointment); err != nil {
			return err
		}
		updated = appointment

		return u.auditService.LogCreate(ctx, tx, caller.idPtr(), entity.AuditActionAppointmentReview,
			"appointment", appointment.ID.String(), appointment.Review)
	})
	if err != nil {
		if !apperror.IsClientError(err) {
			u.log.Warnf("Failed to add review to appointment %s: %+v", appointmentID, err)
		}
		return nil, err
	}

	publishEvent(ctx, u.publisher, u.log, u.now(), service.EventReviewCreated, reviewEvent{
		AppointmentID: updated.ID,
		DoctorID:      updated.DoctorID,
		PatientID:     updated.PatientID,
		Rating:        updated.Review.Rating,
		Comment:       updated.Review.Comment,
	})

	return converter.AppointmentToResponse(updated), nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	appointment, err := u.findAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.PatientID != caller.ID && !caller.canActForDoctor(appointment.DoctorID) {
		return nil, ErrNotOwner
	}

	return converter.AppointmentToResponse(appointment), nil
}

// ListMyAppointments returns the caller's appointments, as patient or as doctor.
func (u *appointmentUsecase) ListMyAppointments(ctx context.Context, date string) (*dto.AppointmentListResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var appointments []entity.Appointment
	db := u.db.WithContext(ctx)
	switch {
	case caller.IsPatient():
		appointments, err = u.appointmentRepo.FindByPatientID(db, caller.ID)
		if err == nil && date != "" {
			appointments = filterByDate(appointments, date)
		}
	case caller.IsDoctor():
		appointments, err = u.appointmentRepo.FindByDoctorID(db, caller.ID, date)
	default:
		return nil, apperror.New(apperror.ErrForbidden, "only patients and doctors have appointments")
	}
	if err != nil {
		u.log.Warnf("Failed to list appointments for %s: %+v", caller.ID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AppointmentListResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.canActForDoctor(doctorID) {
		return nil, ErrNotOwner
	}

	appointments, err := u.appointmentRepo.FindByDoctorID(u.db.WithContext(ctx), doctorID, date)
	if err != nil {
		u.log.Warnf("Failed to list appointments for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) CleanupExpiredPending(ctx context.Context) (int, error) {
	now := u.now()
	cutoff := now.Add(-u.cfg.PendingTimeout)

	candidates, err := u.appointmentRepo.FindExpiredPending(u.db.WithContext(ctx), cutoff, cleanupBatchSize)
	if err != nil {
		u.log.Warnf("Failed to find expired pending appointments: %+v", err)
		return 0, err
	}

	removed := 0
	for i := range candidates {
		appointment := &candidates[i]

		expired, err := u.expire(ctx, appointment, cutoff)
		if err != nil {
			u.log.Warnf("Failed to expire appointment %s: %+v", appointment.ID, err)
			continue
		}
		if !expired {
			continue
		}
		removed++

		u.availability.InvalidateSlots(ctx, appointment.DoctorID, appointment.Date)
		publishEvent(ctx, u.publisher, u.log, now, service.EventAppointmentExpired, newAppointmentEvent(appointment))
	}

	if removed > 0 {
		u.log.Infof("Expired %d pending appointments created before %s", removed, cutoff.Format(time.RFC3339))
	}
	return removed, nil
}

// expire deletes one stale pending appointment and frees its slot in the same
// transaction. It reports false when the appointment moved on in the meantime.
func (u *appointmentUsecase) expire(ctx context.Context, appointment *entity.Appointment, cutoff time.Time) (bool, error) {
	expired := false
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		captured, err := u.paymentRepo.CountByAppointmentAndStatus(tx, appointment.ID, entity.PaymentStatusCaptured)
		if err != nil {
			return err
		}
		if captured > 0 {
			return nil
		}

		rows, err := u.appointmentRepo.DeletePending(tx, appointment.ID, cutoff)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}

		if _, err := u.availability.ReleaseSlot(ctx, tx, appointment.ID, entity.BookedSlotStatusCancelled); err != nil {
			return err
		}
		if _, err := u.payments.FailOpenPayments(ctx, tx, appointment.ID, "booking expired"); err != nil {
			return err
		}
		expired = true

		return u.auditService.LogDelete(ctx, tx, nil, entity.AuditActionAppointmentExpire,
			"appointment", appointment.ID.String(), appointment)
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

func (u *appointmentUsecase) findAppointment(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

func filterByDate(appointments []entity.Appointment, date string) []entity.Appointment {
	filtered := appointments[:0]
	for _, a := range appointments {
		if a.Date == date {
			filtered = append(filtered, a)
		}
	}
	return filtered
}
