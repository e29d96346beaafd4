package usecase

import (
	"context"
	"errors"
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
	ErrAvailabilityNotFound = apperror.New(apperror.ErrNotFound, "availability not found")
	ErrNoAvailability       = apperror.New(apperror.ErrNotFound, "doctor has no schedule on this date")
	ErrSlotUnavailable      = apperror.New(apperror.ErrConflict, "slot is not available")
	ErrOverrideNotFound     = apperror.New(apperror.ErrNotFound, "no override exists for this date")
)

// AvailabilityUsecase is the single source of truth for what can be booked.
type AvailabilityUsecase interface {
	GetAvailability(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityResponse, error)
	UpsertAvailability(ctx context.Context, doctorID uuid.UUID, req *dto.UpsertAvailabilityRequest) (*dto.AvailabilityResponse, error)
	ApplyOverride(ctx context.Context, doctorID uuid.UUID, req *dto.ApplyOverrideRequest) (*dto.AvailabilityResponse, error)
	ApplyPartialOverride(ctx context.Context, doctorID uuid.UUID, req *dto.PartialOverrideRequest) (*dto.AvailabilityResponse, error)
	RemoveOverride(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AvailabilityResponse, error)
	GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date, consultationType string) (*dto.AvailableSlotsResponse, error)
	IsSlotAvailable(ctx context.Context, doctorID uuid.UUID, date, startTime, consultationType string) (bool, error)

	// BookSlot re-validates the slot and reserves it for appointmentID. It must
	// run inside the transaction that writes the appointment.
	BookSlot(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, date, startTime, consultationType string, appointmentID uuid.UUID) (*entity.BookedSlot, error)
	// ReleaseSlot moves the appointment's reserved slot to a terminal status.
	// Returns nil when the appointment holds no reserved slot.
	ReleaseSlot(ctx context.Context, tx *gorm.DB, appointmentID uuid.UUID, status entity.BookedSlotStatus) (*entity.BookedSlot, error)
	// InvalidateSlots drops cached slot views. Call after the booking transaction commits.
	InvalidateSlots(ctx context.Context, doctorID uuid.UUID, dates ...string)
}

type availabilityUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	availabilityRepo repository.AvailabilityRepository
	bookedSlotRepo   repository.BookedSlotRepository
	auditService     service.AuditService
	slotCache        *service.SlotCache
}

func NewAvailabilityUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	availabilityRepo repository.AvailabilityRepository,
	bookedSlotRepo repository.BookedSlotRepository,
	auditService service.AuditService,
	slotCache *service.SlotCache,
) AvailabilityUsecase {
	return &availabilityUsecase{
		db:               db,
		log:              log,
		availabilityRepo: availabilityRepo,
		bookedSlotRepo:   bookedSlotRepo,
		auditService:     auditService,
		slotCache:        slotCache,
	}
}

func (u *availabilityUsecase) GetAvailability(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityResponse, error) {
	availability, err := u.availabilityRepo.FindByDoctorID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find availability for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if availability == nil {
		return nil, ErrAvailabilityNotFound
	}
	return converter.AvailabilityToResponse(availability), nil
}

// UpsertAvailability replaces the weekly schedule. Date overrides are kept.
func (u *availabilityUsecase) UpsertAvailability(ctx context.Context, doctorID uuid.UUID, req *dto.UpsertAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.canActForDoctor(doctorID) {
		return nil, ErrNotOwner
	}

	if req.SlotDuration <= 0 || req.BufferTime < 0 {
		return nil, apperror.New(apperror.ErrInvalidInput, "slot duration must be positive and buffer time not negative")
	}
	schedule := converter.ScheduleRequestToEntity(req.Schedule)
	if err := validateSchedule(schedule); err != nil {
		return nil, err
	}

	var result *entity.Availability
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := u.availabilityRepo.FindByDoctorIDForUpdate(tx, doctorID)
		if err != nil {
			return err
		}

		if existing == nil {
			result = &entity.Availability{
				DoctorID:     doctorID,
				SlotDuration: req.SlotDuration,
				BufferTime:   req.BufferTime,
				Schedule:     schedule,
				Overrides:    map[string]entity.DateOverride{},
				Version:      1,
			}
			if err := u.availabilityRepo.Create(tx, result); err != nil {
				return err
			}
			return u.auditService.LogCreate(ctx, tx, caller.idPtr(), entity.AuditActionAvailabilityUpdate,
				"availability", result.ID.String(), result)
		}

		old := *existing
		existing.SlotDuration = req.SlotDuration
		existing.BufferTime = req.BufferTime
		existing.Schedule = schedule
		if err := u.availabilityRepo.Update(tx, existing); err != nil {
			return err
		}
		result = existing
		return u.auditService.LogUpdate(ctx, tx, caller.idPtr(), entity.AuditActionAvailabilityUpdate,
			"availability", existing.ID.String(), old.Schedule, existing.Schedule)
	})
	if err != nil {
		u.log.Warnf("Failed to upsert availability for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	u.log.Infof("Availability saved: doctor=%s, version=%d", doctorID, result.Version)
	return converter.AvailabilityToResponse(result), nil
}

// ApplyOverride replaces the weekly schedule on one date, either with a
// custom shift list or by marking the date unavailable.
func (u *availabilityUsecase) ApplyOverride(ctx context.Context, doctorID uuid.UUID, req *dto.ApplyOverrideRequest) (*dto.AvailabilityResponse, error) {
	if _, err := entity.ParseDate(req.Date); err != nil {
		return nil, apperror.New(apperror.ErrInvalidInput, err.Error())
	}

	override := entity.DateOverride{Unavailable: req.Unavailable, Reason: req.Reason}
	if !req.Unavailable {
		if len(req.Shifts) == 0 {
			return nil, apperror.New(apperror.ErrInvalidInput, "shifts are required unless the date is unavailable")
		}
		override.Shifts = converter.ShiftRequestsToEntities(req.Shifts)
		if err := entity.ValidateShifts(override.Shifts); err != nil {
			return nil, apperror.New(apperror.ErrInvalidInput, err.Error())
		}
	}

	return u.mutateOverrides(ctx, doctorID, req.Date, func(a *entity.Availability) error {
		a.Overrides[req.Date] = override
		return nil
	})
}

// ApplyPartialOverride carves [BlockStart, BlockEnd) out of the shifts that
// currently apply on the date.
func (u *availabilityUsecase) ApplyPartialOverride(ctx context.Context, doctorID uuid.UUID, req *dto.PartialOverrideRequest) (*dto.AvailabilityResponse, error) {
	if _, err := entity.ParseDate(req.Date); err != nil {
		return nil, apperror.New(apperror.ErrInvalidInput, err.Error())
	}

	return u.mutateOverrides(ctx, doctorID, req.Date, func(a *entity.Availability) error {
		shifts, ok, err := a.ShiftsOn(req.Date)
		if err != nil {
			return apperror.New(apperror.ErrInvalidInput, err.Error())
		}
		if !ok {
			return ErrNoAvailability
		}

		carved, err := entity.CarveShifts(shifts, req.BlockStart, req.BlockEnd)
		if err != nil {
			return apperror.New(apperror.ErrInvalidInput, err.Error())
		}

		a.Overrides[req.Date] = entity.DateOverride{
			Unavailable: len(carved) == 0,
			Shifts:      carved,
			Reason:      req.Reason,
		}
		return nil
	})
}

func (u *availabilityUsecase) RemoveOverride(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AvailabilityResponse, error) {
	return u.mutateOverrides(ctx, doctorID, date, func(a *entity.Availability) error {
		if _, ok := a.Overrides[date]; !ok {
			return ErrOverrideNotFound
		}
		delete(a.Overrides, date)
		return nil
	})
}

func (u *availabilityUsecase) mutateOverrides(ctx context.Context, doctorID uuid.UUID, date string, mutate func(*entity.Availability) error) (*dto.AvailabilityResponse, error) {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.canActForDoctor(doctorID) {
		return nil, ErrNotOwner
	}

	var result *entity.Availability
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		availability, err := u.availabilityRepo.FindByDoctorIDForUpdate(tx, doctorID)
		if err != nil {
			return err
		}
		if availability == nil {
			return ErrAvailabilityNotFound
		}
		if availability.Overrides == nil {
			availability.Overrides = map[string]entity.DateOverride{}
		}

		before, hadBefore := availability.Overrides[date]
		if err := mutate(availability); err != nil {
			return err
		}
		if err := u.availabilityRepo.Update(tx, availability); err != nil {
			return err
		}
		result = availability

		var oldValue interface{}
		if hadBefore {
			oldValue = before
		}
		var newValue interface{}
		if after, ok := availability.Overrides[date]; ok {
			newValue = after
		}
		return u.auditService.LogUpdate(ctx, tx, caller.idPtr(), entity.AuditActionAvailabilityOverride,
			"availability", availability.ID.String(), oldValue, newValue)
	})
	if err != nil {
		if !apperror.IsClientError(err) {
			u.log.Warnf("Failed to update override %s for doctor %s: %+v", date, doctorID, err)
		}
		return nil, err
	}

	u.InvalidateSlots(ctx, doctorID, date)
	u.log.Infof("Override updated: doctor=%s, date=%s, version=%d", doctorID, date, result.Version)
	return converter.AvailabilityToResponse(result), nil
}

// GetAvailableSlots lists free slots on date grouped by consultation type. An
// empty consultationType means every type.
func (u *availabilityUsecase) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date, consultationType string) (*dto.AvailableSlotsResponse, error) {
	if _, err := entity.ParseDate(date); err != nil {
		return nil, apperror.New(apperror.ErrInvalidInput, err.Error())
	}

	db := u.db.WithContext(ctx)
	availability, err := u.availabilityRepo.FindByDoctorID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find availability for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if availability == nil {
		return nil, ErrAvailabilityNotFound
	}

	groups, ticket, hit := u.slotCache.Lookup(ctx, doctorID, date, consultationType, availability.Version)
	if !hit {
		groups, err = u.computeSlots(db, availability, date, consultationType)
		if err != nil {
			return nil, err
		}
		u.slotCache.Store(ctx, ticket, groups)
	}

	responses, total := converter.SlotGroupsToResponses(groups)
	return &dto.AvailableSlotsResponse{
		DoctorID: doctorID,
		Date:     date,
		Groups:   responses,
		Total:    total,
	}, nil
}

func (u *availabilityUsecase) computeSlots(db *gorm.DB, availability *entity.Availability, date, consultationType string) ([]entity.SlotGroup, error) {
	shifts, ok, err := availability.ShiftsOn(date)
	if err != nil {
		return nil, apperror.New(apperror.ErrInvalidInput, err.Error())
	}
	if !ok {
		return nil, ErrNoAvailability
	}
	if len(shifts) == 0 {
		return []entity.SlotGroup{}, nil
	}

	booked, err := u.bookedOn(db, availability.DoctorID, date)
	if err != nil {
		return nil, err
	}

	groups, err := availability.FreeSlots(shifts, consultationType, booked)
	if err != nil {
		return nil, apperror.New(apperror.ErrInvalidInput, err.Error())
	}
	return groups, nil
}

func (u *availabilityUsecase) bookedOn(db *gorm.DB, doctorID uuid.UUID, date string) (map[entity.SlotKey]bool, error) {
	slots, err := u.bookedSlotRepo.FindActiveByDoctorAndDate(db, doctorID, date)
	if err != nil {
		u.log.Warnf("Failed to load booked slots for doctor %s on %s: %+v", doctorID, date, err)
		return nil, err
	}
	booked := make(map[entity.SlotKey]bool, len(slots))
	for _, s := range slots {
		booked[entity.SlotKey{StartTime: s.StartTime, ConsultationType: s.ConsultationType}] = true
	}
	return booked, nil
}

func (u *availabilityUsecase) IsSlotAvailable(ctx context.Context, doctorID uuid.UUID, date, startTime, consultationType string) (bool, error) {
	db := u.db.WithContext(ctx)
	availability, err := u.availabilityRepo.FindByDoctorID(db, doctorID)
	if err != nil {
		return false, err
	}
	if availability == nil {
		return false, ErrAvailabilityNotFound
	}

	_, err = u.checkSlot(db, availability, date, startTime, consultationType)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrNoAvailability):
		return false, nil
	default:
		return false, err
	}
}

// checkSlot resolves the slot and verifies that it is free, including the
// max-patients cap of the shift offering it.
func (u *availabilityUsecase) checkSlot(db *gorm.DB, availability *entity.Availability, date, startTime, consultationType string) (entity.TimeSlot, error) {
	if _, err := entity.ParseClock(startTime); err != nil {
		return entity.TimeSlot{}, apperror.New(apperror.ErrInvalidInput, err.Error())
	}

	shifts, ok, err := availability.ShiftsOn(date)
	if err != nil {
		return entity.TimeSlot{}, apperror.New(apperror.ErrInvalidInput, err.Error())
	}
	if !ok {
		return entity.TimeSlot{}, ErrNoAvailability
	}

	slot, shift, found, err := availability.FindSlot(shifts, startTime, consultationType)
	if err != nil {
		return entity.TimeSlot{}, apperror.New(apperror.ErrInvalidInput, err.Error())
	}
	if !found {
		return entity.TimeSlot{}, ErrSlotUnavailable
	}

	booked, err := u.bookedOn(db, availability.DoctorID, date)
	if err != nil {
		return entity.TimeSlot{}, err
	}

	free, err := availability.FreeSlots([]entity.Shift{shift}, consultationType, booked)
	if err != nil {
		return entity.TimeSlot{}, apperror.New(apperror.ErrInvalidInput, err.Error())
	}
	for _, group := range free {
		for _, s := range group.Slots {
			if s.StartTime == slot.StartTime {
				return slot, nil
			}
		}
	}
	return entity.TimeSlot{}, ErrSlotUnavailable
}

func (u *availabilityUsecase) BookSlot(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, date, startTime, consultationType string, appointmentID uuid.UUID) (*entity.BookedSlot, error) {
	db := tx.WithContext(ctx)

	// The row lock serializes bookings for one doctor.
	availability, err := u.availabilityRepo.FindByDoctorIDForUpdate(db, doctorID)
	if err != nil {
		return nil, err
	}
	if availability == nil {
		return nil, ErrAvailabilityNotFound
	}

	slot, err := u.checkSlot(db, availability, date, startTime, consultationType)
	if err != nil {
		return nil, err
	}

	booked := &entity.BookedSlot{
		AvailabilityID:   availability.ID,
		DoctorID:         doctorID,
		Date:             date,
		StartTime:        slot.StartTime,
		EndTime:          slot.EndTime,
		ConsultationType: consultationType,
		AppointmentID:    appointmentID,
		Status:           entity.BookedSlotStatusBooked,
	}
	if err := u.bookedSlotRepo.Create(db, booked); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("reserve slot: %w", err)
	}

	u.log.Debugf("Slot booked: doctor=%s, date=%s, start=%s, type=%s, appointment=%s",
		doctorID, date, slot.StartTime, consultationType, appointmentID)
	return booked, nil
}

func (u *availabilityUsecase) ReleaseSlot(ctx context.Context, tx *gorm.DB, appointmentID uuid.UUID, status entity.BookedSlotStatus) (*entity.BookedSlot, error) {
	db := tx.WithContext(ctx)

	slot, err := u.bookedSlotRepo.FindActiveByAppointment(db, appointmentID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, nil
	}

	if _, err := u.bookedSlotRepo.ReleaseByAppointment(db, appointmentID, status); err != nil {
		return nil, err
	}
	slot.Status = status
	return slot, nil
}

func (u *availabilityUsecase) InvalidateSlots(ctx context.Context, doctorID uuid.UUID, dates ...string) {
	for _, date := range dates {
		u.slotCache.Invalidate(ctx, doctorID, date)
	}
}

func validateSchedule(schedule entity.WeeklySchedule) error {
	known := make(map[string]bool, len(entity.Weekdays))
	for _, day := range entity.Weekdays {
		known[day] = true
	}
	for day, shifts := range schedule {
		if !known[day] {
			return apperror.New(apperror.ErrInvalidInput, fmt.Sprintf("unknown weekday %q", day))
		}
		if err := entity.ValidateShifts(shifts); err != nil {
			return apperror.New(apperror.ErrInvalidInput, fmt.Sprintf("%s: %v", day, err))
		}
	}
	return nil
}
