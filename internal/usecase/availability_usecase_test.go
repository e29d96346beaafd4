package usecase_test

import (
	"sync"
	"testing"

	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAvailableSlots_WeeklySchedule(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t, inPerson, video)

	resp, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, "")
	require.NoError(t, err)

	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	assert.Equal(t, want, slotStarts(resp, inPerson))
	assert.Equal(t, want, slotStarts(resp, video))
	assert.Equal(t, 12, resp.Total)

	filtered, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, video)
	require.NoError(t, err)
	require.Len(t, filtered.Groups, 1)
	assert.Equal(t, video, filtered.Groups[0].ConsultationType)
}

func TestGetAvailableSlots_NoScheduleOnDate(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)

	_, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, "2030-01-08", "")
	assert.ErrorIs(t, err, usecase.ErrNoAvailability)

	_, err = f.availability.GetAvailableSlots(f.asPatient(), uuid.New(), slotDate, "")
	assert.ErrorIs(t, err, usecase.ErrAvailabilityNotFound)
}

func TestApplyPartialOverride_SplitsShift(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)

	_, err := f.availability.ApplyPartialOverride(f.asDoctor(), f.doctorID, &dto.PartialOverrideRequest{
		Date:       slotDate,
		BlockStart: "10:00",
		BlockEnd:   "10:30",
		Reason:     "staff meeting",
	})
	require.NoError(t, err)

	resp, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, inPerson)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:30", "11:00", "11:30"}, slotStarts(resp, inPerson))

	availability, err := f.availability.GetAvailability(f.asPatient(), f.doctorID)
	require.NoError(t, err)
	override := availability.Overrides[slotDate]
	require.Len(t, override.Shifts, 2)
	assert.Equal(t, "10:00", override.Shifts[0].EndTime)
	assert.Equal(t, "10:30", override.Shifts[1].StartTime)

	// The weekly schedule of the following Monday is untouched.
	next, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, nextMonday, inPerson)
	require.NoError(t, err)
	assert.Len(t, slotStarts(next, inPerson), 6)
}

func TestApplyOverride_UnavailableAndRemove(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)

	_, err := f.availability.ApplyOverride(f.asDoctor(), f.doctorID, &dto.ApplyOverrideRequest{
		Date:        slotDate,
		Unavailable: true,
		Reason:      "conference",
	})
	require.NoError(t, err)

	resp, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, "")
	require.NoError(t, err)
	assert.Empty(t, resp.Groups)

	ok, err := f.availability.IsSlotAvailable(f.asPatient(), f.doctorID, slotDate, "09:00", inPerson)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.availability.RemoveOverride(f.asDoctor(), f.doctorID, slotDate)
	require.NoError(t, err)

	resp, err = f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, "")
	require.NoError(t, err)
	assert.Len(t, slotStarts(resp, inPerson), 6)

	_, err = f.availability.RemoveOverride(f.asDoctor(), f.doctorID, slotDate)
	assert.ErrorIs(t, err, usecase.ErrOverrideNotFound)
}

func TestApplyOverride_CustomShifts(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)

	_, err := f.availability.ApplyOverride(f.asDoctor(), f.doctorID, &dto.ApplyOverrideRequest{
		Date:   slotDate,
		Shifts: []dto.ShiftRequest{shiftRequest("14:00", "15:00", video)},
	})
	require.NoError(t, err)

	resp, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, "")
	require.NoError(t, err)
	assert.Empty(t, slotStarts(resp, inPerson))
	assert.Equal(t, []string{"14:00", "14:30"}, slotStarts(resp, video))
}

func TestUpsertAvailability_RejectsOtherDoctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.availability.UpsertAvailability(f.asDoctor(), uuid.New(), &dto.UpsertAvailabilityRequest{
		SlotDuration: 30,
		Schedule:     map[string][]dto.ShiftRequest{"monday": {shiftRequest("09:00", "12:00", inPerson)}},
	})
	assert.ErrorIs(t, err, usecase.ErrNotOwner)

	_, err = f.availability.UpsertAvailability(f.asPatient(), f.doctorID, &dto.UpsertAvailabilityRequest{
		SlotDuration: 30,
		Schedule:     map[string][]dto.ShiftRequest{"monday": {shiftRequest("09:00", "12:00", inPerson)}},
	})
	assert.ErrorIs(t, err, usecase.ErrNotOwner)
}

func TestUpsertAvailability_RejectsOverlappingShifts(t *testing.T) {
	f := newFixture(t)

	_, err := f.availability.UpsertAvailability(f.asDoctor(), f.doctorID, &dto.UpsertAvailabilityRequest{
		SlotDuration: 30,
		Schedule: map[string][]dto.ShiftRequest{"monday": {
			shiftRequest("09:00", "12:00", inPerson),
			shiftRequest("11:00", "13:00", inPerson),
		}},
	})
	require.Error(t, err)
}

func TestUpsertAvailability_KeepsOverridesAndBumpsVersion(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)

	_, err := f.availability.ApplyOverride(f.asDoctor(), f.doctorID, &dto.ApplyOverrideRequest{Date: slotDate, Unavailable: true})
	require.NoError(t, err)

	before, err := f.availability.GetAvailability(f.asDoctor(), f.doctorID)
	require.NoError(t, err)

	after, err := f.availability.UpsertAvailability(f.asDoctor(), f.doctorID, &dto.UpsertAvailabilityRequest{
		SlotDuration: 60,
		Schedule:     map[string][]dto.ShiftRequest{"monday": {shiftRequest("09:00", "12:00", inPerson)}},
	})
	require.NoError(t, err)
	assert.Greater(t, after.Version, before.Version)
	assert.Contains(t, after.Overrides, slotDate)

	resp, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, nextMonday, inPerson)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, slotStarts(resp, inPerson))
}

func TestBookedSlotsNeverListed(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)

	// Warm the cache before booking.
	_, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, inPerson)
	require.NoError(t, err)

	f.book(t, slotDate, "09:30")
	f.book(t, slotDate, "11:00")

	resp, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, inPerson)
	require.NoError(t, err)
	starts := slotStarts(resp, inPerson)
	assert.NotContains(t, starts, "09:30")
	assert.NotContains(t, starts, "11:00")
	assert.Len(t, starts, 4)

	ok, err := f.availability.IsSlotAvailable(f.asPatient(), f.doctorID, slotDate, "09:30", inPerson)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBookAppointment_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.appointments.BookAppointment(f.asPatient(), &dto.BookAppointmentRequest{
				DoctorID:         f.doctorID,
				Date:             slotDate,
				StartTime:        "10:00",
				ConsultationType: inPerson,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, usecase.ErrSlotUnavailable)
	}
	assert.Equal(t, 1, succeeded)

	var active int64
	require.NoError(t, f.db.Model(&entity.BookedSlot{}).
		Where("doctor_id = ? AND date = ? AND start_time = ? AND status = ?", f.doctorID, slotDate, "10:00", entity.BookedSlotStatusBooked).
		Count(&active).Error)
	assert.EqualValues(t, 1, active)
}

func TestSlotCache_ServesUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	f.withMondayMorning(t)

	_, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, inPerson)
	require.NoError(t, err)

	// A booking written behind the use case's back is not seen until invalidation.
	availability, err := f.availability.GetAvailability(f.asPatient(), f.doctorID)
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&entity.BookedSlot{
		AvailabilityID:   availability.ID,
		DoctorID:         f.doctorID,
		Date:             slotDate,
		StartTime:        "09:00",
		EndTime:          "09:30",
		ConsultationType: inPerson,
		AppointmentID:    uuid.New(),
		Status:           entity.BookedSlotStatusBooked,
	}).Error)

	cached, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, inPerson)
	require.NoError(t, err)
	assert.Contains(t, slotStarts(cached, inPerson), "09:00")

	f.availability.InvalidateSlots(f.asPatient(), f.doctorID, slotDate)

	fresh, err := f.availability.GetAvailableSlots(f.asPatient(), f.doctorID, slotDate, inPerson)
	require.NoError(t, err)
	assert.NotContains(t, slotStarts(fresh, inPerson), "09:00")
}
