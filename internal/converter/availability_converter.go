package converter

import (
	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/domain/entity"
)

// ShiftRequestsToEntities converts shift request DTOs to domain shifts
func ShiftRequestsToEntities(reqs []dto.ShiftRequest) []entity.Shift {
	shifts := make([]entity.Shift, len(reqs))
	for i, req := range reqs {
		options := make([]entity.ConsultationOption, len(req.ConsultationTypes))
		for j, opt := range req.ConsultationTypes {
			options[j] = entity.ConsultationOption{
				Type:        opt.Type,
				Fee:         opt.Fee,
				MaxPatients: opt.MaxPatients,
			}
		}
		shifts[i] = entity.Shift{
			StartTime:         req.StartTime,
			EndTime:           req.EndTime,
			IsActive:          req.IsActive,
			ConsultationTypes: options,
		}
	}
	return shifts
}

// ScheduleRequestToEntity converts the weekly schedule request to a domain schedule
func ScheduleRequestToEntity(req map[string][]dto.ShiftRequest) entity.WeeklySchedule {
	schedule := make(entity.WeeklySchedule, len(req))
	for day, shifts := range req {
		schedule[day] = ShiftRequestsToEntities(shifts)
	}
	return schedule
}

func shiftsToResponses(shifts []entity.Shift) []dto.ShiftResponse {
	responses := make([]dto.ShiftResponse, len(shifts))
	for i, s := range shifts {
		options := make([]dto.ConsultationOptionResponse, len(s.ConsultationTypes))
		for j, opt := range s.ConsultationTypes {
			options[j] = dto.ConsultationOptionResponse{
				Type:        opt.Type,
				Fee:         opt.Fee,
				MaxPatients: opt.MaxPatients,
			}
		}
		responses[i] = dto.ShiftResponse{
			StartTime:         s.StartTime,
			EndTime:           s.EndTime,
			IsActive:          s.Active(),
			ConsultationTypes: options,
		}
	}
	return responses
}

// AvailabilityToResponse converts an Availability entity to AvailabilityResponse DTO
func AvailabilityToResponse(availability *entity.Availability) *dto.AvailabilityResponse {
	if availability == nil {
		return nil
	}

	schedule := make(map[string][]dto.ShiftResponse, len(availability.Schedule))
	for day, shifts := range availability.Schedule {
		schedule[day] = shiftsToResponses(shifts)
	}

	overrides := make(map[string]dto.DateOverrideResponse, len(availability.Overrides))
	for date, o := range availability.Overrides {
		overrides[date] = dto.DateOverrideResponse{
			Unavailable: o.Unavailable,
			Shifts:      shiftsToResponses(o.Shifts),
			Reason:      o.Reason,
		}
	}

	return &dto.AvailabilityResponse{
		ID:           availability.ID,
		DoctorID:     availability.DoctorID,
		SlotDuration: availability.SlotDuration,
		BufferTime:   availability.BufferTime,
		Schedule:     schedule,
		Overrides:    overrides,
		Version:      availability.Version,
		UpdatedAt:    availability.UpdatedAt,
	}
}

// SlotGroupsToResponses converts computed slot groups and counts the slots
func SlotGroupsToResponses(groups []entity.SlotGroup) ([]dto.SlotGroupResponse, int) {
	total := 0
	responses := make([]dto.SlotGroupResponse, len(groups))
	for i, g := range groups {
		slots := make([]dto.TimeSlotResponse, len(g.Slots))
		for j, s := range g.Slots {
			slots[j] = dto.TimeSlotResponse{StartTime: s.StartTime, EndTime: s.EndTime}
		}
		total += len(slots)
		responses[i] = dto.SlotGroupResponse{
			ConsultationType: g.ConsultationType,
			Fee:              g.Fee,
			Slots:            slots,
		}
	}
	return responses, total
}
