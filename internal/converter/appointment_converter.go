package converter

import (
	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:               appointment.ID,
		PatientID:        appointment.PatientID,
		DoctorID:         appointment.DoctorID,
		Date:             appointment.Date,
		StartTime:        appointment.StartTime,
		EndTime:          appointment.EndTime,
		ConsultationType: appointment.ConsultationType,
		ConsultationFee:  appointment.ConsultationFee,
		Reason:           appointment.Reason,
		Status:           string(appointment.Status),
		CreatedAt:        appointment.CreatedAt,
		UpdatedAt:        appointment.UpdatedAt,
	}

	for _, entry := range appointment.RescheduleHistory {
		response.RescheduleHistory = append(response.RescheduleHistory, dto.RescheduleEntryResponse{
			PreviousDate:      entry.PreviousDate,
			PreviousStartTime: entry.PreviousStartTime,
			PreviousEndTime:   entry.PreviousEndTime,
			RescheduledBy:     entry.RescheduledBy,
			RescheduledByRole: entry.RescheduledByRole,
			Reason:            entry.Reason,
			RescheduledAt:     entry.RescheduledAt,
		})
	}

	if appointment.Review != nil {
		response.Review = &dto.ReviewResponse{
			Rating:    appointment.Review.Rating,
			Comment:   appointment.Review.Comment,
			CreatedAt: appointment.Review.CreatedAt,
		}
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
