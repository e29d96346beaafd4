package converter

import (
	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/internal/service"
)

// PaymentToResponse converts a Payment entity to PaymentResponse DTO
func PaymentToResponse(payment *entity.Payment) *dto.PaymentResponse {
	if payment == nil {
		return nil
	}

	response := &dto.PaymentResponse{
		ID:                payment.ID,
		AppointmentID:     payment.AppointmentID,
		DoctorID:          payment.DoctorID,
		PatientID:         payment.PatientID,
		Amount:            payment.Amount,
		Method:            payment.Method,
		Status:            string(payment.Status),
		GatewayReference:  payment.GatewayReference,
		UpcomingEarningID: payment.UpcomingEarningID,
		FailureReason:     payment.FailureReason,
		CapturedAt:        payment.CapturedAt,
		CreatedAt:         payment.CreatedAt,
		UpdatedAt:         payment.UpdatedAt,
	}

	if payment.RefundedAt != nil {
		response.Refund = &dto.RefundRecord{
			Amount:      payment.RefundAmount,
			Reason:      payment.RefundReason,
			InitiatedBy: payment.RefundInitiatedBy,
			Reference:   payment.RefundReference,
			RefundedAt:  payment.RefundedAt,
		}
	}

	return response
}

// UpcomingEarningToResponse converts an UpcomingEarning entity to UpcomingEarningResponse DTO
func UpcomingEarningToResponse(earning *entity.UpcomingEarning) *dto.UpcomingEarningResponse {
	if earning == nil {
		return nil
	}

	return &dto.UpcomingEarningResponse{
		ID:             earning.ID,
		DoctorID:       earning.DoctorID,
		AppointmentID:  earning.AppointmentID,
		PaymentID:      earning.PaymentID,
		Amount:         earning.Amount,
		CommissionRate: earning.CommissionRate,
		Status:         string(earning.Status),
		ScheduledDate:  earning.ScheduledDate,
		ReleasedAt:     earning.ReleasedAt,
		RefundedAt:     earning.RefundedAt,
	}
}

// UpcomingEarningsToResponses converts a slice of UpcomingEarning entities
func UpcomingEarningsToResponses(earnings []entity.UpcomingEarning) []dto.UpcomingEarningResponse {
	responses := make([]dto.UpcomingEarningResponse, len(earnings))
	for i := range earnings {
		responses[i] = *UpcomingEarningToResponse(&earnings[i])
	}
	return responses
}

// RefundSettlementToResponse converts the escrow reconciliation of a refund
func RefundSettlementToResponse(settlement *service.RefundSettlement) dto.RefundSettlementResponse {
	return dto.RefundSettlementResponse{
		EarningStatus:   string(settlement.EarningStatus),
		EarningAmount:   settlement.EarningAmount,
		ClawbackAmount:  settlement.ClawbackAmount,
		ClawbackApplied: settlement.ClawbackApplied,
		ClawbackTxID:    settlement.ClawbackTxID,
	}
}
