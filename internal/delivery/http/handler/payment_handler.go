package handler

import (
	"net/http"

	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/usecase"
	"healthcare-booking-service/pkg/response"
	"healthcare-booking-service/pkg/validator"
)

type PaymentHandler struct {
	paymentUsecase usecase.PaymentUsecase
	validator      *validator.CustomValidator
}

func NewPaymentHandler(paymentUsecase usecase.PaymentUsecase, validator *validator.CustomValidator) *PaymentHandler {
	return &PaymentHandler{
		paymentUsecase: paymentUsecase,
		validator:      validator,
	}
}

func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePaymentRequest
	if !decodeRequest(w, r, h.validator, &req) {
		return
	}

	payment, err := h.paymentUsecase.CreatePayment(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "Payment created successfully", payment)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := uuidVar(w, r, "id", "payment")
	if !ok {
		return
	}

	payment, err := h.paymentUsecase.GetPayment(r.Context(), paymentID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Payment retrieved successfully", payment)
}

func (h *PaymentHandler) AuthorizePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := uuidVar(w, r, "id", "payment")
	if !ok {
		return
	}

	var req dto.GatewayEventRequest
	if !decodeRequest(w, r, h.validator, &req) {
		return
	}

	payment, err := h.paymentUsecase.AuthorizePayment(r.Context(), paymentID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Payment authorized successfully", payment)
}

func (h *PaymentHandler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := uuidVar(w, r, "id", "payment")
	if !ok {
		return
	}

	var req dto.GatewayEventRequest
	if !decodeRequest(w, r, h.validator, &req) {
		return
	}

	payment, err := h.paymentUsecase.CapturePayment(r.Context(), paymentID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Payment captured successfully", payment)
}

func (h *PaymentHandler) FailPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := uuidVar(w, r, "id", "payment")
	if !ok {
		return
	}

	var req dto.FailPaymentRequest
	if !decodeRequest(w, r, h.validator, &req) {
		return
	}

	payment, err := h.paymentUsecase.FailPayment(r.Context(), paymentID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Payment marked as failed", payment)
}

func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := uuidVar(w, r, "id", "payment")
	if !ok {
		return
	}

	result, err := h.paymentUsecase.ProcessPayment(r.Context(), paymentID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Payment processed successfully", result)
}

func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := uuidVar(w, r, "id", "payment")
	if !ok {
		return
	}

	var req dto.RefundPaymentRequest
	if !decodeRequest(w, r, h.validator, &req) {
		return
	}

	result, err := h.paymentUsecase.ProcessRefund(r.Context(), paymentID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Payment refunded successfully", result)
}
