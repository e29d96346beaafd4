package handler

import (
	"net/http"

	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/usecase"
	"healthcare-booking-service/pkg/response"
	"healthcare-booking-service/pkg/validator"

	"github.com/gorilla/mux"
)

type AvailabilityHandler struct {
	availabilityUsecase usecase.AvailabilityUsecase
	validator           *validator.CustomValidator
}

func NewAvailabilityHandler(availabilityUsecase usecase.AvailabilityUsecase, validator *validator.CustomValidator) *AvailabilityHandler {
	return &AvailabilityHandler{
		availabilityUsecase: availabilityUsecase,
		validator:           validator,
	}
}

func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	availability, err := h.availabilityUsecase.GetAvailability(r.Context(), doctorID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Availability retrieved successfully", availability)
}

func (h *AvailabilityHandler) UpsertAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	var req dto.UpsertAvailabilityRequest
	if !decodeRequest(w, r, h.validator, &req) {
		return
	}

	availability, err := h.availabilityUsecase.UpsertAvailability(r.Context(), doctorID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Availability saved successfully", availability)
}

func (h *AvailabilityHandler) ApplyOverride(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	var req dto.ApplyOverrideRequest
	if !decodeRequest(w, r, h.validator, &req) {
		return
	}

	availability, err := h.availabilityUsecase.ApplyOverride(r.Context(), doctorID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Override applied successfully", availability)
}

func (h *AvailabilityHandler) ApplyPartialOverride(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	var req dto.PartialOverrideRequest
	if !decodeRequest(w, r, h.validator, &req) {
		return
	}

	availability, err := h.availabilityUsecase.ApplyPartialOverride(r.Context(), doctorID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Partial override applied successfully", availability)
}

func (h *AvailabilityHandler) RemoveOverride(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	availability, err := h.availabilityUsecase.RemoveOverride(r.Context(), doctorID, mux.Vars(r)["date"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Override removed successfully", availability)
}

func (h *AvailabilityHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	query := r.URL.Query()
	date := query.Get("date")
	if date == "" {
		response.Error(w, http.StatusBadRequest, "date query parameter is required", nil)
		return
	}

	slots, err := h.availabilityUsecase.GetAvailableSlots(r.Context(), doctorID, date, query.Get("consultation_type"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Available slots retrieved successfully", slots)
}

func (h *AvailabilityHandler) CheckSlot(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	query := r.URL.Query()
	result := dto.SlotAvailabilityResponse{
		Date:             query.Get("date"),
		StartTime:        query.Get("start_time"),
		ConsultationType: query.Get("consultation_type"),
	}
	if result.Date == "" || result.StartTime == "" || result.ConsultationType == "" {
		response.Error(w, http.StatusBadRequest, "date, start_time and consultation_type are required", nil)
		return
	}

	available, err := h.availabilityUsecase.IsSlotAvailable(r.Context(), doctorID, result.Date, result.StartTime, result.ConsultationType)
	if err != nil {
		response.FromError(w, err)
		return
	}
	result.Available = available

	response.Success(w, http.StatusOK, "Slot checked successfully", result)
}
