package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type ConsultationOptionRequest struct {
	Type        string          `json:"type" validate:"required,max=50"`
	Fee         decimal.Decimal `json:"fee"`
	MaxPatients int             `json:"max_patients" validate:"min=1"`
}

type ShiftRequest struct {
	StartTime         string                      `json:"start_time" validate:"required,clock"` // Format: HH:MM
	EndTime           string                      `json:"end_time" validate:"required,clock"`   // Format: HH:MM
	IsActive          *bool                       `json:"is_active"`
	ConsultationTypes []ConsultationOptionRequest `json:"consultation_types" validate:"required,min=1,dive"`
}

type UpsertAvailabilityRequest struct {
	SlotDuration int                       `json:"slot_duration" validate:"required,min=5,max=480"` // minutes
	BufferTime   int                       `json:"buffer_time" validate:"min=0,max=240"`            // minutes
	Schedule     map[string][]ShiftRequest `json:"schedule" validate:"required,dive,keys,oneof=monday tuesday wednesday thursday friday saturday sunday,endkeys,dive"`
}

type ApplyOverrideRequest struct {
	Date        string         `json:"date" validate:"required,date"` // Format: YYYY-MM-DD
	Unavailable bool           `json:"unavailable"`
	Shifts      []ShiftRequest `json:"shifts" validate:"omitempty,dive"`
	Reason      string         `json:"reason" validate:"max=255"`
}

type PartialOverrideRequest struct {
	Date       string `json:"date" validate:"required,date"`
	BlockStart string `json:"block_start" validate:"required,clock"`
	BlockEnd   string `json:"block_end" validate:"required,clock"`
	Reason     string `json:"reason" validate:"max=255"`
}

// Response DTOs

type ConsultationOptionResponse struct {
	Type        string          `json:"type"`
	Fee         decimal.Decimal `json:"fee"`
	MaxPatients int             `json:"max_patients"`
}

type ShiftResponse struct {
	StartTime         string                       `json:"start_time"`
	EndTime           string                       `json:"end_time"`
	IsActive          bool                         `json:"is_active"`
	ConsultationTypes []ConsultationOptionResponse `json:"consultation_types"`
}

type DateOverrideResponse struct {
	Unavailable bool            `json:"unavailable"`
	Shifts      []ShiftResponse `json:"shifts,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

type AvailabilityResponse struct {
	ID           uuid.UUID                       `json:"id"`
	DoctorID     uuid.UUID                       `json:"doctor_id"`
	SlotDuration int                             `json:"slot_duration"`
	BufferTime   int                             `json:"buffer_time"`
	Schedule     map[string][]ShiftResponse      `json:"schedule"`
	Overrides    map[string]DateOverrideResponse `json:"overrides"`
	Version      int64                           `json:"version"`
	UpdatedAt    time.Time                       `json:"updated_at"`
}

type TimeSlotResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type SlotGroupResponse struct {
	ConsultationType string             `json:"consultation_type"`
	Fee              decimal.Decimal    `json:"fee"`
	Slots            []TimeSlotResponse `json:"slots"`
}

type AvailableSlotsResponse struct {
	DoctorID uuid.UUID           `json:"doctor_id"`
	Date     string              `json:"date"`
	Groups   []SlotGroupResponse `json:"groups"`
	Total    int                 `json:"total"`
}

type SlotAvailabilityResponse struct {
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	ConsultationType string `json:"consultation_type"`
	Available        bool   `json:"available"`
}
