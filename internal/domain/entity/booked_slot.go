package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookedSlotStatus is the state of an entry in the booked-slot log.
type BookedSlotStatus string

const (
	BookedSlotStatusBooked    BookedSlotStatus = "booked"
	BookedSlotStatusCompleted BookedSlotStatus = "completed"
	BookedSlotStatusCancelled BookedSlotStatus = "cancelled"
	BookedSlotStatusNoShow    BookedSlotStatus = "no_show"
)

// BookedSlot is one entry in a doctor's booked-slot log. At most one entry per
// (doctor, date, start time, consultation type) may be in the booked state;
// the partial unique index enforces it at the storage level.
type BookedSlot struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	AvailabilityID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"availability_id"`
	DoctorID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_booked_slots_active,where:status = 'booked'" json:"doctor_id"`
	Date             string           `gorm:"type:varchar(10);not null;uniqueIndex:idx_booked_slots_active,where:status = 'booked'" json:"date"`
	StartTime        string           `gorm:"type:varchar(5);not null;uniqueIndex:idx_booked_slots_active,where:status = 'booked'" json:"start_time"`
	EndTime          string           `gorm:"type:varchar(5);not null" json:"end_time"`
	ConsultationType string           `gorm:"type:varchar(50);not null;uniqueIndex:idx_booked_slots_active,where:status = 'booked'" json:"consultation_type"`
	AppointmentID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"appointment_id"`
	Status           BookedSlotStatus `gorm:"type:varchar(20);not null;default:'booked';index" json:"status"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BookedSlot) TableName() string {
	return "booked_slots"
}

func (b *BookedSlot) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsBooked checks if the entry still holds its slot
func (b *BookedSlot) IsBooked() bool {
	return b.Status == BookedSlotStatusBooked
}
