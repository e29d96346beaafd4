package entity

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Weekday keys accepted in a weekly schedule.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// ConsultationOption is one consultation type offered during a shift.
type ConsultationOption struct {
	Type        string          `json:"type"`
	Fee         decimal.Decimal `json:"fee"`
	MaxPatients int             `json:"max_patients"`
}

// Shift is a working window on a day. Slots are generated inside it.
type Shift struct {
	StartTime         string               `json:"start_time"`
	EndTime           string               `json:"end_time"`
	IsActive          *bool                `json:"is_active,omitempty"`
	ConsultationTypes []ConsultationOption `json:"consultation_types"`
}

// Active reports whether the shift generates slots. Shifts are active unless explicitly disabled.
func (s Shift) Active() bool {
	return s.IsActive == nil || *s.IsActive
}

// Offers returns the option for consultationType, if the shift offers it.
func (s Shift) Offers(consultationType string) (ConsultationOption, bool) {
	for _, opt := range s.ConsultationTypes {
		if opt.Type == consultationType {
			return opt, true
		}
	}
	return ConsultationOption{}, false
}

// WeeklySchedule maps a weekday key to the shifts worked on that day.
type WeeklySchedule map[string][]Shift

// DateOverride replaces the weekly schedule for a single date.
type DateOverride struct {
	Unavailable bool    `json:"unavailable"`
	Shifts      []Shift `json:"shifts,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// Availability is a doctor's recurring schedule together with date overrides.
// Booked slots live in their own table and reference the availability by ID.
type Availability struct {
	ID           uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID     uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex" json:"doctor_id"`
	SlotDuration int                     `gorm:"not null;default:30" json:"slot_duration"`
	BufferTime   int                     `gorm:"not null;default:0" json:"buffer_time"`
	Schedule     WeeklySchedule          `gorm:"type:jsonb;serializer:json" json:"schedule"`
	Overrides    map[string]DateOverride `gorm:"type:jsonb;serializer:json" json:"overrides"`
	Version      int64                   `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Availability) TableName() string {
	return "availabilities"
}

func (a *Availability) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ShiftsOn resolves the shifts that apply on date. A date override wins over the
// weekly schedule. ok is false when neither defines the date.
func (a *Availability) ShiftsOn(date string) (shifts []Shift, ok bool, err error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, false, err
	}

	if override, found := a.Overrides[date]; found {
		if override.Unavailable {
			return nil, true, nil
		}
		return override.Shifts, true, nil
	}

	weekly, found := a.Schedule[WeekdayKey(d)]
	if !found || len(weekly) == 0 {
		return nil, false, nil
	}
	return weekly, true, nil
}

// TimeSlot is one bookable window.
type TimeSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// SlotGroup collects the free slots for one consultation type.
type SlotGroup struct {
	ConsultationType string          `json:"consultation_type"`
	Fee              decimal.Decimal `json:"fee"`
	Slots            []TimeSlot      `json:"slots"`
}

// SlotKey identifies a slot within one doctor's day.
type SlotKey struct {
	StartTime        string
	ConsultationType string
}

// shiftSlots yields the start minutes of every slot fully contained in the shift.
func (a *Availability) shiftSlots(shift Shift) ([]int, error) {
	start, err := ParseClock(shift.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(shift.EndTime)
	if err != nil {
		return nil, err
	}
	if a.SlotDuration <= 0 {
		return nil, nil
	}

	step := a.SlotDuration + a.BufferTime
	var starts []int
	for t := start; t+a.SlotDuration <= end; t += step {
		starts = append(starts, t)
	}
	return starts, nil
}

// FreeSlots computes the bookable slots for the given shifts. booked holds the
// active bookings of the day keyed by start time and type. A shift whose
// max-patients cap is reached for a type offers nothing more for that type.
// An empty consultationType means every type.
func (a *Availability) FreeSlots(shifts []Shift, consultationType string, booked map[SlotKey]bool) ([]SlotGroup, error) {
	groups := map[string]*SlotGroup{}
	seen := map[SlotKey]bool{}

	for _, shift := range shifts {
		if !shift.Active() {
			continue
		}
		starts, err := a.shiftSlots(shift)
		if err != nil {
			return nil, err
		}

		for _, opt := range shift.ConsultationTypes {
			if consultationType != "" && opt.Type != consultationType {
				continue
			}

			taken := 0
			for _, st := range starts {
				if booked[SlotKey{StartTime: FormatClock(st), ConsultationType: opt.Type}] {
					taken++
				}
			}
			if opt.MaxPatients > 0 && taken >= opt.MaxPatients {
				continue
			}

			group, ok := groups[opt.Type]
			if !ok {
				group = &SlotGroup{ConsultationType: opt.Type, Fee: opt.Fee}
				groups[opt.Type] = group
			} else if opt.Fee.LessThan(group.Fee) {
				group.Fee = opt.Fee
			}

			for _, st := range starts {
				key := SlotKey{StartTime: FormatClock(st), ConsultationType: opt.Type}
				if booked[key] || seen[key] {
					continue
				}
				seen[key] = true
				group.Slots = append(group.Slots, TimeSlot{
					StartTime: key.StartTime,
					EndTime:   FormatClock(st + a.SlotDuration),
				})
			}
		}
	}

	result := make([]SlotGroup, 0, len(groups))
	for _, g := range groups {
		sort.Slice(g.Slots, func(i, j int) bool { return g.Slots[i].StartTime < g.Slots[j].StartTime })
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ConsultationType < result[j].ConsultationType })
	return result, nil
}

// FindSlot looks up the slot starting at startTime for consultationType and
// reports its end time and the shift offering it.
func (a *Availability) FindSlot(shifts []Shift, startTime, consultationType string) (TimeSlot, Shift, bool, error) {
	want, err := ParseClock(startTime)
	if err != nil {
		return TimeSlot{}, Shift{}, false, err
	}

	for _, shift := range shifts {
		if !shift.Active() {
			continue
		}
		if _, ok := shift.Offers(consultationType); !ok {
			continue
		}
		starts, err := a.shiftSlots(shift)
		if err != nil {
			return TimeSlot{}, Shift{}, false, err
		}
		for _, st := range starts {
			if st == want {
				return TimeSlot{StartTime: FormatClock(st), EndTime: FormatClock(st + a.SlotDuration)}, shift, true, nil
			}
		}
	}
	return TimeSlot{}, Shift{}, false, nil
}

// ShiftStarts returns the HH:MM start times generated by shift.
func (a *Availability) ShiftStarts(shift Shift) ([]string, error) {
	starts, err := a.shiftSlots(shift)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(starts))
	for i, st := range starts {
		out[i] = FormatClock(st)
	}
	return out, nil
}
