package entity

import (
	"errors"
	"fmt"
	"sort"
)

// ValidateShifts checks the shifts of a single day: well formed times, start
// before end, at least one consultation type, no overlaps between shifts.
func ValidateShifts(shifts []Shift) error {
	type window struct{ start, end int }
	windows := make([]window, 0, len(shifts))

	for i, s := range shifts {
		start, err := ParseClock(s.StartTime)
		if err != nil {
			return fmt.Errorf("shift %d: %w", i, err)
		}
		end, err := ParseClock(s.EndTime)
		if err != nil {
			return fmt.Errorf("shift %d: %w", i, err)
		}
		if start >= end {
			return fmt.Errorf("shift %d: start time must be before end time", i)
		}
		if len(s.ConsultationTypes) == 0 {
			return fmt.Errorf("shift %d: at least one consultation type is required", i)
		}
		for _, opt := range s.ConsultationTypes {
			if opt.Type == "" {
				return fmt.Errorf("shift %d: consultation type is required", i)
			}
			if opt.Fee.IsNegative() {
				return fmt.Errorf("shift %d: fee for %s must not be negative", i, opt.Type)
			}
			if opt.MaxPatients < 0 {
				return fmt.Errorf("shift %d: max patients for %s must not be negative", i, opt.Type)
			}
		}
		windows = append(windows, window{start, end})
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })
	for i := 1; i < len(windows); i++ {
		if windows[i].start < windows[i-1].end {
			return errors.New("shifts must not overlap")
		}
	}
	return nil
}

// CarveShifts removes the window [blockStart, blockEnd) from shifts. A shift
// fully covered is dropped, a shift strictly containing the block is split in
// two, and a shift overlapping one edge is truncated. Consultation types are
// preserved on every piece.
func CarveShifts(shifts []Shift, blockStart, blockEnd string) ([]Shift, error) {
	bs, err := ParseClock(blockStart)
	if err != nil {
		return nil, err
	}
	be, err := ParseClock(blockEnd)
	if err != nil {
		return nil, err
	}
	if bs >= be {
		return nil, errors.New("block start must be before block end")
	}

	var out []Shift
	for _, s := range shifts {
		start, err := ParseClock(s.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := ParseClock(s.EndTime)
		if err != nil {
			return nil, err
		}

		switch {
		case be <= start || bs >= end:
			out = append(out, s)
		case bs <= start && be >= end:
			// fully covered
		case bs > start && be < end:
			out = append(out, withWindow(s, start, bs), withWindow(s, be, end))
		case bs <= start:
			out = append(out, withWindow(s, be, end))
		default:
			out = append(out, withWindow(s, start, bs))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func withWindow(s Shift, start, end int) Shift {
	types := make([]ConsultationOption, len(s.ConsultationTypes))
	copy(types, s.ConsultationTypes)
	return Shift{
		StartTime:         FormatClock(start),
		EndTime:           FormatClock(end),
		IsActive:          s.IsActive,
		ConsultationTypes: types,
	}
}
