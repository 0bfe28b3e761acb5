package domain

import "time"

// RateSettings is the singleton pricing table. A night window with
// NightStartHour > NightEndHour wraps past midnight.
type RateSettings struct {
	DayRate        int64     `json:"day_rate"`
	NightRate      int64     `json:"night_rate"`
	NightStartHour int       `json:"night_start_hour"`
	NightEndHour   int       `json:"night_end_hour"`
	UpdatedBy      string    `json:"updated_by,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s RateSettings) Validate() error {
	if s.DayRate <= 0 {
		return NewValidationError("day_rate", "must be greater than 0")
	}
	if s.NightRate <= 0 {
		return NewValidationError("night_rate", "must be greater than 0")
	}
	if !ValidHour(s.NightStartHour) {
		return NewValidationError("night_start_hour", "must be between 0 and 23")
	}
	if !ValidHour(s.NightEndHour) {
		return NewValidationError("night_end_hour", "must be between 0 and 23")
	}
	return nil
}

func ValidHour(h int) bool { return h >= 0 && h < SlotsPerDay }
