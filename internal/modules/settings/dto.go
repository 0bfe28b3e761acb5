package settings

// Patch is a partial update; nil fields keep their current value.
type Patch struct {
	DayRate        *int64 `json:"day_rate"`
	NightRate      *int64 `json:"night_rate"`
	NightStartHour *int   `json:"night_start_hour"`
	NightEndHour   *int   `json:"night_end_hour"`
}

func (p Patch) empty() bool {
	return p.DayRate == nil && p.NightRate == nil && p.NightStartHour == nil && p.NightEndHour == nil
}
