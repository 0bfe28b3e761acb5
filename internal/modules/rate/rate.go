// Package rate prices ground hours from the day/night rate table.
package rate

import (
	"sort"

	"groundbooking/internal/domain"
)

type Rate struct {
	Hour        int   `json:"hour"`
	Amount      int64 `json:"amount"`
	IsNightRate bool  `json:"is_night_rate"`
}

// IsNightHour reports whether hour falls inside the night window.
// When start > end the window wraps midnight.
func IsNightHour(hour int, s domain.RateSettings) bool {
	start, end := s.NightStartHour, s.NightEndHour
	if start > end {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

func RateFor(hour int, s domain.RateSettings) Rate {
	if IsNightHour(hour, s) {
		return Rate{Hour: hour, Amount: s.NightRate, IsNightRate: true}
	}
	return Rate{Hour: hour, Amount: s.DayRate}
}

// Quote prices every hour (sorted ascending) and returns the gross total.
func Quote(hours []int, s domain.RateSettings) ([]Rate, int64) {
	sorted := append([]int(nil), hours...)
	sort.Ints(sorted)

	rates := make([]Rate, 0, len(sorted))
	var total int64
	for _, h := range sorted {
		r := RateFor(h, s)
		rates = append(rates, r)
		total += r.Amount
	}
	return rates, total
}
