package rate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"groundbooking/internal/domain"
)

func wrapSettings() domain.RateSettings {
	return domain.RateSettings{DayRate: 1500, NightRate: 2000, NightStartHour: 17, NightEndHour: 7}
}

func TestIsNightHour_WrappingWindow(t *testing.T) {
	s := wrapSettings()

	for _, h := range []int{17, 18, 23, 0, 2, 6} {
		assert.True(t, IsNightHour(h, s), "hour %d should be night", h)
	}
	for _, h := range []int{7, 8, 12, 16} {
		assert.False(t, IsNightHour(h, s), "hour %d should be day", h)
	}
}

func TestIsNightHour_SameDayWindow(t *testing.T) {
	s := domain.RateSettings{DayRate: 1000, NightRate: 1200, NightStartHour: 18, NightEndHour: 22}

	assert.False(t, IsNightHour(17, s))
	assert.True(t, IsNightHour(18, s))
	assert.True(t, IsNightHour(21, s))
	assert.False(t, IsNightHour(22, s))
	assert.False(t, IsNightHour(2, s))
}

func TestIsNightHour_EmptyWindow(t *testing.T) {
	s := domain.RateSettings{DayRate: 1000, NightRate: 1200, NightStartHour: 5, NightEndHour: 5}

	for h := 0; h < domain.SlotsPerDay; h++ {
		assert.False(t, IsNightHour(h, s))
	}
}

func TestRateFor_Idempotent(t *testing.T) {
	s := wrapSettings()
	for h := 0; h < domain.SlotsPerDay; h++ {
		assert.Equal(t, RateFor(h, s), RateFor(h, s))
	}
}

func TestQuote_NightScenario(t *testing.T) {
	rates, total := Quote([]int{18, 19, 23, 2}, wrapSettings())

	assert.Equal(t, int64(8000), total)
	assert.Len(t, rates, 4)
	assert.Equal(t, 2, rates[0].Hour)
	for _, r := range rates {
		assert.True(t, r.IsNightRate)
		assert.Equal(t, int64(2000), r.Amount)
	}
}

func TestQuote_MixedHours(t *testing.T) {
	rates, total := Quote([]int{16, 17}, wrapSettings())

	assert.Equal(t, int64(3500), total)
	assert.False(t, rates[0].IsNightRate)
	assert.True(t, rates[1].IsNightRate)
}
