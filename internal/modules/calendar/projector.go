// Package calendar projects bookings into calendar events with merged,
// human-readable hour ranges.
package calendar

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"

	"groundbooking/internal/domain"
	"groundbooking/internal/repository"
)

// maxRangeDays bounds one calendar query.
const maxRangeDays = 92

type Lister interface {
	List(ctx context.Context, f repository.ListFilter) ([]*domain.Booking, int64, error)
}

type DateRange struct {
	Start string
	End   string
}

// HourRange is a maximal run of consecutive hours; End is exclusive and may be 24.
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Metadata struct {
	BookingNumber    string      `json:"booking_number"`
	Hours            []int       `json:"hours"`
	Ranges           []HourRange `json:"ranges"`
	CustomerName     string      `json:"customer_name,omitempty"`
	CustomerPhone    string      `json:"customer_phone,omitempty"`
	TotalAmount      int64       `json:"total_amount"`
	AdvancePayment   int64       `json:"advance_payment"`
	RemainingPayment int64       `json:"remaining_payment"`
}

type CalendarEvent struct {
	ID         int64                `json:"id"`
	Title      string               `json:"title"`
	Date       string               `json:"date"`
	Start      time.Time            `json:"start"`
	End        time.Time            `json:"end"`
	TimeRanges string               `json:"time_ranges"`
	Status     domain.BookingStatus `json:"status"`
	IsNight    bool                 `json:"is_night"`
	Metadata   Metadata             `json:"metadata"`
}

type Projector struct {
	bookings Lister
	loc      *time.Location
}

func NewProjector(bookings Lister, loc *time.Location) *Projector {
	if loc == nil {
		loc = time.UTC
	}
	return &Projector{bookings: bookings, loc: loc}
}

// EventsFor loads the bookings dated within r and returns a sequence that
// projects each one as it is consumed. A nil status selects every
// non-cancelled booking. The sequence can be ranged over more than once.
func (p *Projector) EventsFor(ctx context.Context, r DateRange, status *domain.BookingStatus) (iter.Seq[CalendarEvent], error) {
	start, err := domain.ParseDate(r.Start, p.loc)
	if err != nil {
		return nil, domain.NewValidationError("start", "must be formatted as YYYY-MM-DD")
	}
	end, err := domain.ParseDate(r.End, p.loc)
	if err != nil {
		return nil, domain.NewValidationError("end", "must be formatted as YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, domain.NewValidationError("end", "must not be before start")
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return nil, domain.NewValidationError("end", fmt.Sprintf("range must not exceed %d days", maxRangeDays))
	}

	f := repository.ListFilter{From: r.Start, To: r.End}
	if status != nil {
		f.Statuses = []domain.BookingStatus{*status}
	} else {
		f.Statuses = []domain.BookingStatus{domain.BookingPending, domain.BookingApproved, domain.BookingCompleted}
	}
	list, _, err := p.bookings.List(ctx, f)
	if err != nil {
		return nil, err
	}

	return func(yield func(CalendarEvent) bool) {
		for _, b := range list {
			ev, ok := p.Project(b)
			if !ok {
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}, nil
}

// Project converts one booking. Bookings without slots yield ok=false.
func (p *Projector) Project(b *domain.Booking) (CalendarEvent, bool) {
	hours := distinctHours(b)
	if len(hours) == 0 {
		return CalendarEvent{}, false
	}
	day, err := domain.ParseDate(b.BookingDate, p.loc)
	if err != nil {
		return CalendarEvent{}, false
	}

	ranges := MergeHours(hours)
	isNight := false
	for _, s := range b.Slots {
		if s.IsNightRate {
			isNight = true
			break
		}
	}

	ev := CalendarEvent{
		ID:         b.ID,
		Title:      b.BookingNumber,
		Date:       b.BookingDate,
		Start:      atHour(day, hours[0]),
		End:        atHour(day, hours[len(hours)-1]+1),
		TimeRanges: FormatRanges(ranges),
		Status:     b.Status,
		IsNight:    isNight,
		Metadata: Metadata{
			BookingNumber:    b.BookingNumber,
			Hours:            hours,
			Ranges:           ranges,
			TotalAmount:      b.TotalAmount,
			AdvancePayment:   b.AdvancePayment,
			RemainingPayment: b.RemainingPayment,
		},
	}
	if b.Customer != nil {
		ev.Title = b.Customer.Name + " (" + b.BookingNumber + ")"
		ev.Metadata.CustomerName = b.Customer.Name
		ev.Metadata.CustomerPhone = b.Customer.Phone
	}
	return ev, true
}

// MergeHours collapses sorted distinct hours into maximal consecutive runs.
func MergeHours(hours []int) []HourRange {
	var out []HourRange
	for _, h := range hours {
		if n := len(out); n > 0 && out[n-1].End == h {
			out[n-1].End = h + 1
			continue
		}
		out = append(out, HourRange{Start: h, End: h + 1})
	}
	return out
}

// FormatRanges renders runs as "9:00 AM – 12:00 PM, 3:00 PM – 4:00 PM".
func FormatRanges(ranges []HourRange) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, HourLabel(r.Start)+" – "+HourLabel(r.End))
	}
	return strings.Join(parts, ", ")
}

// HourLabel renders an hour boundary on a 12-hour clock; 24 is midnight.
func HourLabel(h int) string {
	h %= 24
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:00 %s", display, suffix)
}

func distinctHours(b *domain.Booking) []int {
	seen := make(map[int]bool, len(b.Slots))
	out := make([]int, 0, len(b.Slots))
	for _, s := range b.Slots {
		if seen[s.SlotHour] {
			continue
		}
		seen[s.SlotHour] = true
		out = append(out, s.SlotHour)
	}
	sort.Ints(out)
	return out
}

func atHour(day time.Time, h int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
}
