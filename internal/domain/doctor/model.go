package doctor

import (
	"time"

	"github.com/google/uuid"

	"github.com/medhub/medhub/internal/domain/domainerr"
)

const defaultSlotMinutes = 30

// Doctor maps to the doctors table. Ratings are stored as a running count
// and sum so the average never needs a table scan.
type Doctor struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	FirstName       string         `db:"first_name" json:"first_name"`
	LastName        string         `db:"last_name" json:"last_name"`
	Specialty       string         `db:"specialty" json:"specialty"`
	DepartmentID    uuid.UUID      `db:"department_id" json:"department_id"`
	Phone           *string        `db:"phone" json:"phone,omitempty"`
	Email           *string        `db:"email" json:"email,omitempty"`
	Bio             *string        `db:"bio" json:"bio,omitempty"`
	ConsultationFee float64        `db:"consultation_fee" json:"consultation_fee"`
	SlotMinutes     int            `db:"slot_minutes" json:"slot_minutes"`
	WorkingHours    []WorkingHours `db:"-" json:"working_hours"`
	RatingCount     int            `db:"rating_count" json:"rating_count"`
	RatingSum       int            `db:"rating_sum" json:"-"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	// Derived, populated on reads.
	AverageRating float64 `db:"-" json:"average_rating"`
}

// WorkingHours is one weekday's consulting window, clock times as "HH:MM".
type WorkingHours struct {
	Weekday time.Weekday `db:"weekday" json:"weekday"`
	Start   string       `db:"start_time" json:"start"`
	End     string       `db:"end_time" json:"end"`
}

// Slot is a bookable interval generated from working hours.
type Slot struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// Interval is a booked time range used when filtering slots.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(start, end time.Time) bool {
	return iv.Start.Before(end) && start.Before(iv.End)
}

// parseClock converts "HH:MM" to minutes past midnight. time.Parse consumes
// the whole input, so trailing text like "09:00:59" is rejected.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, domainerr.Invalidf("invalid clock time %q, want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Validate checks that the window parses and ends after it starts.
func (wh WorkingHours) Validate() error {
	start, err := parseClock(wh.Start)
	if err != nil {
		return err
	}
	end, err := parseClock(wh.End)
	if err != nil {
		return err
	}
	if end <= start {
		return domainerr.Invalidf("working hours end %q must be after start %q", wh.End, wh.Start)
	}
	return nil
}

// slotMinutes returns the configured slot length, defaulting to 30.
func (d *Doctor) slotMinutes() int {
	if d.SlotMinutes <= 0 {
		return defaultSlotMinutes
	}
	return d.SlotMinutes
}

// AverageRatingValue returns the mean rating, 0 when unrated.
func (d *Doctor) AverageRatingValue() float64 {
	if d.RatingCount == 0 {
		return 0
	}
	return float64(d.RatingSum) / float64(d.RatingCount)
}

// Derive fills computed fields served alongside stored ones.
func (d *Doctor) Derive() {
	d.AverageRating = d.AverageRatingValue()
}

// GenerateSlots expands the working hours for date's weekday into slots of
// the doctor's configured length. Working hours are clinic times in UTC, so
// the date is normalized to UTC first; a caller-supplied offset must not
// shift the grid. A slot that would overrun the window end is not emitted.
// Working hours are assumed valid at write time; windows that fail to parse
// are skipped.
func (d *Doctor) GenerateSlots(date time.Time) []Slot {
	var slots []Slot
	length := d.slotMinutes()
	date = date.UTC()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	for _, wh := range d.WorkingHours {
		if wh.Weekday != date.Weekday() {
			continue
		}
		start, err := parseClock(wh.Start)
		if err != nil {
			continue
		}
		end, err := parseClock(wh.End)
		if err != nil || end <= start {
			continue
		}
		for m := start; m+length <= end; m += length {
			slots = append(slots, Slot{
				StartsAt: day.Add(time.Duration(m) * time.Minute),
				EndsAt:   day.Add(time.Duration(m+length) * time.Minute),
			})
		}
	}
	return slots
}

// AvailableSlots returns the generated slots for date minus any that
// overlap a booked interval.
func (d *Doctor) AvailableSlots(date time.Time, booked []Interval) []Slot {
	var free []Slot
	for _, slot := range d.GenerateSlots(date) {
		conflict := false
		for _, iv := range booked {
			if iv.Overlaps(slot.StartsAt, slot.EndsAt) {
				conflict = true
				break
			}
		}
		if !conflict {
			free = append(free, slot)
		}
	}
	return free
}

// NextAvailable scans day by day from `from` for up to horizonDays and
// returns the first free slot that starts at or after `from`. The booked
// callback supplies that day's occupied intervals. Returns nil when the
// horizon holds no free slot.
func (d *Doctor) NextAvailable(from time.Time, horizonDays int, booked func(date time.Time) []Interval) *Slot {
	for day := 0; day < horizonDays; day++ {
		date := from.AddDate(0, 0, day)
		for _, slot := range d.AvailableSlots(date, booked(date)) {
			if !slot.StartsAt.Before(from) {
				s := slot
				return &s
			}
		}
	}
	return nil
}
