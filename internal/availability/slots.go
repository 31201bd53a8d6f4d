package availability

import (
	"time"

	"svstudio/internal/models"
)

// Slot is one bookable hour.
type Slot struct {
	Hour   int    `json:"hour"`
	Label  string `json:"label"`
	Booked bool   `json:"booked"`
}

// DaySlots lays out the hours [openHour, closeHour) and marks every hour
// covered by one of the bookings.
func DaySlots(bookings []models.Booking, openHour, closeHour int) []Slot {
	if closeHour <= openHour {
		return []Slot{}
	}
	slots := make([]Slot, 0, closeHour-openHour)
	for h := openHour; h < closeHour; h++ {
		slot := Slot{Hour: h, Label: HourLabel(h)}
		for i := range bookings {
			if bookings[i].Covers(h) {
				slot.Booked = true
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// HourLabel renders an hour of the day on a 12-hour clock, e.g. "2:00 PM".
func HourLabel(hour int) string {
	return time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format("3:04 PM")
}
