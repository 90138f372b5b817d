package models

import (
	"fmt"
	"strings"
	"time"
)

// AvailabilityEntry is one weekday of a professional's recurring template.
type AvailabilityEntry struct {
	Day          string `bson:"day" json:"day"`                   // "monday" .. "sunday"
	Start        string `bson:"start" json:"start"`               // "09:00"
	End          string `bson:"end" json:"end"`                   // "17:00"
	SlotDuration int    `bson:"slotDuration" json:"slotDuration"` // minutes
	Enabled      bool   `bson:"enabled" json:"enabled"`
}

// SetAvailabilityRequest replaces a professional's weekly template.
type SetAvailabilityRequest struct {
	Availability []AvailabilityEntry `json:"availability" binding:"required"`
}

// AvailableSlotsResponse is the result of an availability lookup.
type AvailableSlotsResponse struct {
	ProfessionalID    string   `json:"professionalId"`
	Date              string   `json:"date"`
	Slots             []string `json:"slots"`
	RemainingCapacity int      `json:"remainingCapacity"`
}

// DateLayout is the wire format of booking dates.
const DateLayout = "2006-01-02"

// ClockLayout is the wire format of slot labels.
const ClockLayout = "15:04"

// WeekdayName returns the template key for a weekday.
func WeekdayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// ParseClock converts an "HH:MM" label into minutes from midnight.
func ParseClock(label string) (int, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(label))
	if err != nil {
		return 0, fmt.Errorf("invalid time label %q: %w", label, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes from midnight into an "HH:MM" label.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Validate checks a single template entry.
func (e AvailabilityEntry) Validate() error {
	day := strings.ToLower(e.Day)
	valid := false
	for d := time.Sunday; d <= time.Saturday; d++ {
		if WeekdayName(d) == day {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown day %q", e.Day)
	}
	start, err := ParseClock(e.Start)
	if err != nil {
		return err
	}
	end, err := ParseClock(e.End)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("%s: start %s must be before end %s", day, e.Start, e.End)
	}
	if e.SlotDuration <= 0 {
		return fmt.Errorf("%s: slot duration must be positive", day)
	}
	if end-start < e.SlotDuration {
		return fmt.Errorf("%s: window %s-%s is shorter than one %d minute slot", day, e.Start, e.End, e.SlotDuration)
	}
	return nil
}
