package availability

import (
	"strings"
	"time"

	"telecare/models"
)

// EntryFor returns the enabled template entry for the weekday of day.
func EntryFor(template []models.AvailabilityEntry, day time.Time) (models.AvailabilityEntry, bool) {
	weekday := models.WeekdayName(day.Weekday())
	for _, e := range template {
		if e.Enabled && strings.ToLower(e.Day) == weekday {
			return e, true
		}
	}
	return models.AvailabilityEntry{}, false
}

// Partition splits [start,end) into labels slotDuration minutes apart. A
// trailing remainder shorter than one slot is dropped.
func Partition(e models.AvailabilityEntry) []string {
	start, err := models.ParseClock(e.Start)
	if err != nil {
		return nil
	}
	end, err := models.ParseClock(e.End)
	if err != nil || e.SlotDuration <= 0 {
		return nil
	}

	var labels []string
	for m := start; m+e.SlotDuration <= end; m += e.SlotDuration {
		labels = append(labels, models.FormatClock(m))
	}
	return labels
}
