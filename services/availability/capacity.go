package availability

import "telecare/models"

// CapacityPolicy caps concurrent active bookings per professional per day.
// It is independent of slot granularity, which comes from the template.
type CapacityPolicy struct {
	Default    int
	Pharmacist int
}

// DailyCap returns the cap for a professional type.
func (p CapacityPolicy) DailyCap(t models.ProfessionalType) int {
	if t == models.TypePharmacist {
		return p.Pharmacist
	}
	return p.Default
}

// Remaining is cap minus active, floored at zero.
func (p CapacityPolicy) Remaining(t models.ProfessionalType, active int) int {
	remaining := p.DailyCap(t) - active
	if remaining < 0 {
		return 0
	}
	return remaining
}
