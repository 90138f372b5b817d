package models

import "time"

// ProfessionalType selects the per-type capacity policy.
type ProfessionalType string

const (
	TypeDoctor     ProfessionalType = "doctor"
	TypePharmacist ProfessionalType = "pharmacist"
	TypeTherapist  ProfessionalType = "therapist"
	TypeDentist    ProfessionalType = "dentist"
	TypeLawyer     ProfessionalType = "lawyer"
)

// Valid reports whether t is a known professional type.
func (t ProfessionalType) Valid() bool {
	switch t {
	case TypeDoctor, TypePharmacist, TypeTherapist, TypeDentist, TypeLawyer:
		return true
	}
	return false
}

// Professional is a consultant who can be booked.
type Professional struct {
	ID                     string              `bson:"id" json:"id"`
	Name                   string              `bson:"name" json:"name"`
	Type                   ProfessionalType    `bson:"type" json:"type"`
	Availability           []AvailabilityEntry `bson:"availability" json:"availability"`
	Online                 bool                `bson:"online" json:"online"`
	AcceptsEmergency       bool                `bson:"acceptsEmergency" json:"acceptsEmergency"`
	ConsultationFee        int64               `bson:"consultationFee" json:"consultationFee"`
	CompletedConsultations int                 `bson:"completedConsultations" json:"completedConsultations"`
	CreatedAt              time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ProfessionalStatusUpdate changes presence flags; nil fields are left alone.
type ProfessionalStatusUpdate struct {
	Online           *bool `json:"online,omitempty"`
	AcceptsEmergency *bool `json:"acceptsEmergency,omitempty"`
}
