package models

// CreateBookingRequest books a dated slot with a professional.
type CreateBookingRequest struct {
	ProfessionalID string `json:"professionalId" binding:"required"`
	PatientID      string `json:"-"`
	PatientName    string `json:"patientName"`
	Date           string `json:"date" binding:"required"`
	Time           string `json:"time" binding:"required"`
	Medium         Medium `json:"medium"`
	Reason         string `json:"reason"`
	Fee            int64  `json:"fee"`
}

// CreateEmergencyRequest asks an online professional for an immediate consultation.
type CreateEmergencyRequest struct {
	ProfessionalID string `json:"professionalId" binding:"required"`
	PatientID      string `json:"-"`
	PatientName    string `json:"patientName"`
	Medium         Medium `json:"medium"`
	Reason         string `json:"reason"`
}

// ReasonRequest carries the free-text reason for a reject or cancel.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// JoinCallResponse is returned once the patient may enter the call.
type JoinCallResponse struct {
	BookingID string `json:"bookingId"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}
