package models

import "time"

// BookingStatus is the lifecycle state of a consultation booking.
type BookingStatus string

const (
	StatusPendingConfirmation BookingStatus = "pending_confirmation"
	StatusEmergencyPending    BookingStatus = "emergency_pending"
	StatusConfirmed           BookingStatus = "confirmed"
	StatusEmergencyConfirmed  BookingStatus = "emergency_confirmed"
	StatusReady               BookingStatus = "ready"
	StatusInProgress          BookingStatus = "in_progress"
	StatusCompleted           BookingStatus = "completed"
	StatusCancelled           BookingStatus = "cancelled"
	StatusRejected            BookingStatus = "rejected"
	StatusRejectedDuringCall  BookingStatus = "rejected_during_call"
)

// ActiveStatuses are the states that hold a slot and count against daily capacity.
var ActiveStatuses = []BookingStatus{
	StatusPendingConfirmation,
	StatusConfirmed,
	StatusReady,
	StatusInProgress,
	StatusEmergencyPending,
	StatusEmergencyConfirmed,
}

// QueuedStatuses are the states that carry a queue position.
var QueuedStatuses = []BookingStatus{StatusConfirmed, StatusReady}

// transitions lists the legal successors of every non-terminal state.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPendingConfirmation: {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusEmergencyPending:    {StatusEmergencyConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed:           {StatusReady, StatusInProgress, StatusCancelled},
	StatusReady:               {StatusInProgress, StatusCancelled},
	StatusEmergencyConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress:          {StatusInProgress, StatusCompleted, StatusRejectedDuringCall},
}

// scheduledOnly and emergencyOnly pin states to one booking path.
var (
	scheduledOnly = map[BookingStatus]bool{
		StatusPendingConfirmation: true,
		StatusConfirmed:           true,
		StatusReady:               true,
	}
	emergencyOnly = map[BookingStatus]bool{
		StatusEmergencyPending:   true,
		StatusEmergencyConfirmed: true,
	}
)

// IsActive reports whether s consumes slot and capacity.
func (s BookingStatus) IsActive() bool {
	for _, a := range ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no successors.
func (s BookingStatus) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

// IsQueued reports whether s carries a queue position.
func (s BookingStatus) IsQueued() bool {
	return s == StatusConfirmed || s == StatusReady
}

// Valid reports whether s is one of the known states.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPendingConfirmation, StatusEmergencyPending, StatusConfirmed, StatusEmergencyConfirmed,
		StatusReady, StatusInProgress, StatusCompleted, StatusCancelled, StatusRejected, StatusRejectedDuringCall:
		return true
	}
	return false
}

// PaymentStatus tracks the escrow state of a booking fee.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentHeld      PaymentStatus = "held"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Medium is the consultation channel chosen by the patient.
type Medium string

const (
	MediumVideo Medium = "video"
	MediumAudio Medium = "audio"
	MediumChat  Medium = "chat"
)

// Booking is a consultation between one patient and one professional.
type Booking struct {
	ID               string `bson:"id" json:"id"`
	ProfessionalID   string `bson:"professionalId" json:"professionalId"`
	ProfessionalName string `bson:"professionalName" json:"professionalName"`
	PatientID        string `bson:"patientId" json:"patientId"`
	PatientName      string `bson:"patientName" json:"patientName"`

	// Scheduled path only.
	Date        string    `bson:"date,omitempty" json:"date,omitempty"` // "2006-01-02"
	Time        string    `bson:"time,omitempty" json:"time,omitempty"` // "15:04"
	ScheduledAt time.Time `bson:"scheduledAt,omitempty" json:"scheduledAt,omitzero"`

	Medium             Medium        `bson:"medium" json:"medium"`
	Reason             string        `bson:"reason,omitempty" json:"reason,omitempty"`
	Status             BookingStatus `bson:"status" json:"status"`
	Fee                int64         `bson:"fee" json:"fee"`
	QueuePosition      int           `bson:"queuePosition" json:"queuePosition"`
	PaymentStatus      PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	PaymentReview      bool          `bson:"paymentReview,omitempty" json:"paymentReview,omitempty"`
	IsEmergency        bool          `bson:"isEmergency" json:"isEmergency"`
	EmergencyDeadline  *time.Time    `bson:"emergencyDeadline,omitempty" json:"emergencyDeadline,omitempty"`
	CallSessionID      string        `bson:"callSessionId,omitempty" json:"callSessionId,omitempty"`
	CanStartCall       bool          `bson:"canStartCall" json:"canStartCall"`
	CallStartedAt      *time.Time    `bson:"callStartedAt,omitempty" json:"callStartedAt,omitempty"`
	CallEndedAt        *time.Time    `bson:"callEndedAt,omitempty" json:"callEndedAt,omitempty"`
	SessionExpiresAt   *time.Time    `bson:"sessionExpiresAt,omitempty" json:"sessionExpiresAt,omitempty"`
	ReminderSent       bool          `bson:"reminderSent" json:"reminderSent"`
	Rated              bool          `bson:"rated" json:"rated"`
	CancellationReason string        `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`

	// SlotKey is set while a scheduled booking holds its dated slot and is
	// unset once it reaches a terminal state. A unique partial index on it
	// keeps a label from being claimed twice.
	SlotKey string `bson:"slotKey,omitempty" json:"-"`
	// PairKey is patient|professional while a scheduled booking is active.
	PairKey string `bson:"pairKey,omitempty" json:"-"`
	// EmergencyKey is the patient id while an emergency is active.
	EmergencyKey string `bson:"emergencyKey,omitempty" json:"-"`

	Version   int       `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CanTransitionTo reports whether the checked transition table and the
// booking's path both allow moving to next.
func (b *Booking) CanTransitionTo(next BookingStatus) bool {
	if b.IsEmergency && scheduledOnly[next] {
		return false
	}
	if !b.IsEmergency && emergencyOnly[next] {
		return false
	}
	for _, s := range transitions[b.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// ReleaseHolds clears the uniqueness keys once a booking is terminal.
func (b *Booking) ReleaseHolds() {
	b.SlotKey = ""
	b.PairKey = ""
	b.EmergencyKey = ""
}

// Joinable reports whether the patient may enter the call: the session has
// been created and has finished propagating.
func (b *Booking) Joinable() bool {
	return b.Status == StatusInProgress && b.CanStartCall && b.CallSessionID != ""
}

// SlotHoldKey builds the value stored in SlotKey.
func SlotHoldKey(professionalID, date, label string) string {
	return professionalID + "|" + date + "|" + label
}

// PairHoldKey builds the value stored in PairKey.
func PairHoldKey(patientID, professionalID string) string {
	return patientID + "|" + professionalID
}

// CapacityKey identifies a professional's daily slot pool.
func CapacityKey(professionalID, date string) string {
	return professionalID + "|" + date
}
