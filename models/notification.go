package models

import "time"

// Push priorities understood by the gateway.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// PushPayload is a single push notification.
type PushPayload struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

// ReminderPayload is the body of a delayed reminder task.
type ReminderPayload struct {
	UserID    string      `json:"userId"`
	BookingID string      `json:"bookingId"`
	FireAt    time.Time   `json:"fireAt"`
	Push      PushPayload `json:"push"`
}

// PushToken maps a user to the device token used for delivery.
type PushToken struct {
	UserID    string    `bson:"userId" json:"userId"`
	Token     string    `bson:"token" json:"token"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
