package booking

import (
	"time"

	"telecare/config"
)

// RejectDuringCallPolicy decides what happens to held funds when a call is
// abandoned.
type RejectDuringCallPolicy string

const (
	// RefundOnRejectDuringCall returns the fee to the patient.
	RefundOnRejectDuringCall RejectDuringCallPolicy = "refund"
	// ManualOnRejectDuringCall keeps funds held and flags the booking for review.
	ManualOnRejectDuringCall RejectDuringCallPolicy = "manual"
)

// Policy holds the tunables of the booking lifecycle.
type Policy struct {
	EmergencyFee         int64
	EmergencyWindow      time.Duration
	SessionTTL           time.Duration
	CallPropagationDelay time.Duration
	ReadyBuffer          time.Duration
	ReminderWindow       time.Duration
	ReminderLead         time.Duration
	RejectDuringCall     RejectDuringCallPolicy
	Location             *time.Location
}

// PolicyFromConfig derives the booking policy from loaded configuration.
func PolicyFromConfig(cfg config.Config) Policy {
	p := Policy{
		EmergencyFee:         cfg.EmergencyFee,
		EmergencyWindow:      cfg.EmergencyWindow,
		SessionTTL:           cfg.SessionTTL,
		CallPropagationDelay: cfg.CallPropagationDelay,
		ReadyBuffer:          cfg.ReadyBuffer,
		ReminderWindow:       cfg.ReminderWindow,
		ReminderLead:         cfg.ReminderLead,
		RejectDuringCall:     RejectDuringCallPolicy(cfg.RejectDuringCallPolicy),
		Location:             cfg.Location(),
	}
	if p.RejectDuringCall != ManualOnRejectDuringCall {
		p.RejectDuringCall = RefundOnRejectDuringCall
	}
	return p
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		EmergencyFee:         10000,
		EmergencyWindow:      10 * time.Minute,
		SessionTTL:           30 * time.Minute,
		CallPropagationDelay: 3 * time.Second,
		ReadyBuffer:          15 * time.Minute,
		ReminderWindow:       20 * time.Minute,
		ReminderLead:         15 * time.Minute,
		RejectDuringCall:     RefundOnRejectDuringCall,
		Location:             time.UTC,
	}
}
