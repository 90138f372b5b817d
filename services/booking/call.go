package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telecare/models"
	"telecare/services/callsession"

	"go.uber.org/zap"
)

// errNoChange aborts a transition whose predicate no longer holds.
var errNoChange = errors.New("booking already past this step")

func (s *DefaultBookingService) InitiateCall(ctx context.Context, bookingID, professionalID string) (*models.Booking, error) {
	b, err := s.transition(ctx, bookingID, func(ctx context.Context, b *models.Booking) (func(), error) {
		if b.ProfessionalID != professionalID {
			return nil, ErrUnauthorized
		}
		if err := moveTo(b, models.StatusInProgress); err != nil {
			return nil, err
		}
		sessionID, err := s.Bridge.CreateSession(ctx, callsession.CreateCallRequest{
			BookingID:        b.ID,
			ProfessionalID:   b.ProfessionalID,
			ProfessionalName: b.ProfessionalName,
			PatientID:        b.PatientID,
			PatientName:      b.PatientName,
			Medium:           string(b.Medium),
			TTLSeconds:       int(s.policy.SessionTTL / time.Second),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create call session: %w", err)
		}
		now := s.now()
		expires := now.Add(s.policy.SessionTTL)
		b.CallSessionID = sessionID
		b.CallStartedAt = &now
		b.SessionExpiresAt = &expires
		b.CallEndedAt = nil
		b.CanStartCall = false
		return nil, nil
	})
	s.observe("initiate_call", err)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Call initiated",
		zap.String("bookingID", b.ID), zap.String("sessionID", b.CallSessionID))
	s.recomputeQueue(ctx, b)
	s.armCallReady(b.ID, b.CallSessionID)
	return s.refreshed(ctx, b), nil
}

// armCallReady flips canStartCall once the new session has had time to
// propagate. A restart replaces the pending timer.
func (s *DefaultBookingService) armCallReady(bookingID, sessionID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	if t, ok := s.timers[bookingID]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.policy.CallPropagationDelay, func() {
		s.timersMu.Lock()
		if s.timers[bookingID] == timer {
			delete(s.timers, bookingID)
		}
		s.timersMu.Unlock()
		s.markCallReady(bookingID, sessionID)
	})
	s.timers[bookingID] = timer
}

func (s *DefaultBookingService) disarmCallReady(bookingID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[bookingID]; ok {
		t.Stop()
		delete(s.timers, bookingID)
	}
}

func (s *DefaultBookingService) markCallReady(bookingID, sessionID string) {
	ctx := s.bg
	b, err := s.transition(ctx, bookingID, func(ctx context.Context, b *models.Booking) (func(), error) {
		if b.Status != models.StatusInProgress || b.CallSessionID != sessionID || b.CanStartCall {
			return nil, errNoChange
		}
		b.CanStartCall = true
		return nil, nil
	})
	if errors.Is(err, errNoChange) || errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		s.Logger.Error("Failed to mark call joinable",
			zap.String("bookingID", bookingID), zap.String("sessionID", sessionID), zap.Error(err))
		return
	}
	s.notify(ctx, b.PatientID, models.PushPayload{
		Title:    "Your consultation is starting",
		Body:     fmt.Sprintf("%s is waiting for you", displayName(b.ProfessionalName, "Your professional")),
		Data:     bookingData(b),
		Priority: models.PriorityHigh,
	})
}

func (s *DefaultBookingService) JoinCall(ctx context.Context, bookingID, actorID string) (*models.JoinCallResponse, error) {
	resp, err := s.joinCall(ctx, bookingID, actorID)
	s.observe("join_call", err)
	return resp, err
}

func (s *DefaultBookingService) joinCall(ctx context.Context, bookingID, actorID string) (*models.JoinCallResponse, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isParty(b, actorID) {
		return nil, ErrUnauthorized
	}
	if !b.Joinable() {
		return nil, ErrCallNotReady
	}
	if b.SessionExpiresAt != nil && s.now().After(*b.SessionExpiresAt) {
		return nil, withDetail(ErrCallNotReady, "call session has expired", nil)
	}

	handle, err := s.Bridge.JoinSession(ctx, b.CallSessionID)
	if errors.Is(err, callsession.ErrSessionJoinTimeout) {
		return nil, withDetail(ErrSessionJoinTimeout, "", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to join call session: %w", err)
	}
	return &models.JoinCallResponse{BookingID: b.ID, SessionID: handle.SessionID, URL: handle.URL}, nil
}

func (s *DefaultBookingService) Complete(ctx context.Context, bookingID, actorID string) (*models.Booking, error) {
	b, err := s.transition(ctx, bookingID, func(ctx context.Context, b *models.Booking) (func(), error) {
		if !isParty(b, actorID) {
			return nil, ErrUnauthorized
		}
		if err := moveTo(b, models.StatusCompleted); err != nil {
			return nil, err
		}
		receipt, err := s.Escrow.Release(ctx, b)
		if err != nil {
			return nil, err
		}
		now := s.now()
		b.CallEndedAt = &now
		b.CanStartCall = false
		return s.voidOnFailure(b, receipt), nil
	})
	s.observe("complete", err)
	if err != nil {
		return nil, err
	}

	s.disarmCallReady(b.ID)
	s.Logger.Info("Booking completed",
		zap.String("bookingID", b.ID), zap.String("professionalID", b.ProfessionalID))

	if err := s.Professionals.IncrementCompleted(ctx, b.ProfessionalID); err != nil {
		s.Logger.Error("Failed to increment completed consultations",
			zap.String("professionalID", b.ProfessionalID), zap.Error(err))
	}
	s.recomputeQueue(ctx, b)
	s.notify(ctx, b.PatientID, models.PushPayload{
		Title: "Consultation completed",
		Body:  "Thank you. You can now rate your consultation.",
		Data:  bookingData(b),
	})
	return b, nil
}

func (s *DefaultBookingService) RejectDuringCall(ctx context.Context, bookingID, actorID string) (*models.Booking, error) {
	b, err := s.transition(ctx, bookingID, func(ctx context.Context, b *models.Booking) (func(), error) {
		if !isParty(b, actorID) {
			return nil, ErrUnauthorized
		}
		if err := moveTo(b, models.StatusRejectedDuringCall); err != nil {
			return nil, err
		}
		now := s.now()
		b.CallSessionID = ""
		b.CanStartCall = false
		b.CallEndedAt = &now

		if s.policy.RejectDuringCall == ManualOnRejectDuringCall {
			b.PaymentReview = b.PaymentStatus == models.PaymentHeld
			return nil, nil
		}
		receipt, err := s.Escrow.Refund(ctx, b)
		return s.undoable(b, receipt, err)
	})
	s.observe("reject_during_call", err)
	if err != nil {
		return nil, err
	}

	s.disarmCallReady(b.ID)
	s.Logger.Info("Call abandoned",
		zap.String("bookingID", b.ID),
		zap.String("actorID", actorID),
		zap.String("paymentStatus", string(b.PaymentStatus)),
		zap.Bool("paymentReview", b.PaymentReview))

	other := b.ProfessionalID
	if actorID == b.ProfessionalID {
		other = b.PatientID
	}
	s.notify(ctx, other, models.PushPayload{
		Title: "Call ended",
		Body:  "The other party left the consultation",
		Data:  bookingData(b),
	})
	return b, nil
}
