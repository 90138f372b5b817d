package callsession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telecare/utils"

	"go.uber.org/zap"
)

// ErrSessionJoinTimeout is returned once every join attempt saw a
// still-propagating session.
var ErrSessionJoinTimeout = errors.New("call session did not become joinable in time")

// CallBridge creates provider sessions and joins them, tolerating the
// provider's propagation delay.
type CallBridge interface {
	CreateSession(ctx context.Context, req CreateCallRequest) (string, error)
	JoinSession(ctx context.Context, sessionID string) (*Handle, error)
}

type DefaultCallBridge struct {
	provider    Provider
	maxAttempts int
	retryDelay  time.Duration
	metrics     *utils.BookingMetrics
	logger      *zap.Logger
}

func NewDefaultCallBridge(provider Provider, maxAttempts int, retryDelay time.Duration, metrics *utils.BookingMetrics, logger *zap.Logger) *DefaultCallBridge {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &DefaultCallBridge{
		provider:    provider,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		metrics:     metrics,
		logger:      logger,
	}
}

func (b *DefaultCallBridge) CreateSession(ctx context.Context, req CreateCallRequest) (string, error) {
	id, err := b.provider.CreateCall(ctx, req)
	if err != nil {
		return "", err
	}
	b.logger.Info("Call session created", zap.String("bookingID", req.BookingID), zap.String("sessionID", id))
	return id, nil
}

// JoinSession retries only ErrSessionNotFound, waiting retryDelay between
// attempts. The wait ends early when ctx is done.
func (b *DefaultCallBridge) JoinSession(ctx context.Context, sessionID string) (*Handle, error) {
	started := time.Now()
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		handle, err := b.provider.Join(ctx, sessionID)
		if err == nil {
			b.metrics.ObserveJoinAttempt("ok")
			b.metrics.ObserveJoinLatency(time.Since(started).Seconds())
			return handle, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			b.metrics.ObserveJoinAttempt("error")
			return nil, fmt.Errorf("join session %s: %w", sessionID, err)
		}
		b.metrics.ObserveJoinAttempt("not_found")
		b.logger.Debug("Call session not joinable yet",
			zap.String("sessionID", sessionID), zap.Int("attempt", attempt))

		if attempt == b.maxAttempts {
			break
		}
		timer := time.NewTimer(b.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, ErrSessionJoinTimeout
}
