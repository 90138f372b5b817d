package cron

import (
	"context"
	"fmt"
	"time"

	bookingRepo "telecare/database/repository/booking"
	"telecare/models"
	"telecare/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// leaderLockKey keeps a single instance sweeping at a time.
const leaderLockKey = "reconcile:leader"

// Sweeper advances one booking if its sweep predicate still holds.
type Sweeper interface {
	PromoteToReady(ctx context.Context, bookingID string, now time.Time) (bool, error)
	ExpireEmergency(ctx context.Context, bookingID string, now time.Time) (bool, error)
	SendReminder(ctx context.Context, bookingID string, now time.Time) (bool, error)
}

type ReconcilerConfig struct {
	Interval       time.Duration
	ReadyBuffer    time.Duration
	ReminderWindow time.Duration
}

// Reconciler runs the periodic booking sweeps. Candidates come from indexed
// queries; the sweeper re-checks each one under the booking's lock.
type Reconciler struct {
	bookings bookingRepo.BookingRepository
	sweeper  Sweeper
	locker   Locker
	cfg      ReconcilerConfig
	metrics  *utils.BookingMetrics
	logger   *zap.Logger
	now      func() time.Time

	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

// NewReconciler builds a reconciler. A nil locker runs every pass locally,
// which is only safe with a single instance.
func NewReconciler(bookings bookingRepo.BookingRepository, sweeper Sweeper, locker Locker, cfg ReconcilerConfig, metrics *utils.BookingMetrics, logger *zap.Logger) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Reconciler{
		bookings: bookings,
		sweeper:  sweeper,
		locker:   locker,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Reconciler) Start(ctx context.Context) error {
	r.runCtx, r.cancel = context.WithCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.cfg.Interval), func() { r.RunOnce(r.runCtx) }); err != nil {
		r.cancel()
		return fmt.Errorf("failed to schedule reconciler: %w", err)
	}
	c.Start()
	r.cron = c
	r.logger.Info("Reconciler started", zap.Duration("interval", r.cfg.Interval))
	return nil
}

// Stop cancels in-flight sweeps and waits for the running pass to return.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// RunOnce performs one pass of all sweeps if this instance is the leader.
// The lease is renewed before each sweep and during long sweeps; losing it
// ends the pass so two instances never sweep at once.
func (r *Reconciler) RunOnce(ctx context.Context) {
	var l *lease
	if r.locker != nil {
		ttl := 2 * r.cfg.Interval
		acquired, token, err := r.locker.TryLock(ctx, leaderLockKey, ttl)
		if err != nil {
			r.logger.Warn("Reconciler leader lock attempt failed", zap.Error(err))
			return
		}
		if !acquired {
			return
		}
		l = &lease{token: token, ttl: ttl, renewed: time.Now()}
		defer func() {
			if err := r.locker.Unlock(context.Background(), leaderLockKey, token); err != nil {
				r.logger.Warn("Reconciler leader lock release failed", zap.Error(err))
			}
		}()
	}

	now := r.now()
	if !r.sweep(ctx, l, "expire_emergency", now,
		func() ([]models.Booking, error) { return r.bookings.ListExpiredEmergencies(ctx, now) },
		r.sweeper.ExpireEmergency) {
		return
	}
	// Reminders go before promotion: a promoted booking is no longer confirmed.
	if !r.sweep(ctx, l, "send_reminder", now,
		func() ([]models.Booking, error) {
			return r.bookings.ListReminderDue(ctx, now, now.Add(r.cfg.ReminderWindow))
		},
		r.sweeper.SendReminder) {
		return
	}
	r.sweep(ctx, l, "promote_ready", now,
		func() ([]models.Booking, error) {
			return r.bookings.ListConfirmedStartingBetween(ctx, now, now.Add(r.cfg.ReadyBuffer))
		},
		r.sweeper.PromoteToReady)
}

// lease tracks the leader lock held by a running pass.
type lease struct {
	token   string
	ttl     time.Duration
	renewed time.Time
}

// renew extends the lease. force renews regardless of its age; otherwise it
// is renewed once a third of the TTL has passed. It reports false when the
// lock was lost.
func (r *Reconciler) renew(ctx context.Context, l *lease, force bool) bool {
	if l == nil {
		return true
	}
	if !force && time.Since(l.renewed) < l.ttl/3 {
		return true
	}
	if err := r.locker.Refresh(ctx, leaderLockKey, l.token, l.ttl); err != nil {
		r.logger.Warn("Reconciler lost the leader lock, ending pass", zap.Error(err))
		return false
	}
	l.renewed = time.Now()
	return true
}

// sweep applies one sweep to its candidates. It returns false when the pass
// must stop because the context ended or the lease was lost.
func (r *Reconciler) sweep(
	ctx context.Context,
	l *lease,
	name string,
	now time.Time,
	candidates func() ([]models.Booking, error),
	apply func(ctx context.Context, bookingID string, now time.Time) (bool, error),
) bool {
	if !r.renew(ctx, l, true) {
		return false
	}
	list, err := candidates()
	if err != nil {
		r.metrics.ObserveSweep(name, "query_error")
		r.logger.Error("Sweep query failed", zap.String("sweep", name), zap.Error(err))
		return true
	}

	for _, b := range list {
		if ctx.Err() != nil || !r.renew(ctx, l, false) {
			return false
		}
		changed, err := apply(ctx, b.ID, now)
		switch {
		case err != nil:
			r.metrics.ObserveSweep(name, "error")
			r.logger.Error("Sweep failed for booking",
				zap.String("sweep", name), zap.String("bookingID", b.ID), zap.Error(err))
		case changed:
			r.metrics.ObserveSweep(name, "applied")
		default:
			r.metrics.ObserveSweep(name, "skipped")
		}
	}
	return true
}
