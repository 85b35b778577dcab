// Package reconciler applies billing provider events to the local
// subscription records.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/billing"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/repo"
	"github.com/bitebliss/bitebliss-engine/pkg/utils"
	"go.uber.org/zap"
)

const notifyTimeout = 30 * time.Second

type Mailer interface {
	SubscriptionConfirmation(ctx context.Context, user model.User, plan model.SubscriptionPlan) error
	PaymentReceipt(ctx context.Context, user model.User, amountCents int64, plan model.SubscriptionPlan) error
}

type Reconciler struct {
	logger   *zap.Logger
	provider billing.Provider
	plans    repo.PlanRepo
	subs     repo.SubscriptionRepo
	users    repo.UserRepo
	mailer   Mailer
	now      func() time.Time

	notifications sync.WaitGroup
}

func New(logger *zap.Logger, provider billing.Provider, plans repo.PlanRepo, subs repo.SubscriptionRepo, users repo.UserRepo, mailer Mailer) *Reconciler {
	return &Reconciler{
		logger:   logger.Named("reconciler"),
		provider: provider,
		plans:    plans,
		subs:     subs,
		users:    users,
		mailer:   mailer,
		now:      time.Now,
	}
}

// Handle applies one event. A returned error means the event was not applied
// and the provider should redeliver it.
func (r *Reconciler) Handle(ctx context.Context, ev billing.Event) error {
	var (
		outcome string
		err     error
	)
	switch e := ev.(type) {
	case billing.CheckoutCompleted:
		outcome, err = r.checkoutCompleted(ctx, e)
	case billing.SubscriptionUpdated:
		outcome, err = r.subscriptionUpdated(ctx, e)
	case billing.SubscriptionDeleted:
		outcome, err = r.subscriptionDeleted(ctx, e)
	case billing.PaymentFailed:
		outcome, err = r.paymentFailed(ctx, e)
	default:
		r.logger.Info("unhandled event type",
			zap.String("event_id", ev.EventID()),
			zap.String("type", ev.EventType()))
		outcome = OutcomeIgnored
	}

	if err != nil {
		outcome = OutcomeFailed
		r.logger.Error("failed to apply event",
			zap.String("event_id", ev.EventID()),
			zap.String("type", ev.EventType()),
			zap.Error(err))
	}
	WebhookEventsCount.WithLabelValues(ev.EventType(), outcome).Inc()
	return err
}

// Wait blocks until all pending notifications are sent.
func (r *Reconciler) Wait() {
	r.notifications.Wait()
}

func (r *Reconciler) eventTime(ev billing.Event) time.Time {
	if t := ev.OccurredAt(); !t.IsZero() {
		return t.UTC()
	}
	return r.now().UTC()
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, e billing.CheckoutCompleted) (string, error) {
	logger := r.logger.With(
		zap.String("event_id", e.EventID()),
		zap.String("session_id", e.SessionID),
		zap.String("subscription_id", e.SubscriptionID),
		zap.Uint("user_id", e.UserID))

	if e.SubscriptionID == "" || e.UserID == 0 {
		logger.Warn("checkout session without subscription or user, skipping")
		return OutcomeIgnored, nil
	}

	sub, err := r.provider.GetSubscription(ctx, e.SubscriptionID)
	if err != nil {
		return "", err
	}

	plan, err := r.plans.GetByPriceID(ctx, sub.PriceID)
	if err != nil {
		return "", fmt.Errorf("find plan for price %s: %w", sub.PriceID, err)
	}
	if plan == nil {
		logger.Error("no plan found for price", zap.String("price_id", sub.PriceID))
		return OutcomeIgnored, nil
	}

	customerID := e.CustomerID
	if customerID == "" {
		customerID = sub.CustomerID
	}
	eventAt := r.eventTime(e)
	periodStart := sub.PeriodStart.UTC()
	periodEnd := sub.PeriodEnd.UTC()

	applied, err := r.subs.UpsertActive(ctx, &model.UserSubscription{
		UserID:               e.UserID,
		PlanID:               &plan.ID,
		StripeCustomerID:     utils.GetPointer(customerID),
		StripeSubscriptionID: utils.GetPointer(e.SubscriptionID),
		CurrentPeriodStart:   &periodStart,
		CurrentPeriodEnd:     &periodEnd,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		LastEventAt:          &eventAt,
	})
	if err != nil {
		return "", fmt.Errorf("activate subscription: %w", err)
	}
	if !applied {
		logger.Info("checkout already applied or superseded, skipping")
		return OutcomeNoop, nil
	}
	logger.Info("subscription activated", zap.String("plan", plan.Name))

	if customerID != "" {
		if _, err := r.users.LinkCustomer(ctx, e.UserID, customerID); err != nil {
			logger.Error("failed to link customer", zap.Error(err))
		}
	}

	r.notifyActivated(ctx, e.UserID, *plan, sub.UnitAmount)
	return OutcomeApplied, nil
}

func (r *Reconciler) notifyActivated(ctx context.Context, userID uint, plan model.SubscriptionPlan, amount int64) {
	ctx = context.WithoutCancel(ctx)
	utils.EnsureRunGoroutine(r.logger, &r.notifications, func() {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()

		logger := r.logger.With(zap.Uint("user_id", userID))
		user, err := r.users.Get(ctx, userID)
		if err != nil {
			logger.Error("failed to load user for notification", zap.Error(err))
			return
		}
		if user == nil {
			logger.Warn("user not found, skipping notification")
			return
		}

		if err := r.mailer.SubscriptionConfirmation(ctx, *user, plan); err != nil {
			logger.Error("failed to send subscription confirmation", zap.Error(err))
		}
		if err := r.mailer.PaymentReceipt(ctx, *user, amount, plan); err != nil {
			logger.Error("failed to send payment receipt", zap.Error(err))
		}
	})
}

func (r *Reconciler) subscriptionUpdated(ctx context.Context, e billing.SubscriptionUpdated) (string, error) {
	applied, err := r.subs.ApplyProviderUpdate(ctx, repo.ProviderUpdate{
		SubscriptionID:    e.SubscriptionID,
		Status:            model.SubscriptionStatus(e.Status),
		PeriodStart:       e.PeriodStart,
		PeriodEnd:         e.PeriodEnd,
		CancelAtPeriodEnd: e.CancelAtPeriodEnd,
		EventAt:           r.eventTime(e),
	})
	if err != nil {
		return "", fmt.Errorf("update subscription %s: %w", e.SubscriptionID, err)
	}
	return r.result(applied, e.SubscriptionID, "subscription updated"), nil
}

func (r *Reconciler) subscriptionDeleted(ctx context.Context, e billing.SubscriptionDeleted) (string, error) {
	applied, err := r.subs.MarkCanceled(ctx, e.SubscriptionID, r.now().UTC(), r.eventTime(e))
	if err != nil {
		return "", fmt.Errorf("cancel subscription %s: %w", e.SubscriptionID, err)
	}
	return r.result(applied, e.SubscriptionID, "subscription canceled"), nil
}

func (r *Reconciler) paymentFailed(ctx context.Context, e billing.PaymentFailed) (string, error) {
	if e.SubscriptionID == "" {
		return OutcomeIgnored, nil
	}
	applied, err := r.subs.MarkPastDue(ctx, e.SubscriptionID, r.eventTime(e))
	if err != nil {
		return "", fmt.Errorf("mark subscription %s past due: %w", e.SubscriptionID, err)
	}
	return r.result(applied, e.SubscriptionID, "payment failed"), nil
}

func (r *Reconciler) result(applied bool, subscriptionID, msg string) string {
	if !applied {
		r.logger.Info("no matching subscription to update",
			zap.String("subscription_id", subscriptionID))
		return OutcomeNoop
	}
	r.logger.Info(msg, zap.String("subscription_id", subscriptionID))
	return OutcomeApplied
}
