package entitlement

import (
	"context"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"go.uber.org/zap"
)

type SubscriptionStore interface {
	GetActiveByUserID(ctx context.Context, userID uint) (*model.UserSubscription, error)
}

// Entitlement is the tier and subscription attached to a request.
type Entitlement struct {
	Tier         Tier
	Subscription *model.UserSubscription
}

func (e Entitlement) State() State {
	return StateOf(e.Subscription)
}

var anonymous = Entitlement{Tier: TierFree}

type Resolver struct {
	logger *zap.Logger
	subs   SubscriptionStore
}

func NewResolver(logger *zap.Logger, subs SubscriptionStore) *Resolver {
	return &Resolver{
		logger: logger.Named("entitlement"),
		subs:   subs,
	}
}

// Resolve never fails: store errors degrade the caller to the free tier.
func (r *Resolver) Resolve(ctx context.Context, userID *uint) Entitlement {
	if userID == nil {
		return anonymous
	}

	sub, err := r.subs.GetActiveByUserID(ctx, *userID)
	if err != nil {
		r.logger.Error("failed to resolve subscription, falling back to free tier",
			zap.Uint("user_id", *userID),
			zap.Error(err))
		return anonymous
	}

	state := StateOf(sub)
	if _, ok := state.(Active); !ok {
		return anonymous
	}

	return Entitlement{
		Tier:         TierOf(state),
		Subscription: sub,
	}
}
