package entitlement

import (
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
)

// State is the lifecycle state of a subscription record. It is one of Active,
// Canceled, PastDue or None.
type State interface {
	isState()
}

type Active struct {
	Plan              model.SubscriptionPlan
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
}

type Canceled struct {
	At *time.Time
}

type PastDue struct{}

type None struct{}

func (Active) isState()   {}
func (Canceled) isState() {}
func (PastDue) isState()  {}
func (None) isState()     {}

// StateOf maps a stored record to its state. An active record without a plan
// grants nothing and maps to None, as do unknown provider statuses.
func StateOf(sub *model.UserSubscription) State {
	if sub == nil {
		return None{}
	}

	switch sub.Status {
	case model.SubscriptionStatusActive:
		if sub.Plan == nil {
			return None{}
		}
		return Active{
			Plan:              *sub.Plan,
			PeriodStart:       sub.CurrentPeriodStart,
			PeriodEnd:         sub.CurrentPeriodEnd,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}
	case model.SubscriptionStatusCanceled:
		return Canceled{At: sub.CanceledAt}
	case model.SubscriptionStatusPastDue:
		return PastDue{}
	default:
		return None{}
	}
}

// TierOf is the tier granted by a state.
func TierOf(s State) Tier {
	if a, ok := s.(Active); ok {
		return Tier(a.Plan.Tier)
	}
	return TierFree
}
