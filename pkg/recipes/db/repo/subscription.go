package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/internal/api"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/connector"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// staleGuard keeps an older provider event from overwriting a newer one.
const staleGuard = "(last_event_at IS NULL OR last_event_at <= ?)"

// checkoutGuard applies a checkout only when it is newer than the record, or
// carries a different provider subscription at the same instant. A redelivery
// of the applied checkout changes nothing.
const checkoutGuard = "(user_subscriptions.last_event_at IS NULL OR excluded.last_event_at IS NULL" +
	" OR user_subscriptions.last_event_at < excluded.last_event_at" +
	" OR (user_subscriptions.last_event_at = excluded.last_event_at" +
	" AND COALESCE(user_subscriptions.stripe_subscription_id, '') <> COALESCE(excluded.stripe_subscription_id, '')))"

type ProviderUpdate struct {
	SubscriptionID    string
	Status            model.SubscriptionStatus
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
	EventAt           time.Time
}

type SubscriberFilter struct {
	Search string
	Tier   *int
	Status string
	Page   api.Page
}

type SubscriptionRepo interface {
	Get(ctx context.Context, id uint) (*model.UserSubscription, error)
	GetByUserID(ctx context.Context, userID uint) (*model.UserSubscription, error)
	GetActiveByUserID(ctx context.Context, userID uint) (*model.UserSubscription, error)
	// UpsertActive creates or replaces the record of m.UserID. It reports false
	// when a newer event has already been applied to the record.
	UpsertActive(ctx context.Context, m *model.UserSubscription) (bool, error)
	Grant(ctx context.Context, userID, planID uint) error
	ApplyProviderUpdate(ctx context.Context, u ProviderUpdate) (bool, error)
	MarkCanceled(ctx context.Context, subscriptionID string, at, eventAt time.Time) (bool, error)
	MarkPastDue(ctx context.Context, subscriptionID string, eventAt time.Time) (bool, error)
	SetCancelAtPeriodEnd(ctx context.Context, userID uint, cancel bool) error
	Revoke(ctx context.Context, id uint, at time.Time) (bool, error)
	List(ctx context.Context, f SubscriberFilter) ([]model.UserSubscription, int64, error)
	ListAll(ctx context.Context) ([]model.UserSubscription, error)
}

type SubscriptionRepoImpl struct {
	db *connector.Database
}

func NewSubscriptionRepo(db *connector.Database) SubscriptionRepo {
	return &SubscriptionRepoImpl{
		db: db,
	}
}

func (r *SubscriptionRepoImpl) first(tx *gorm.DB) (*model.UserSubscription, error) {
	var m model.UserSubscription
	tx = tx.First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return &m, nil
}

func (r *SubscriptionRepoImpl) Get(ctx context.Context, id uint) (*model.UserSubscription, error) {
	return r.first(r.db.Conn().WithContext(ctx).Model(&model.UserSubscription{}).
		Preload("User").
		Preload("Plan").
		Where("id = ?", id))
}

func (r *SubscriptionRepoImpl) GetByUserID(ctx context.Context, userID uint) (*model.UserSubscription, error) {
	return r.first(r.db.Conn().WithContext(ctx).Model(&model.UserSubscription{}).
		Preload("Plan").
		Where("user_id = ?", userID))
}

func (r *SubscriptionRepoImpl) GetActiveByUserID(ctx context.Context, userID uint) (*model.UserSubscription, error) {
	return r.first(r.db.Conn().WithContext(ctx).Model(&model.UserSubscription{}).
		Preload("Plan").
		Where("user_id = ? AND status = ?", userID, model.SubscriptionStatusActive))
}

func (r *SubscriptionRepoImpl) UpsertActive(ctx context.Context, m *model.UserSubscription) (bool, error) {
	m.Status = model.SubscriptionStatusActive
	m.CanceledAt = nil

	tx := r.db.Conn().WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id",
			"status",
			"stripe_customer_id",
			"stripe_subscription_id",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"last_event_at",
			"updated_at",
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: checkoutGuard},
		}},
	}).Create(m)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Grant activates the plan for the user without a billing relationship. Any
// previous provider subscription is detached, so its later events no longer
// touch the record, and the grant time becomes the stale guard for replays.
func (r *SubscriptionRepoImpl) Grant(ctx context.Context, userID, planID uint) error {
	grantedAt := time.Now().UTC()
	m := model.UserSubscription{
		UserID:      userID,
		PlanID:      &planID,
		Status:      model.SubscriptionStatusActive,
		LastEventAt: &grantedAt,
	}
	return r.db.Conn().WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id",
			"status",
			"stripe_subscription_id",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"last_event_at",
			"updated_at",
		}),
	}).Create(&m).Error
}

func (r *SubscriptionRepoImpl) ApplyProviderUpdate(ctx context.Context, u ProviderUpdate) (bool, error) {
	values := map[string]interface{}{
		"status":               u.Status,
		"current_period_start": u.PeriodStart,
		"current_period_end":   u.PeriodEnd,
		"cancel_at_period_end": u.CancelAtPeriodEnd,
		"last_event_at":        u.EventAt,
	}
	if u.Status == model.SubscriptionStatusCanceled {
		values["canceled_at"] = gorm.Expr("COALESCE(canceled_at, ?)", u.EventAt)
	}

	tx := r.db.Conn().WithContext(ctx).Model(&model.UserSubscription{}).
		Where("stripe_subscription_id = ?", u.SubscriptionID).
		Where(staleGuard, u.EventAt).
		Updates(values)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// MarkCanceled keeps the first cancellation time so redelivered events leave the record unchanged.
func (r *SubscriptionRepoImpl) MarkCanceled(ctx context.Context, subscriptionID string, at, eventAt time.Time) (bool, error) {
	tx := r.db.Conn().WithContext(ctx).Model(&model.UserSubscription{}).
		Where("stripe_subscription_id = ?", subscriptionID).
		Where(staleGuard, eventAt).
		Updates(map[string]interface{}{
			"status":        model.SubscriptionStatusCanceled,
			"canceled_at":   gorm.Expr("COALESCE(canceled_at, ?)", at),
			"last_event_at": eventAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// MarkPastDue only moves records that are currently active.
func (r *SubscriptionRepoImpl) MarkPastDue(ctx context.Context, subscriptionID string, eventAt time.Time) (bool, error) {
	tx := r.db.Conn().WithContext(ctx).Model(&model.UserSubscription{}).
		Where("stripe_subscription_id = ?", subscriptionID).
		Where("status IN ?", []model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusPastDue}).
		Where(staleGuard, eventAt).
		Updates(map[string]interface{}{
			"status":        model.SubscriptionStatusPastDue,
			"last_event_at": eventAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *SubscriptionRepoImpl) SetCancelAtPeriodEnd(ctx context.Context, userID uint, cancel bool) error {
	return r.db.Conn().WithContext(ctx).Model(&model.UserSubscription{}).
		Where("user_id = ?", userID).
		Update("cancel_at_period_end", cancel).Error
}

func (r *SubscriptionRepoImpl) Revoke(ctx context.Context, id uint, at time.Time) (bool, error) {
	tx := r.db.Conn().WithContext(ctx).Model(&model.UserSubscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.SubscriptionStatusCanceled,
			"canceled_at": at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *SubscriptionRepoImpl) List(ctx context.Context, f SubscriberFilter) ([]model.UserSubscription, int64, error) {
	filtered := func() *gorm.DB {
		tx := r.db.Conn().WithContext(ctx).Model(&model.UserSubscription{}).
			Joins("LEFT JOIN users ON users.id = user_subscriptions.user_id").
			Joins("LEFT JOIN subscription_plans ON subscription_plans.id = user_subscriptions.plan_id")
		if f.Status != "" {
			tx = tx.Where("user_subscriptions.status = ?", f.Status)
		}
		if f.Tier != nil {
			tx = tx.Where("subscription_plans.tier = ?", *f.Tier)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			like := containsPattern(s)
			tx = tx.Where(`(LOWER(users.email) LIKE ? ESCAPE '\' OR LOWER(users.username) LIKE ? ESCAPE '\')`, like, like)
		}
		return tx
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []model.UserSubscription
	tx := filtered().
		Preload("User").
		Preload("Plan").
		Order("user_subscriptions.created_at desc").
		Order("user_subscriptions.id desc").
		Offset(f.Page.Offset()).
		Limit(f.Page.Size).
		Find(&ms)
	if tx.Error != nil {
		return nil, 0, tx.Error
	}
	return ms, total, nil
}

func (r *SubscriptionRepoImpl) ListAll(ctx context.Context) ([]model.UserSubscription, error) {
	var ms []model.UserSubscription
	tx := r.db.Conn().WithContext(ctx).Model(&model.UserSubscription{}).Preload("Plan").Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return ms, nil
}
