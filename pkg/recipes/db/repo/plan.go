package repo

import (
	"context"
	"errors"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/connector"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"gorm.io/gorm"
)

// ErrActiveTierExists is returned when creating an active plan for a tier
// that already has one.
var ErrActiveTierExists = errors.New("an active plan already exists for this tier")

type PlanRepo interface {
	Create(ctx context.Context, m *model.SubscriptionPlan) error
	Get(ctx context.Context, id uint) (*model.SubscriptionPlan, error)
	GetByTier(ctx context.Context, tier int) (*model.SubscriptionPlan, error)
	GetByPriceID(ctx context.Context, priceID string) (*model.SubscriptionPlan, error)
	List(ctx context.Context) ([]model.SubscriptionPlan, error)
	Count(ctx context.Context) (int64, error)
}

type PlanRepoImpl struct {
	db *connector.Database
}

func NewPlanRepo(db *connector.Database) PlanRepo {
	return &PlanRepoImpl{
		db: db,
	}
}

func (r *PlanRepoImpl) Create(ctx context.Context, m *model.SubscriptionPlan) error {
	return r.db.Conn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.IsActive {
			var c int64
			err := tx.Model(&model.SubscriptionPlan{}).
				Where("tier = ? AND is_active = ?", m.Tier, true).
				Count(&c).Error
			if err != nil {
				return err
			}
			if c > 0 {
				return ErrActiveTierExists
			}
		}
		err := tx.Create(m).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrActiveTierExists
		}
		return err
	})
}

func (r *PlanRepoImpl) Get(ctx context.Context, id uint) (*model.SubscriptionPlan, error) {
	var m model.SubscriptionPlan
	tx := r.db.Conn().WithContext(ctx).Model(&model.SubscriptionPlan{}).Where("id = ?", id).First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return &m, nil
}

// GetByTier returns the current active plan of the tier.
func (r *PlanRepoImpl) GetByTier(ctx context.Context, tier int) (*model.SubscriptionPlan, error) {
	var m model.SubscriptionPlan
	tx := r.db.Conn().WithContext(ctx).Model(&model.SubscriptionPlan{}).
		Where("tier = ? AND is_active = ?", tier, true).
		Order("id asc").
		First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return &m, nil
}

// GetByPriceID matches the price against both the monthly and the yearly price id.
func (r *PlanRepoImpl) GetByPriceID(ctx context.Context, priceID string) (*model.SubscriptionPlan, error) {
	var m model.SubscriptionPlan
	tx := r.db.Conn().WithContext(ctx).Model(&model.SubscriptionPlan{}).
		Where("stripe_price_id = ? OR stripe_yearly_price_id = ?", priceID, priceID).
		Order("id asc").
		First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return &m, nil
}

func (r *PlanRepoImpl) List(ctx context.Context) ([]model.SubscriptionPlan, error) {
	var ms []model.SubscriptionPlan
	tx := r.db.Conn().WithContext(ctx).Model(&model.SubscriptionPlan{}).
		Where("is_active = ?", true).
		Order("tier asc").
		Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return ms, nil
}

func (r *PlanRepoImpl) Count(ctx context.Context) (int64, error) {
	var c int64
	tx := r.db.Conn().WithContext(ctx).Model(&model.SubscriptionPlan{}).Count(&c)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return c, nil
}
