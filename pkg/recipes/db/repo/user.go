package repo

import (
	"context"
	"errors"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/connector"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"gorm.io/gorm"
)

type UserRepo interface {
	Create(ctx context.Context, m *model.User) error
	Get(ctx context.Context, id uint) (*model.User, error)
	// LinkCustomer stores the customer id unless the user already has one.
	LinkCustomer(ctx context.Context, id uint, customerID string) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

type UserRepoImpl struct {
	db *connector.Database
}

func NewUserRepo(db *connector.Database) UserRepo {
	return &UserRepoImpl{
		db: db,
	}
}

func (r *UserRepoImpl) Create(ctx context.Context, m *model.User) error {
	return r.db.Conn().WithContext(ctx).Create(m).Error
}

func (r *UserRepoImpl) Get(ctx context.Context, id uint) (*model.User, error) {
	var m model.User
	tx := r.db.Conn().WithContext(ctx).Model(&model.User{}).Where("id = ?", id).First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return &m, nil
}

func (r *UserRepoImpl) LinkCustomer(ctx context.Context, id uint, customerID string) (bool, error) {
	tx := r.db.Conn().WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND (stripe_customer_id IS NULL OR stripe_customer_id = '')", id).
		Update("stripe_customer_id", customerID)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *UserRepoImpl) Count(ctx context.Context) (int64, error) {
	var c int64
	tx := r.db.Conn().WithContext(ctx).Model(&model.User{}).Count(&c)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return c, nil
}

func (r *UserRepoImpl) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var c int64
	tx := r.db.Conn().WithContext(ctx).Model(&model.User{}).Where("created_at >= ?", since).Count(&c)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return c, nil
}
