package repo

import (
	"context"
	"errors"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/connector"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"gorm.io/gorm"
)

type CategoryRepo interface {
	Create(ctx context.Context, m *model.Category) error
	List(ctx context.Context) ([]model.Category, error)
	// FindByName matches names containing the given text, case-insensitively.
	FindByName(ctx context.Context, name string) (*model.Category, error)
}

type CategoryRepoImpl struct {
	db *connector.Database
}

func NewCategoryRepo(db *connector.Database) CategoryRepo {
	return &CategoryRepoImpl{
		db: db,
	}
}

func (r *CategoryRepoImpl) Create(ctx context.Context, m *model.Category) error {
	return r.db.Conn().WithContext(ctx).Create(m).Error
}

func (r *CategoryRepoImpl) List(ctx context.Context) ([]model.Category, error) {
	var ms []model.Category
	tx := r.db.Conn().WithContext(ctx).Model(&model.Category{}).Order("name asc").Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return ms, nil
}

func (r *CategoryRepoImpl) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var m model.Category
	tx := r.db.Conn().WithContext(ctx).Model(&model.Category{}).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(name)).
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
