package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/bitebliss/bitebliss-engine/pkg/internal/api"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/connector"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"gorm.io/gorm"
)

type RecipeFilter struct {
	IsPremium      *bool
	Slug           string
	CategorySlug   string
	CategoryName   string
	Query          string
	MaxCookingTime *int
}

type CookingTimeRange struct {
	Min *int
	Max *int
}

type CategoryCount struct {
	Name  string
	Count int64
}

type RecipeRepo interface {
	Create(ctx context.Context, m *model.Recipe) error
	// GetPublished looks a published recipe up by document id or slug.
	GetPublished(ctx context.Context, idOrSlug string) (*model.Recipe, error)
	// GetAny includes drafts.
	GetAny(ctx context.Context, documentID string) (*model.Recipe, error)
	List(ctx context.Context, f RecipeFilter, page api.Page) ([]model.Recipe, int64, error)
	IncrementViews(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	CookingTimeRange(ctx context.Context) (CookingTimeRange, error)
	Count(ctx context.Context, isPremium *bool) (int64, error)
	CountByCategory(ctx context.Context) ([]CategoryCount, error)
	TopViewed(ctx context.Context, limit int) ([]model.Recipe, error)
}

type RecipeRepoImpl struct {
	db *connector.Database
}

func NewRecipeRepo(db *connector.Database) RecipeRepo {
	return &RecipeRepoImpl{
		db: db,
	}
}

func (r *RecipeRepoImpl) Create(ctx context.Context, m *model.Recipe) error {
	return r.db.Conn().WithContext(ctx).Create(m).Error
}

func (r *RecipeRepoImpl) GetPublished(ctx context.Context, idOrSlug string) (*model.Recipe, error) {
	var m model.Recipe
	tx := r.db.Conn().WithContext(ctx).Model(&model.Recipe{}).
		Preload("Category").
		Where("published_at IS NOT NULL").
		Where("(document_id = ? OR slug = ?)", idOrSlug, idOrSlug).
		First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return &m, nil
}

func (r *RecipeRepoImpl) GetAny(ctx context.Context, documentID string) (*model.Recipe, error) {
	var m model.Recipe
	tx := r.db.Conn().WithContext(ctx).Model(&model.Recipe{}).
		Preload("Category").
		Where("document_id = ?", documentID).
		First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return &m, nil
}

func (r *RecipeRepoImpl) List(ctx context.Context, f RecipeFilter, page api.Page) ([]model.Recipe, int64, error) {
	filtered := func() *gorm.DB {
		tx := r.db.Conn().WithContext(ctx).Model(&model.Recipe{}).
			Joins("LEFT JOIN categories ON categories.id = recipes.category_id").
			Where("recipes.published_at IS NOT NULL")
		if f.IsPremium != nil {
			tx = tx.Where("recipes.is_premium = ?", *f.IsPremium)
		}
		if f.Slug != "" {
			tx = tx.Where("recipes.slug = ?", f.Slug)
		}
		if f.CategorySlug != "" {
			tx = tx.Where("categories.slug = ?", f.CategorySlug)
		}
		if f.CategoryName != "" {
			tx = tx.Where("LOWER(categories.name) = ?", strings.ToLower(f.CategoryName))
		}
		if q := strings.TrimSpace(f.Query); q != "" {
			like := containsPattern(q)
			tx = tx.Where(`(LOWER(recipes.title) LIKE ? ESCAPE '\' OR LOWER(recipes.description) LIKE ? ESCAPE '\')`, like, like)
		}
		if f.MaxCookingTime != nil {
			tx = tx.Where("recipes.cooking_time <= ?", *f.MaxCookingTime)
		}
		return tx
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []model.Recipe
	tx := filtered().
		Preload("Category").
		Order("recipes.created_at desc").
		Order("recipes.id desc").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&ms)
	if tx.Error != nil {
		return nil, 0, tx.Error
	}
	return ms, total, nil
}

func (r *RecipeRepoImpl) IncrementViews(ctx context.Context, id uint) error {
	return r.db.Conn().WithContext(ctx).Model(&model.Recipe{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

func (r *RecipeRepoImpl) SlugExists(ctx context.Context, slug string) (bool, error) {
	var c int64
	tx := r.db.Conn().WithContext(ctx).Model(&model.Recipe{}).Where("slug = ?", slug).Count(&c)
	if tx.Error != nil {
		return false, tx.Error
	}
	return c > 0, nil
}

func (r *RecipeRepoImpl) CookingTimeRange(ctx context.Context) (CookingTimeRange, error) {
	var res CookingTimeRange
	tx := r.db.Conn().WithContext(ctx).Model(&model.Recipe{}).
		Select("MIN(cooking_time) AS min, MAX(cooking_time) AS max").
		Where("published_at IS NOT NULL").
		Scan(&res)
	if tx.Error != nil {
		return CookingTimeRange{}, tx.Error
	}
	return res, nil
}

func (r *RecipeRepoImpl) Count(ctx context.Context, isPremium *bool) (int64, error) {
	var c int64
	tx := r.db.Conn().WithContext(ctx).Model(&model.Recipe{})
	if isPremium != nil {
		tx = tx.Where("is_premium = ?", *isPremium)
	}
	if err := tx.Count(&c).Error; err != nil {
		return 0, err
	}
	return c, nil
}

func (r *RecipeRepoImpl) CountByCategory(ctx context.Context) ([]CategoryCount, error) {
	var res []CategoryCount
	tx := r.db.Conn().WithContext(ctx).Model(&model.Category{}).
		Select("categories.name AS name, COUNT(recipes.id) AS count").
		Joins("LEFT JOIN recipes ON recipes.category_id = categories.id").
		Group("categories.id, categories.name").
		Order("categories.name asc").
		Scan(&res)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return res, nil
}

func (r *RecipeRepoImpl) TopViewed(ctx context.Context, limit int) ([]model.Recipe, error) {
	var ms []model.Recipe
	tx := r.db.Conn().WithContext(ctx).Model(&model.Recipe{}).
		Order("view_count desc").
		Order("id asc").
		Limit(limit).
		Find(&ms)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return ms, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive LIKE pattern matching text
// anywhere. Callers pair it with ESCAPE '\' so wildcards in text stay literal.
func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
}
