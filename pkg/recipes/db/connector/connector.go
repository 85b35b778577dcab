package connector

import (
	"fmt"

	"github.com/bitebliss/bitebliss-engine/pkg/internal/postgres"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/config"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func New(cfg config.Postgres, logger *zap.Logger) (*Database, error) {
	pcfg := postgres.Config{
		Host:    cfg.Host,
		Port:    cfg.Port,
		User:    cfg.Username,
		Passwd:  cfg.Password,
		DB:      cfg.DB,
		SSLMode: cfg.SSLMode,
	}
	pcfg.Connection.MaxOpen = cfg.MaxOpenConns
	pcfg.Connection.MaxIdle = cfg.MaxIdleConns
	pcfg.Connection.MaxLifetime = cfg.ConnMaxLifetime

	orm, err := postgres.NewClient(&pcfg, logger)
	if err != nil {
		return nil, fmt.Errorf("new postgres client: %w", err)
	}

	return &Database{db: orm}, nil
}

// NewWithOrm wraps an already opened connection.
func NewWithOrm(orm *gorm.DB) *Database {
	return &Database{db: orm}
}

func (s *Database) Conn() *gorm.DB {
	return s.db
}

func (s *Database) Initialize() error {
	return s.db.AutoMigrate(
		&model.User{},
		&model.SubscriptionPlan{},
		&model.UserSubscription{},
		&model.Category{},
		&model.Recipe{},
	)
}
