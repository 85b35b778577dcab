// Package dbtest opens an in-memory database with the service schema for tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/connector"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func New(t *testing.T) *connector.Database {
	t.Helper()

	orm, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := orm.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	db := connector.NewWithOrm(orm)
	require.NoError(t, db.Initialize(), "migrate")
	return db
}
