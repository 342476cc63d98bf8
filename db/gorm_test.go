package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, gormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel(""))
	assert.Equal(t, gormlogger.Error, gormLogLevel("error"))
}

func TestAutoMigrateWithoutConnection(t *testing.T) {
	saved := GormDB
	GormDB = nil
	defer func() { GormDB = saved }()

	assert.Error(t, AutoMigrateModels())
	assert.NoError(t, CloseGormDB())
}
