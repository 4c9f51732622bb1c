package db

import (
	"errors"

	"github.com/terraincognita07/lua/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MetaRepository struct {
	database *gorm.DB
}

func NewMetaRepository(database *gorm.DB) *MetaRepository {
	return &MetaRepository{database: database}
}

func (repo *MetaRepository) Get(key string) (string, bool, error) {
	var entry models.AppMeta
	err := repo.database.Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (repo *MetaRepository) Set(key string, value string) error {
	return upsertMeta(repo.database, key, value)
}

func upsertMeta(database *gorm.DB, key string, value string) error {
	return database.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.AppMeta{Key: key, Value: value}).Error
}
