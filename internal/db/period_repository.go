package db

import (
	"errors"
	"fmt"

	"github.com/terraincognita07/lua/internal/models"
	"gorm.io/gorm"
)

var ErrUnknownChangeAction = errors.New("unknown period change action")

type PeriodRepository struct {
	database *gorm.DB
}

func NewPeriodRepository(database *gorm.DB) *PeriodRepository {
	return &PeriodRepository{database: database}
}

func (repo *PeriodRepository) List() ([]models.Period, error) {
	periods := make([]models.Period, 0)
	if err := repo.database.Order("start_date ASC, id ASC").Find(&periods).Error; err != nil {
		return nil, err
	}
	return periods, nil
}

func (repo *PeriodRepository) FindByID(id uint) (models.Period, bool, error) {
	var period models.Period
	err := repo.database.First(&period, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Period{}, false, nil
	}
	if err != nil {
		return models.Period{}, false, err
	}
	return period, true, nil
}

func (repo *PeriodRepository) Create(period *models.Period) error {
	return repo.database.Create(period).Error
}

// Update rewrites both dates of an existing record, including a nil end.
func (repo *PeriodRepository) Update(period *models.Period) error {
	result := repo.database.Model(&models.Period{}).
		Where("id = ?", period.ID).
		Updates(map[string]any{"start_date": period.StartDate, "end_date": period.EndDate})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (repo *PeriodRepository) Delete(id uint) (bool, error) {
	result := repo.database.Delete(&models.Period{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ApplyChanges writes a reconciliation result in one transaction.
func (repo *PeriodRepository) ApplyChanges(changes []models.PeriodChange) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		for _, change := range changes {
			period := change.Period
			var err error
			switch change.Action {
			case models.ChangeAdd:
				period.ID = 0
				err = tx.Create(&period).Error
			case models.ChangeUpdate:
				err = NewPeriodRepository(tx).Update(&period)
			case models.ChangeDelete:
				err = tx.Delete(&models.Period{}, period.ID).Error
			default:
				err = fmt.Errorf("%w: %q", ErrUnknownChangeAction, change.Action)
			}
			if err != nil {
				return fmt.Errorf("%s period %d: %w", change.Action, period.ID, err)
			}
		}
		return nil
	})
}

// ReplaceAll swaps the whole period set and writes meta entries atomically.
// Incoming IDs are discarded.
func (repo *PeriodRepository) ReplaceAll(periods []models.Period, meta map[string]string) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM periods`).Error; err != nil {
			return fmt.Errorf("clear periods: %w", err)
		}
		if len(periods) > 0 {
			rows := make([]models.Period, 0, len(periods))
			for _, period := range periods {
				rows = append(rows, models.Period{StartDate: period.StartDate, EndDate: period.EndDate})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert periods: %w", err)
			}
		}
		for key, value := range meta {
			if err := upsertMeta(tx, key, value); err != nil {
				return fmt.Errorf("write meta %s: %w", key, err)
			}
		}
		return nil
	})
}

// Clear removes every period and all meta entries.
func (repo *PeriodRepository) Clear() error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM periods`).Error; err != nil {
			return fmt.Errorf("clear periods: %w", err)
		}
		if err := tx.Exec(`DELETE FROM app_meta`).Error; err != nil {
			return fmt.Errorf("clear meta: %w", err)
		}
		return nil
	})
}
