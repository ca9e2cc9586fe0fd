// Package settings provides database operations for runtime settings such
// as the loan period.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	days, err := repo.Get(entities.SettingKeyLoanPeriodDays)
package settings

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/checkoutdesk/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository. db may be a transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the value stored under key, or "" when the key is unset.
func (r *Repository) Get(key string) (string, error) {
	var found []entities.Setting
	if err := r.db.Where("key = ?", key).Limit(1).Find(&found).Error; err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", nil
	}
	return found[0].Value, nil
}

// Put creates or updates a setting.
func (r *Repository) Put(key, value string) error {
	setting := entities.Setting{Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// All returns every setting as a key/value map.
func (r *Repository) All() (map[string]string, error) {
	var rows []entities.Setting
	if err := r.db.Order("key").Find(&rows).Error; err != nil {
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}
