package repository

import (
	"context"

	"groundbooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const settingsRowID = 1

type SettingsRepository struct {
	store
}

func NewSettingsRepository(db *gorm.DB, opts Options) *SettingsRepository {
	return &SettingsRepository{store: newStore(db, opts)}
}

// Get returns the singleton row or domain.ErrNotFound when it was never seeded.
func (r *SettingsRepository) Get(ctx context.Context) (*domain.RateSettings, error) {
	var m settingsModel
	err := r.read(ctx, "settings_get", func(db *gorm.DB) error {
		return db.First(&m, settingsRowID).Error
	})
	if err != nil {
		return nil, err
	}
	return toDomainSettings(m), nil
}

// Save upserts the singleton row.
func (r *SettingsRepository) Save(ctx context.Context, s domain.RateSettings) error {
	m := settingsModel{
		ID:             settingsRowID,
		DayRate:        s.DayRate,
		NightRate:      s.NightRate,
		NightStartHour: s.NightStartHour,
		NightEndHour:   s.NightEndHour,
		UpdatedBy:      s.UpdatedBy,
		UpdatedAt:      s.UpdatedAt,
	}
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"day_rate", "night_rate", "night_start_hour", "night_end_hour", "updated_by", "updated_at"}),
		}).Create(&m).Error
	})
}
