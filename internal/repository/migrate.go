package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the booking schema. Both Postgres and SQLite support
// partial indexes, which back the one-active-slot-per-hour rule.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&customerModel{},
		&bookingModel{},
		&slotModel{},
		&extraChargeModel{},
		&paymentModel{},
		&settingsModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON booking_slots (slot_date, slot_hour) WHERE active",
		activeSlotIndex,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", activeSlotIndex, err)
	}
	return nil
}
