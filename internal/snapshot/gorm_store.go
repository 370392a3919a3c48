package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookmart/pkg/domain"
)

// SnapshotModel is the GORM row for one persisted mirror.
type SnapshotModel struct {
	Key       string         `gorm:"primaryKey"`
	Payload   datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

// GormStore implements Store using GORM + Postgres, for deployments that
// want snapshots to survive restarts without running Redis.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&SnapshotModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Save upserts one snapshot row.
func (s *GormStore) Save(key string, mirror domain.Mirror) error {
	payload, err := json.Marshal(mirror)
	if err != nil {
		return err
	}
	model := SnapshotModel{
		Key:       key,
		Payload:   datatypes.JSON(payload),
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&model).Error
}

// Load reads and decodes one snapshot row.
func (s *GormStore) Load(key string) (domain.Mirror, bool, error) {
	var model SnapshotModel
	if err := s.db.First(&model, "key = ?", key).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Mirror{}, false, nil
		}
		return domain.Mirror{}, false, err
	}
	var mirror domain.Mirror
	if err := json.Unmarshal(model.Payload, &mirror); err != nil {
		return domain.Mirror{}, false, err
	}
	return mirror, true, nil
}

// Delete removes one snapshot row; absent keys are a no-op.
func (s *GormStore) Delete(key string) error {
	return s.db.Delete(&SnapshotModel{}, "key = ?", key).Error
}
