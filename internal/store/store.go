package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/outriggerhq/outrigger/internal/models"
	"github.com/outriggerhq/outrigger/internal/schedule"
)

// Store is the Postgres-backed entity store. The scheduler reads one
// snapshot per tick and writes only reconciliation deletes.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the scheduler's entity tables.
func Open(databaseURL string, debug bool) (*Store, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Team{},
		&models.Server{},
		&models.Application{},
		&models.Service{},
		&models.Database{},
		&models.ScheduledBackup{},
		&models.ScheduledTask{},
		&models.InstanceSettings{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing gorm handle.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// LoadSnapshot reads the full scheduling view in one pass. This is the one
// suspension point of a tick: any failure here aborts the tick without a
// partial schedule. Rows come back ordered by ID so rule emission is
// deterministic across replicas.
func (s *Store) LoadSnapshot(ctx context.Context) (*schedule.Snapshot, error) {
	db := s.db.WithContext(ctx)
	snap := &schedule.Snapshot{}

	if err := db.Order("id").Find(&snap.Servers).Error; err != nil {
		return nil, fmt.Errorf("load servers: %w", err)
	}
	if err := db.Order("id").Find(&snap.Teams).Error; err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	if err := db.Order("id").Find(&snap.Backups).Error; err != nil {
		return nil, fmt.Errorf("load scheduled backups: %w", err)
	}
	if err := db.Order("id").Find(&snap.Tasks).Error; err != nil {
		return nil, fmt.Errorf("load scheduled tasks: %w", err)
	}
	if err := db.Order("id").Find(&snap.Applications).Error; err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}
	if err := db.Order("id").Find(&snap.Services).Error; err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	if err := db.Order("id").Find(&snap.Databases).Error; err != nil {
		return nil, fmt.Errorf("load databases: %w", err)
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	snap.Settings = *settings

	return snap, nil
}

// Settings returns the singleton instance settings row, creating it with
// defaults on first read.
func (s *Store) Settings(ctx context.Context) (*models.InstanceSettings, error) {
	var settings models.InstanceSettings
	err := s.db.WithContext(ctx).
		Where(models.InstanceSettings{ID: 1}).
		FirstOrCreate(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("load instance settings: %w", err)
	}
	return &settings, nil
}

// DeleteScheduledBackup hard-deletes a backup definition. Deleting a row
// that is already gone is a no-op.
func (s *Store) DeleteScheduledBackup(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ScheduledBackup{}).Error
}

// DeleteScheduledTask hard-deletes a task definition.
func (s *Store) DeleteScheduledTask(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ScheduledTask{}).Error
}

// Ping verifies database connectivity, for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
