package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/config"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// MigrateShared runs Migrate against the package connection.
func MigrateShared() error {
	return Migrate(DB)
}

// Migrate creates the catalog, subject, notification, log and case tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Anime{},
		&models.Manga{},
		&models.Novel{},
		&models.Comment{},
		&models.Review{},
		&models.Notification{},
		&models.SystemLog{},
		&models.Contribution{},
	); err != nil {
		return err
	}

	for _, kind := range models.ReportKinds {
		table := kind.Table()
		if err := db.Table(table).AutoMigrate(&models.Report{}); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}
		// One report per reporter and subject.
		stmt := fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_subject_author ON %s (subject_type, subject_id, author_id)",
			table, table,
		)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index %s: %w", table, err)
		}
	}
	return nil
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
