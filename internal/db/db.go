package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"stackstactoe/config"
	"stackstactoe/internal/db/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newLogger reports slow queries and real errors. Lookups that find nothing
// are routine here (first game id, unsaved settings, new players).
func newLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	return openDB(cfg, newLogger(log.New(os.Stdout, "\r\n", log.LstdFlags)))
}

func openDB(cfg *config.DatabaseConfig, l logger.Interface) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: l,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "", "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.Path), gormCfg)
		if err == nil {
			// one connection keeps sqlite writers from tripping over each other
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				return nil, dbErr
			}
			sqlDB.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	log.Printf("Connected to the %s database", driverName(cfg.Driver))
	return db, nil
}

func driverName(d string) string {
	if d == "" {
		return "postgres"
	}
	return d
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Player{},
		&models.Game{},
		&models.Cell{},
		&models.Move{},
		&models.Setting{},
		&models.Counter{},
		&models.Payout{},
		&models.RecordLog{},
	)
	if err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}
