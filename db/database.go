package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"waveger/config"
	"waveger/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormDB is the GORM connection used for schema migration.
var GormDB *gorm.DB

// DB is the underlying sql.DB used by the repositories.
var DB *sql.DB

// ConnectDB establishes the Postgres connection and configures the pool.
func ConnectDB(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	var err error
	GormDB, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB, err = GormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	DB.SetMaxIdleConns(10)
	DB.SetMaxOpenConns(50)
	DB.SetConnMaxLifetime(time.Hour)

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB migrates the schema. Tables and unique indexes are created if they
// don't exist; existing data is left untouched.
func InitDB() error {
	if GormDB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := GormDB.AutoMigrate(
		&model.User{},
		&model.Chart{},
		&model.Song{},
		&model.SongChartData{},
		&model.Favourite{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	log.Println("Database schema migrated successfully.")
	return nil
}

// CloseDB closes the database connection.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}
