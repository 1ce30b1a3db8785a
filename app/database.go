package app

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/calendarinvite/event-management/internal/model"
)

const DBTimeout = 10 * time.Second

type DatabaseConfig struct {
	Driver      string `env:"DB_DRIVER"`
	Host        string `env:"DB_HOST"`
	Username    string `env:"DB_USER"`
	Password    string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME"`
	Port        int    `env:"DB_PORT"`
	MaxIdleConn int    `env:"MAX_IDLE_CONN"`
	MaxOpenConn int    `env:"MAX_OPEN_CONN"`
	MaxLifetime int    `env:"MAX_LIFE_TIME_PER_CONN"`
	Debug       bool
}

// Setup opens the MySQL connection and migrates the engine's tables. SQL
// logging is forced silent; enable DB_DEBUG and rework this section if logs
// are needed later.
func (dbConf *DatabaseConfig) Setup() (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(io.Discard, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConf.Username, dbConf.Password, dbConf.Host, dbConf.Port, dbConf.DBName)

	db, err := gorm.Open(
		mysql.New(mysql.Config{
			DSN:               dsn,
			DefaultStringSize: 256,
		}),
		&gorm.Config{
			PrepareStmt: true,
			Logger:      newLogger,
			// Unique-key violations must surface as gorm.ErrDuplicatedKey;
			// the insert-if-absent protocol depends on it.
			TranslateError: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB from gorm: %w", err)
	}

	if dbConf.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(dbConf.MaxOpenConn)
	} else {
		sqlDB.SetMaxOpenConns(20)
	}

	if dbConf.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(dbConf.MaxIdleConn)
	} else {
		sqlDB.SetMaxIdleConns(10)
	}

	if dbConf.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbConf.MaxLifetime) * time.Minute)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logrus.Info("Database connection established & migration completed")
	return db, nil
}

// Migrate creates or updates the engine's tables.
func Migrate(db *gorm.DB) error {
	models := []interface{}{
		&model.Event{},
		&model.OriginalEvent{},
		&model.Attendee{},
		&model.Statistics{},
		&model.StatisticCounter{},
		&model.OutboxMessage{},
		&model.OrganizerFlag{},
		&model.AttendeeBlock{},
	}

	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("auto migrate %T: %w", m, err)
		}
	}
	return nil
}
