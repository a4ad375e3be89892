package infra

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseOptions tunes the connection pool. Zero values fall back to defaults.
type DatabaseOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	Debug        bool
}

// NewDatabase establishes a GORM connection backed by pgx. The schema is owned
// by the SQL files in migrations/ (see RunMigrations); AutoMigrate is never
// used against Postgres.
//
// TranslateError is enabled so unique and foreign key violations surface as
// gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated.
func NewDatabase(dsn string, opts DatabaseOptions) (*gorm.DB, error) {
	level := logger.Silent
	if opts.Debug {
		level = logger.Warn
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 25
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)

	return db, nil
}
