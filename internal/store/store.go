// Package store keeps dump state parameters and registry records in a relational database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/usher2/u2dumpsync/internal/logger"
)

// Database kinds accepted by Open.
const (
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Errors
var (
	ErrUnknownKind  = errors.New("unknown database kind")
	ErrUnknownParam = errors.New("unknown parameter")
)

// Store - parameter and record store.
type Store struct {
	db *gorm.DB
}

// Open - connect, migrate and seed default parameters.
func Open(ctx context.Context, kind, dsn string) (*Store, error) {
	var dialector gorm.Dialector

	switch kind {
	case KindSQLite:
		dialector = sqlite.Open(dsn)
	case KindPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger()})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", kind, err)
	}

	if kind == KindSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql.DB: %w", err)
		}

		// SQLite has a single writer
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	s := New(db)

	if err := s.Migrate(); err != nil {
		return nil, err
	}

	if err := s.SeedDefaults(ctx); err != nil {
		return nil, err
	}

	logger.Info.Printf("Check database: %s OK\n", kind)

	return s, nil
}

// New - wrap an existing connection, nothing is migrated.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB - underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate - create or update tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

// Close - release the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// AddHistory - remember a sync attempt.
func (s *Store) AddHistory(ctx context.Context, code string, dump, resolver bool, at time.Time) error {
	h := History{RequestCode: code, Dump: dump, Resolver: resolver, Date: at.UTC()}

	if err := s.db.WithContext(ctx).Create(&h).Error; err != nil {
		return fmt.Errorf("add history: %w", err)
	}

	return nil
}

// LastHistory - the most recent attempts, newest first.
func (s *Store) LastHistory(ctx context.Context, limit int) ([]History, error) {
	var rows []History

	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("last history: %w", err)
	}

	return rows, nil
}

func gormLogger() gormlogger.Interface {
	return gormlogger.New(logger.Warning, gormlogger.Config{
		SlowThreshold:             5 * time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func upsertParam(tx *gorm.DB, name, value string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Param{Name: name, Value: value}).Error
}
