package database

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/diaghi13/dggm-sub002/pkg/domain/entities"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the catalog database. SQLite is limited to a single
// connection so that the in-process write lock and the database agree on
// ordering; Postgres runs edge writes in serializable transactions.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Newf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	return db, nil
}

// Migrate creates or updates the catalog and relation history tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&productRecord{}, &relationKindRecord{}, &relationRecord{}, &eventRecord{}); err != nil {
		return errors.Wrap(err, "AutoMigrate")
	}
	return nil
}

// SeedRelationKinds inserts the default relation kinds, leaving existing rows untouched
func SeedRelationKinds(ctx context.Context, db *gorm.DB) error {
	defaults := entities.DefaultRelationKinds()
	records := make([]relationKindRecord, 0, len(defaults))
	for _, k := range defaults {
		records = append(records, toRelationKindRecord(k))
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
	return errors.Wrap(err, "failed to seed relation kinds")
}

// txOptions returns the isolation used for check-then-write transactions
func txOptions(db *gorm.DB) *sql.TxOptions {
	if db.Dialector.Name() == DriverPostgres {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}
