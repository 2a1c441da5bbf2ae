package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// sourceDialectors maps SOURCE_DRIVER values to gorm dialectors for the
// operational store.
var sourceDialectors = map[string]func(dsn string) gorm.Dialector{
	"sqlite": sqlite.Open,
	"mysql":  mysql.Open,
}

func SourceDrivers() []string {
	names := make([]string, 0, len(sourceDialectors))
	for name := range sourceDialectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SourceOpener returns an opener that dials a dedicated pool for each run and
// closes it on release.
func SourceOpener(driver, dsn string) (etl.Opener, error) {
	dialector, ok := sourceDialectors[strings.ToLower(driver)]
	if !ok {
		return nil, fmt.Errorf("unsupported source driver %q (supported: %s)", driver, strings.Join(SourceDrivers(), ", "))
	}

	return func(ctx context.Context) (*gorm.DB, func() error, error) {
		db, err := gorm.Open(dialector(dsn), gormConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("open %s source: %w", driver, err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("get sql.DB: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("ping %s source: %w", driver, err)
		}
		return db, sqlDB.Close, nil
	}, nil
}

// OpenSQLite opens a SQLite file through the same gorm configuration as the
// stores above.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

var sqliteSourceSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL,
		gender TEXT CHECK(gender IN ('M', 'F')),
		age INTEGER,
		height REAL,
		start_weight REAL,
		target_weight REAL,
		registration_date TEXT DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS weight_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		weight REAL NOT NULL,
		record_date TEXT DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS activity_types (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		unit TEXT NOT NULL,
		calories_per_unit REAL
	)`,
	`CREATE TABLE IF NOT EXISTS activity_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		activity_type_id INTEGER NOT NULL,
		value REAL NOT NULL,
		calories REAL,
		record_date TEXT DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users (id),
		FOREIGN KEY (activity_type_id) REFERENCES activity_types (id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_weight_records_user_date ON weight_records (user_id, record_date)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_records_user_date ON activity_records (user_id, record_date)`,
}

// EnsureSQLiteSourceSchema creates the chat bot tables in an empty SQLite file.
// It is used for local bootstrap and tests; the ETL itself never writes the source.
func EnsureSQLiteSourceSchema(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range sqliteSourceSchema {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create source schema: %w", err)
			}
		}
		return nil
	})
}
