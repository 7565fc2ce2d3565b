// Package database centralises sqlx connection helpers.  The default driver
// is go-sql-driver/mysql, which also works with MariaDB and TiDB.
//
// Public entry points:
//
//	Open(dsn)                         – quick helper with conservative pools.
//	OpenWithOptions(dsn, maxOpen, maxIdle) – fine-grained control.
//	FromSettings(reg)                 – reads the `database` settings table.
//
// All helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB.
package database

import (
	"errors"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/AdeptTravel/adept-bootstrap/internal/settings"
)

// ErrNoDSN is returned by FromSettings when `database.dsn` is unset.
var ErrNoDSN = errors.New("database: database.dsn is not set")

// Pool holds the `database` settings table.
type Pool struct {
	DSN     string `koanf:"dsn"`
	MaxOpen int    `koanf:"max_open"`
	MaxIdle int    `koanf:"max_idle"`
}

// Open returns a *sqlx.DB with sane defaults: 15 max open, 5 idle, and a
// 30-minute connection lifetime.
func Open(dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(dsn, 15, 5)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle per pool.
func OpenWithOptions(dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// PoolFromSettings decodes the `database` table, filling pool defaults.
func PoolFromSettings(reg *settings.Registry) (Pool, error) {
	p := Pool{MaxOpen: 15, MaxIdle: 5}
	if err := reg.Unmarshal("database", &p); err != nil {
		return p, err
	}
	if p.DSN == "" {
		return p, ErrNoDSN
	}
	return p, nil
}

// FromSettings opens the pool described by the `database` settings table.
func FromSettings(reg *settings.Registry) (*sqlx.DB, error) {
	p, err := PoolFromSettings(reg)
	if err != nil {
		return nil, err
	}
	return OpenWithOptions(p.DSN, p.MaxOpen, p.MaxIdle)
}
