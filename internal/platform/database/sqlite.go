package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"pagehook/internal/platform/config"
)

func NewGlobalDB(cfg config.GlobalDBConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
