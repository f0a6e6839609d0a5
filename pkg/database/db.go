package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type Config struct {
	Path string
	// BusyTimeoutMS is how long a writer waits on a locked database.
	BusyTimeoutMS int
}

func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Path:          filepath.Join(home, ".novelhub", "data.db"),
		BusyTimeoutMS: 5000,
	}
}

func EnsureDataDir(cfg Config) error {
	return os.MkdirAll(filepath.Dir(cfg.Path), 0o755)
}

// DSN builds the go-sqlite3 connection string. Pragmas go in the DSN so
// that every pooled connection gets them, not just the first one.
func (c Config) DSN() string {
	busy := c.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	return fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate",
		c.Path, busy,
	)
}

func Open(cfg Config) (*sqlx.DB, error) {
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sqlx.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

// MustOpen opens and migrates the store. A store that cannot be opened is
// the one fatal condition of the scraper.
func MustOpen(cfg Config, log *zap.Logger) *sqlx.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatal("failed to open db", zap.String("path", cfg.Path), zap.Error(err))
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		log.Fatal("db migrate failed", zap.Error(err))
	}
	return db
}
