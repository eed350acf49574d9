package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the corpus tables. It is idempotent.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS records (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			year TEXT NOT NULL DEFAULT '',
			filename TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			keywords_all TEXT NOT NULL DEFAULT '[]',
			keywords_all_normalized TEXT NOT NULL DEFAULT '[]',
			embedding TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS abbreviations (
			abbreviation TEXT PRIMARY KEY,
			expansion TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS keyword_aliases (
			keyword TEXT NOT NULL,
			position INTEGER NOT NULL,
			alias TEXT NOT NULL,
			PRIMARY KEY (keyword, position)
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
