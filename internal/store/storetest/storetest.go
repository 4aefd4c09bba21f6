// Package storetest builds a throwaway in-memory database with the roster schema for tests.
// It uses SQLite (pure Go, no cgo) so tests run without a Postgres server; every query the
// store issues is written to be portable between the two.
package storetest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/database"
)

// schema is migrations/000001 and 000002 in SQLite dialect: the same foreign keys, the
// ovr CHECK, the team_players view and the seeded default user.
var schema = []string{
	`CREATE TABLE users (
		user_id  INTEGER PRIMARY KEY AUTOINCREMENT,
		username VARCHAR(64) NOT NULL UNIQUE,
		password TEXT NOT NULL
	)`,
	`CREATE TABLE players (
		player_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name        VARCHAR(100) NOT NULL,
		nationality VARCHAR(64) NOT NULL DEFAULT '',
		position    VARCHAR(8) NOT NULL DEFAULT '',
		imagedir    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE items (
		item_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		ovr       INTEGER NOT NULL CHECK (ovr BETWEEN 0 AND 99),
		player_id INTEGER NOT NULL UNIQUE REFERENCES players (player_id)
	)`,
	`CREATE TABLE teams (
		team_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		team_name VARCHAR(100) NOT NULL,
		formation VARCHAR(16) NOT NULL DEFAULT '',
		user_id   INTEGER NOT NULL REFERENCES users (user_id),
		avg_ovr   DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX idx_teams_user_id ON teams (user_id)`,
	`CREATE TABLE clubs (
		item_id INTEGER NOT NULL REFERENCES items (item_id),
		team_id INTEGER NOT NULL REFERENCES teams (team_id),
		PRIMARY KEY (item_id, team_id)
	)`,
	`CREATE INDEX idx_clubs_team_id ON clubs (team_id)`,
	`CREATE TABLE matches (
		match_id     INTEGER PRIMARY KEY AUTOINCREMENT,
		home_team_id INTEGER NOT NULL REFERENCES teams (team_id),
		away_team_id INTEGER NOT NULL REFERENCES teams (team_id)
	)`,
	`CREATE VIEW team_players AS
	SELECT c.team_id, p.player_id, p.name, p.nationality, p.position, p.imagedir, i.item_id, i.ovr
	FROM clubs c
	JOIN items i ON i.item_id = c.item_id
	JOIN players p ON p.player_id = i.player_id`,
	`INSERT INTO users (user_id, username, password) VALUES (1, 'default', '!')`,
}

// New returns a migrated database holding only the default user. It is closed when the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	// SQLite leaves foreign keys off unless asked, per connection.
	db, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), database.Options())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// An in-memory SQLite database lives and dies with its connection, so pin the
	// pool to a single connection that is never recycled.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}

	return db
}
