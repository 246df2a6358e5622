package kouhai

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// AliasStore records which display names each user id has been seen
// under, per channel, so that name changes can be traced.
type AliasStore interface {
	// Record remembers that userID currently goes by name in channel.
	// Recording an already-known name is a no-op.
	Record(channel, userID, name string) error
	// Names returns every name userID has been seen under in channel,
	// oldest first.
	Names(channel, userID string) ([]string, error)
	// Lookup returns every name sharing a user id with the given name in
	// channel, including the queried name itself.
	Lookup(channel, name string) ([]string, error)
	Close() error
}

const aliasSchema = `
CREATE TABLE IF NOT EXISTS aliases (
	channel    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	first_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (channel, user_id, name)
);
CREATE INDEX IF NOT EXISTS aliases_by_name ON aliases (channel, name);
`

type sqliteAliasStore struct {
	db *sqlx.DB
}

// OpenAliasStore opens (creating if needed) the alias database at path.
func OpenAliasStore(path string) (AliasStore, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open alias db: %w", err)
	}
	if _, err := db.Exec(aliasSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init alias db: %w", err)
	}
	return &sqliteAliasStore{db: db}, nil
}

func (s *sqliteAliasStore) Record(channel, userID, name string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO aliases (channel, user_id, name) VALUES (?, ?, ?)`,
		channel, userID, name)
	return err
}

func (s *sqliteAliasStore) Names(channel, userID string) ([]string, error) {
	var names []string
	err := s.db.Select(&names,
		`SELECT name FROM aliases WHERE channel = ? AND user_id = ? ORDER BY first_seen`,
		channel, userID)
	return names, err
}

func (s *sqliteAliasStore) Lookup(channel, name string) ([]string, error) {
	var names []string
	err := s.db.Select(&names,
		`SELECT name FROM aliases
		 WHERE channel = ? AND user_id IN
		   (SELECT user_id FROM aliases WHERE channel = ? AND name = ?)
		 ORDER BY first_seen`,
		channel, channel, name)
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *sqliteAliasStore) Close() error {
	return s.db.Close()
}
