package bench

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nsqlite/litebind/internal/sqlite"
)

// recreateSchema drops all tables and recreates them.
func recreateSchema(conn *sqlite.Connection) error {
	return conn.Execute(`
		DROP TABLE IF EXISTS articles;
		DROP TABLE IF EXISTS users;

		CREATE TABLE users (
			id INTEGER PRIMARY KEY NOT NULL,
			uuid TEXT NOT NULL UNIQUE,
			created DATETIME NOT NULL,
			email TEXT NOT NULL,
			active BOOLEAN NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX users_created ON users(created);

		CREATE TABLE articles (
			id INTEGER PRIMARY KEY NOT NULL,
			created DATETIME NOT NULL,
			userId INTEGER NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			score REAL
		);
		CREATE INDEX articles_userId ON articles(userId);
	`)
}

// user is a row of the users table.
type user struct {
	ID      int64     `db:"id"`
	UUID    string    `db:"uuid"`
	Created time.Time `db:"created"`
	Email   string    `db:"email"`
	Active  bool      `db:"active"`
	Payload []byte    `db:"payload"`
}

const insertUserSQL = "INSERT INTO users (uuid, created, email, active, payload) VALUES (:uuid, :created, :email, :active, :payload)"

// newUser returns a new user with a random uuid.
func newUser(idx int, payload []byte) user {
	return user{
		UUID:    uuid.NewString(),
		Created: time.Now().UTC(),
		Email:   fmt.Sprintf("user%d@example.com", idx),
		Active:  idx%2 == 0,
		Payload: payload,
	}
}

// newUserParams returns the parameters of insertUserSQL for a new user.
func newUserParams(idx int, payload []byte) sqlite.Named {
	u := newUser(idx, payload)
	return sqlite.Named{
		"uuid":    u.UUID,
		"created": u.Created,
		"email":   u.Email,
		"active":  u.Active,
		"payload": u.Payload,
	}
}
