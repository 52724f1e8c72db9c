package migrations

import (
	"embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres
var postgresFS embed.FS

// Set names one service's schema. Each set keeps its own version table so services can share a
// database without stepping on each other's migration state.
type Set string

const (
	SetPosts         Set = "posts"
	SetComments      Set = "comments"
	SetNotifications Set = "notifications"
)

func (s Set) table() string {
	return "schema_migrations_" + string(s)
}

// RunPostgres applies every pending up migration of set against dsn.
func RunPostgres(dsn string, set Set) error {
	src, err := iofs.New(postgresFS, "postgres/"+string(set))
	if err != nil {
		return fmt.Errorf("failed to open %s migrations: %w", set, err)
	}

	target, err := withMigrationsTable(dsn, set.table())
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, target)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run %s migrations: %w", set, err)
	}
	return nil
}

func withMigrationsTable(dsn, table string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid postgres dsn: %w", err)
	}
	q := u.Query()
	q.Set("x-migrations-table", table)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
