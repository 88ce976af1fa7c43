package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the Postgres schema, registered in file-name order.
var Migrations = migrate.NewMigrations()
