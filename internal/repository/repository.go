package repository

import (
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// psql builds queries with Postgres-style $N placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
