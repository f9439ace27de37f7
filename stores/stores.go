// Package stores implements all database operations of the server.
package stores

import (
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/logging"
)

// Mall implements all database operations.
type Mall struct {
	// db is the actual database to perform operations in.
	db *sql.DB
	// dialect is the SQL dialect for building queries.
	dialect goqu.DialectWrapper
}

// NewMall creates a new Mall using the given database. It uses the PostgreSQL
// dialect for queries.
func NewMall(db *sql.DB) *Mall {
	return &Mall{
		db:      db,
		dialect: goqu.Dialect("postgres"),
	}
}

func closeRows(rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		errors.Log(logging.DBLogger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindDB,
			Err:     err,
			Message: "close rows",
		})
	}
}
