package rdbms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sonofy/dwhpipe/logger"
	"github.com/sonofy/dwhpipe/rdbms/shared"
)

// PgxCopyWriter bulk loads rows into postgres tables using the COPY protocol.
type PgxCopyWriter struct {
	log  logger.Logger
	conn *pgx.Conn
}

// NewPgxCopyWriter opens a dedicated pgx connection for COPY using the DSN in d.
func NewPgxCopyWriter(ctx context.Context, log logger.Logger, d *shared.DsnConnectionDetails) (*PgxCopyWriter, error) {
	u, err := d.Parse()
	if err != nil {
		return nil, fmt.Errorf("error parsing DSN %q: %w", d, err)
	}
	conn, err := pgx.Connect(ctx, u.DSN)
	if err != nil {
		return nil, fmt.Errorf("error opening COPY connection to %v: %w", d, err)
	}
	log.Debug("opened COPY connection to ", d)
	return &PgxCopyWriter{log: log, conn: conn}, nil
}

// WriteRows copies rows into table. Unquoted identifiers fold to lower case in postgres so
// table and column names are lower cased before they are quoted by pgx.
func (w *PgxCopyWriter) WriteRows(ctx context.Context, table SchemaTable, columns []string, rows [][]interface{}) (int64, error) {
	ident := make(pgx.Identifier, 0, 2)
	for _, p := range table.Parts() {
		ident = append(ident, strings.ToLower(p))
	}
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.ToLower(c)
	}
	n, err := w.conn.CopyFrom(ctx, ident, cols, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("copy into %v: %s (%s): %w", table, pgErr.Detail, pgErr.SQLState(), err)
		}
		return n, fmt.Errorf("copy into %v: %w", table, err)
	}
	w.log.Debug("copied ", n, " rows into ", table)
	return n, nil
}

// Close releases the COPY connection.
func (w *PgxCopyWriter) Close(ctx context.Context) error {
	return w.conn.Close(ctx)
}
