package rdbms

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/logger"
	"github.com/sonofy/dwhpipe/rdbms/shared"
)

// supportedDsnConnectionTypes lists connection types opened through dburl and lib/pq.
// Snowflake connections are handled explicitly so do not need to be here.
var supportedDsnConnectionTypes = map[string]struct{}{
	constants.ConnectionTypeRedshift: {},
	constants.ConnectionTypePostgres: {},
}

// OpenDbConnection opens a database connection using the supplied ConnectionDetails struct in c.
// The connection is pinged before it is returned.
func OpenDbConnection(ctx context.Context, log logger.Logger, c shared.ConnectionDetails) (db shared.Connector, err error) {
	log.Debug("opening connection type ", c.Type, " with logicalName ", c.LogicalName) // don't log password details in c.Data!
	switch c.Type {
	case constants.ConnectionTypeSnowflake:
		db, err = newSnowflakeConnection(ctx, log, shared.GetDsnConnectionDetails(&c))
	default:
		if _, ok := supportedDsnConnectionTypes[c.Type]; ok {
			db, err = newConnectionWithDsn(ctx, log, c.Type, shared.GetDsnConnectionDetails(&c))
		} else {
			err = fmt.Errorf("unsupported database type, %q", c.Type)
		}
	}
	return
}

// newConnectionWithDsn opens redshift and postgres connections, which both speak the postgres wire protocol.
func newConnectionWithDsn(ctx context.Context, log logger.Logger, dbType string, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	log.Info("Opening database connection: ", d)
	u, err := d.Parse()
	if err != nil { // if the DSN could not be parsed...
		return nil, fmt.Errorf("error parsing DSN %q: %w", d, err)
	}
	driver := u.Driver
	if driver == constants.ConnectionTypeRedshift { // dburl names the driver after the scheme but lib/pq registers "postgres"
		driver = "postgres"
	}
	conn := &shared.DbConnection{DbType: dbType}
	conn.DbSql, err = sql.Open(driver, u.DSN)
	if err != nil {
		return nil, err
	}
	conn.DbSql.SetMaxOpenConns(1)
	if err = conn.DbSql.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to %v: %w", d, err)
	}
	log.Info("Successful connection to: ", d)
	return conn, nil
}
