package catalog

import (
	"fmt"

	"github.com/sonofy/dwhpipe/constants"
	tabledefinition "github.com/sonofy/dwhpipe/table-definition"
)

// DatePart names a component of a timestamp used to populate the time dimension.
type DatePart string

const (
	PartHour    DatePart = "hour"
	PartDay     DatePart = "day"
	PartWeek    DatePart = "week"
	PartMonth   DatePart = "month"
	PartYear    DatePart = "year"
	PartWeekday DatePart = "weekday"
)

// Dialect captures the SQL differences between supported warehouses.
type Dialect interface {
	Name() string
	Mapper() tabledefinition.Mapper
	// EpochMillisToTimestamp converts an expression holding epoch milliseconds into a timestamp
	// truncated to whole seconds.
	EpochMillisToTimestamp(expr string) string
	// Extract returns an expression for part of a timestamp. Weekday is 0 for Sunday.
	Extract(part DatePart, expr string) string
	// EnforcesPrimaryKeys is true when duplicate or null keys fail an insert.
	EnforcesPrimaryKeys() bool
	// Truncate empties table. When inTransaction is set the statement must not commit implicitly.
	Truncate(table string, inTransaction bool) string
	// Copy renders a server-side bulk load or returns ErrNoServerSideCopy.
	Copy(table string, spec CopySpec, p CopyParams) (string, error)
	// TransactionalDDL is false when DDL commits implicitly.
	TransactionalDDL() bool
	// ServerSideCopy is false when staging tables must be loaded by the client.
	ServerSideCopy() bool
}

var dialects = map[string]func() Dialect{
	constants.ConnectionTypeRedshift:  func() Dialect { return redshift{} },
	constants.ConnectionTypePostgres:  func() Dialect { return postgres{} },
	constants.ConnectionTypeSnowflake: func() Dialect { return snowflake{} },
}

// GetDialect returns the Dialect for a warehouse connection type.
func GetDialect(connectionType string) (Dialect, error) {
	fn, ok := dialects[connectionType]
	if !ok {
		return nil, fmt.Errorf("unsupported warehouse type %q", connectionType)
	}
	return fn(), nil
}
