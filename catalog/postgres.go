package catalog

import (
	"fmt"

	tabledefinition "github.com/sonofy/dwhpipe/table-definition"
)

type postgres struct{}

func (postgres) Name() string {
	return "postgres"
}

func (postgres) Mapper() tabledefinition.Mapper {
	return tabledefinition.NewPostgresDataTypeMapper()
}

func (postgres) EpochMillisToTimestamp(expr string) string {
	return fmt.Sprintf("TIMESTAMP 'epoch' + (%v / 1000) * INTERVAL '1 second'", expr)
}

func (postgres) Extract(part DatePart, expr string) string {
	if part == PartWeekday {
		return fmt.Sprintf("EXTRACT(dow FROM %v)", expr)
	}
	return fmt.Sprintf("EXTRACT(%v FROM %v)", part, expr)
}

func (postgres) EnforcesPrimaryKeys() bool {
	return true
}

func (postgres) Truncate(table string, inTransaction bool) string {
	return fmt.Sprintf("TRUNCATE %v;", table)
}

func (postgres) Copy(table string, spec CopySpec, p CopyParams) (string, error) {
	return "", ErrNoServerSideCopy
}

func (postgres) TransactionalDDL() bool {
	return true
}

func (postgres) ServerSideCopy() bool {
	return false
}
