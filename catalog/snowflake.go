package catalog

import (
	"fmt"
	"strings"

	"github.com/sonofy/dwhpipe/helper"
	tabledefinition "github.com/sonofy/dwhpipe/table-definition"
)

type snowflake struct{}

func (snowflake) Name() string {
	return "snowflake"
}

func (snowflake) Mapper() tabledefinition.Mapper {
	return tabledefinition.NewSnowflakeDataTypeMapper()
}

func (snowflake) EpochMillisToTimestamp(expr string) string {
	return fmt.Sprintf("TO_TIMESTAMP_NTZ(FLOOR(%v / 1000))", expr)
}

// Extract uses ISO weeks to match redshift. DAYOFWEEK is 0 for Sunday with the default WEEK_START.
func (snowflake) Extract(part DatePart, expr string) string {
	switch part {
	case PartWeek:
		return fmt.Sprintf("EXTRACT(weekiso FROM %v)", expr)
	case PartWeekday:
		return fmt.Sprintf("EXTRACT(dayofweek FROM %v)", expr)
	}
	return fmt.Sprintf("EXTRACT(%v FROM %v)", part, expr)
}

func (snowflake) EnforcesPrimaryKeys() bool {
	return false
}

func (snowflake) Truncate(table string, inTransaction bool) string {
	return fmt.Sprintf("TRUNCATE TABLE %v;", table)
}

// Copy loads straight from the external location. Columns are matched by name so the JSONPaths
// descriptor and region are not used.
func (snowflake) Copy(table string, spec CopySpec, p CopyParams) (string, error) {
	if p.StorageIntegration == "" {
		if err := p.require(spec, "IAM_ROLE.ARN", p.RoleArn); err != nil {
			return "", err
		}
	} else if err := p.require(spec); err != nil {
		return "", err
	} else if !helper.IsSqlIdentifier(p.StorageIntegration) {
		return "", fmt.Errorf("%w: storage integration %q", ErrInvalidIdentifier, p.StorageIntegration)
	}
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("COPY INTO %v FROM %v", table, helper.QuoteLiteral(spec.Source)))
	if p.StorageIntegration != "" {
		b.WriteString(" STORAGE_INTEGRATION = " + p.StorageIntegration)
	} else {
		b.WriteString(fmt.Sprintf(" CREDENTIALS = (AWS_ROLE = %v)", helper.QuoteLiteral(p.RoleArn)))
	}
	b.WriteString(" FILE_FORMAT = (TYPE = JSON")
	if spec.EmptyAsNull || spec.BlanksAsNull {
		b.WriteString(" NULL_IF = ('')")
	}
	b.WriteString(") MATCH_BY_COLUMN_NAME = CASE_INSENSITIVE")
	if spec.TruncateColumns {
		b.WriteString(" TRUNCATECOLUMNS = TRUE")
	}
	b.WriteString(";")
	return b.String(), nil
}

// TransactionalDDL is false because snowflake DDL commits the open transaction.
func (snowflake) TransactionalDDL() bool {
	return false
}

func (snowflake) ServerSideCopy() bool {
	return true
}
