package catalog

import (
	"fmt"

	"github.com/sonofy/dwhpipe/helper"
	tabledefinition "github.com/sonofy/dwhpipe/table-definition"
)

type redshift struct{}

func (redshift) Name() string {
	return "redshift"
}

func (redshift) Mapper() tabledefinition.Mapper {
	return tabledefinition.NewRedshiftDataTypeMapper()
}

func (redshift) EpochMillisToTimestamp(expr string) string {
	return fmt.Sprintf("TIMESTAMP 'epoch' + (%v / 1000) * INTERVAL '1 second'", expr)
}

func (redshift) Extract(part DatePart, expr string) string {
	return fmt.Sprintf("EXTRACT(%v FROM %v)", part, expr)
}

// EnforcesPrimaryKeys is false since redshift primary keys are informational only.
func (redshift) EnforcesPrimaryKeys() bool {
	return false
}

// Truncate uses DELETE inside a transaction because redshift TRUNCATE commits.
func (redshift) Truncate(table string, inTransaction bool) string {
	if inTransaction {
		return fmt.Sprintf("DELETE FROM %v;", table)
	}
	return fmt.Sprintf("TRUNCATE %v;", table)
}

func (redshift) Copy(table string, spec CopySpec, p CopyParams) (string, error) {
	if err := p.require(spec, spec.FormatKey, spec.Format, "IAM_ROLE.ARN", p.RoleArn, "S3.REGION", p.Region); err != nil {
		return "", err
	}
	s := fmt.Sprintf("COPY %v FROM %v iam_role %v region %v FORMAT AS JSON %v",
		table, helper.QuoteLiteral(spec.Source), helper.QuoteLiteral(p.RoleArn), helper.QuoteLiteral(p.Region), helper.QuoteLiteral(spec.Format))
	if spec.TruncateColumns {
		s += " TRUNCATECOLUMNS"
	}
	if spec.BlanksAsNull {
		s += " BLANKSASNULL"
	}
	if spec.EmptyAsNull {
		s += " EMPTYASNULL"
	}
	return s + ";", nil
}

func (redshift) TransactionalDDL() bool {
	return true
}

func (redshift) ServerSideCopy() bool {
	return true
}
