package tabledefinition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sonofy/dwhpipe/constants"
)

// Mapper renders column definitions for a warehouse.
type Mapper interface {
	Map(dataType DataType) (string, error)
	ColumnDDL(col Column) (string, error)
}

// sanitiserFuncT converts a column into the type suffix used in CREATE TABLE DDL.
type sanitiserFuncT func(col Column) string

type dataTypeLink struct {
	SourceDataType DataType
	TargetDataType string
	SanitiserFunc  sanitiserFuncT
}

// dataTypeMap implements Mapper.
type dataTypeMap struct {
	mapTypes       map[DataType]string
	mapSanitisers  map[DataType]sanitiserFuncT
	identityClause string
}

func newDataTypeMapper(types []dataTypeLink, identityClause string) dataTypeMap {
	dtm := dataTypeMap{identityClause: identityClause}
	dtm.mapTypes = make(map[DataType]string)
	dtm.mapSanitisers = make(map[DataType]sanitiserFuncT)
	for _, row := range types {
		dtm.mapTypes[row.SourceDataType] = row.TargetDataType
		dtm.mapSanitisers[row.SourceDataType] = row.SanitiserFunc
	}
	return dtm
}

// Map returns the warehouse type name for dataType without any length suffix.
func (o dataTypeMap) Map(dataType DataType) (string, error) {
	v, ok := o.mapTypes[dataType]
	if !ok {
		return "", fmt.Errorf("unsupported data type %q during conversion", dataType)
	}
	return v, nil
}

// ColumnDDL returns "<name> <type>[ <identity>][ NOT NULL][ PRIMARY KEY]".
func (o dataTypeMap) ColumnDDL(col Column) (string, error) {
	t, err := o.Map(col.DataType)
	if err != nil {
		return "", fmt.Errorf("column %v: %w", col.Name, err)
	}
	b := strings.Builder{}
	b.WriteString(col.Name)
	b.WriteString(" ")
	b.WriteString(t)
	if fn := o.mapSanitisers[col.DataType]; fn != nil {
		b.WriteString(fn(col))
	}
	if col.Identity {
		if o.identityClause == "" {
			return "", fmt.Errorf("column %v: identity columns are not supported", col.Name)
		}
		b.WriteString(" ")
		b.WriteString(o.identityClause)
	}
	if col.NotNull {
		b.WriteString(" NOT NULL")
	}
	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	return b.String(), nil
}

func sanitiseBlank(col Column) string {
	return ""
}

// sanitiseDataLen emits the declared length only, leaving the warehouse default in place otherwise.
func sanitiseDataLen(col Column) string {
	if col.Length > 0 {
		return "(" + strconv.Itoa(col.Length) + ")"
	}
	return ""
}

// sanitiseWidth always emits a length so every warehouse agrees on the width of a VARCHAR.
func sanitiseWidth(col Column) string {
	return "(" + strconv.Itoa(col.Width()) + ")"
}

// RedshiftDataTypeMapping follows the original DDL: VARCHAR without a length is VARCHAR(256) in redshift.
var RedshiftDataTypeMapping = []dataTypeLink{
	{SourceDataType: Varchar, TargetDataType: "VARCHAR", SanitiserFunc: sanitiseDataLen},
	{SourceDataType: Char, TargetDataType: "CHAR", SanitiserFunc: sanitiseDataLen},
	{SourceDataType: Int, TargetDataType: "INT", SanitiserFunc: sanitiseBlank},
	{SourceDataType: BigInt, TargetDataType: "BIGINT", SanitiserFunc: sanitiseBlank},
	{SourceDataType: Float, TargetDataType: "FLOAT", SanitiserFunc: sanitiseBlank},
	{SourceDataType: Timestamp, TargetDataType: "TIMESTAMP", SanitiserFunc: sanitiseBlank},
}

// PostgresDataTypeMapping makes the redshift widths explicit since postgres VARCHAR is unbounded.
var PostgresDataTypeMapping = []dataTypeLink{
	{SourceDataType: Varchar, TargetDataType: "VARCHAR", SanitiserFunc: sanitiseWidth},
	{SourceDataType: Char, TargetDataType: "CHAR", SanitiserFunc: sanitiseWidth},
	{SourceDataType: Int, TargetDataType: "INT", SanitiserFunc: sanitiseBlank},
	{SourceDataType: BigInt, TargetDataType: "BIGINT", SanitiserFunc: sanitiseBlank},
	{SourceDataType: Float, TargetDataType: "DOUBLE PRECISION", SanitiserFunc: sanitiseBlank},
	{SourceDataType: Timestamp, TargetDataType: "TIMESTAMP", SanitiserFunc: sanitiseBlank},
}

var SnowflakeDataTypeMapping = []dataTypeLink{
	{SourceDataType: Varchar, TargetDataType: "VARCHAR", SanitiserFunc: sanitiseWidth},
	{SourceDataType: Char, TargetDataType: "CHAR", SanitiserFunc: sanitiseWidth},
	{SourceDataType: Int, TargetDataType: "INT", SanitiserFunc: sanitiseBlank},
	{SourceDataType: BigInt, TargetDataType: "BIGINT", SanitiserFunc: sanitiseBlank},
	{SourceDataType: Float, TargetDataType: "FLOAT", SanitiserFunc: sanitiseBlank},
	{SourceDataType: Timestamp, TargetDataType: "TIMESTAMP_NTZ", SanitiserFunc: sanitiseBlank},
}

func NewRedshiftDataTypeMapper() Mapper {
	return newDataTypeMapper(RedshiftDataTypeMapping, "IDENTITY(1,1)")
}

func NewPostgresDataTypeMapper() Mapper {
	return newDataTypeMapper(PostgresDataTypeMapping, "GENERATED BY DEFAULT AS IDENTITY")
}

func NewSnowflakeDataTypeMapper() Mapper {
	return newDataTypeMapper(SnowflakeDataTypeMapping, "IDENTITY(1,1)")
}

var mappers = map[string]func() Mapper{
	constants.ConnectionTypeRedshift:  NewRedshiftDataTypeMapper,
	constants.ConnectionTypePostgres:  NewPostgresDataTypeMapper,
	constants.ConnectionTypeSnowflake: NewSnowflakeDataTypeMapper,
}

// GetMapper returns the Mapper for the given connection type.
func GetMapper(connectionType string) (Mapper, error) {
	fn, ok := mappers[connectionType]
	if !ok {
		return nil, fmt.Errorf("unsupported database type for table definitions: %q", connectionType)
	}
	return fn(), nil
}

// TableDDL renders the comma separated column list of t, one column per line.
func TableDDL(m Mapper, t Table) (string, error) {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		s, err := m.ColumnDDL(c)
		if err != nil {
			return "", fmt.Errorf("table %v: %w", t.Name, err)
		}
		cols = append(cols, "\t"+s)
	}
	return strings.Join(cols, ",\n"), nil
}
