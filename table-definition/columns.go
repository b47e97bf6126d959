package tabledefinition

import (
	"strings"

	"github.com/sonofy/dwhpipe/constants"
)

// DataType is the warehouse-neutral type of a column.
// Mappers convert it into dialect specific DDL.
type DataType string

const (
	Varchar   DataType = "varchar"
	Char      DataType = "char"
	Int       DataType = "int"
	BigInt    DataType = "bigint"
	Float     DataType = "float"
	Timestamp DataType = "timestamp"
)

// IsNumeric returns true for integer and floating point types.
func (d DataType) IsNumeric() bool {
	return d == Int || d == BigInt || d == Float
}

// IsCharacter returns true for fixed and variable width string types.
func (d DataType) IsCharacter() bool {
	return d == Varchar || d == Char
}

// Column describes a single table column.
type Column struct {
	Name       string
	DataType   DataType
	Length     int // declared width for character types, 0 for the warehouse default
	PrimaryKey bool
	NotNull    bool
	Identity   bool
}

// Width returns the maximum number of bytes a character column holds.
// VARCHAR without a declared length holds constants.DefaultVarcharWidth and CHAR holds 1.
func (c Column) Width() int {
	if c.Length > 0 {
		return c.Length
	}
	switch c.DataType {
	case Varchar:
		return constants.DefaultVarcharWidth
	case Char:
		return 1
	}
	return 0
}

// Table is an ordered list of columns.
type Table struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the names of all columns in declaration order.
func (t Table) ColumnNames() []string {
	retval := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		retval[i] = c.Name
	}
	return retval
}

// InsertColumns returns the columns an INSERT must supply, i.e. everything except identity columns.
func (t Table) InsertColumns() []Column {
	retval := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Identity {
			retval = append(retval, c)
		}
	}
	return retval
}

// Column finds a column by name ignoring case.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}
