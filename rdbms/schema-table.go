package rdbms

import (
	"strings"
)

// SchemaTable is a table name optionally qualified by its schema, e.g. analytics.songplays.
type SchemaTable struct {
	SchemaTable string `errorTxt:"[<schema>.]<object>" mandatory:"yes"`
}

func NewSchemaTable(schema string, table string) SchemaTable {
	if schema == "" {
		return SchemaTable{table}
	}
	return SchemaTable{schema + "." + table}
}

func (st SchemaTable) GetTable() string {
	_, table := st.split()
	return table
}

func (st SchemaTable) GetSchema() string {
	schema, _ := st.split()
	return schema
}

// Parts returns the non-empty components in order, suitable for building a quoted identifier.
func (st SchemaTable) Parts() []string {
	schema, table := st.split()
	if schema == "" {
		return []string{table}
	}
	return []string{schema, table}
}

func (st SchemaTable) split() (schema string, table string) {
	i := strings.Index(st.SchemaTable, ".")
	if i < 0 { // if we have just a table...
		return "", st.SchemaTable
	}
	return st.SchemaTable[:i], st.SchemaTable[i+1:]
}

func (st SchemaTable) String() string {
	return st.SchemaTable
}
