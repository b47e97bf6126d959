package staging

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sonofy/dwhpipe/helper"
	tabledefinition "github.com/sonofy/dwhpipe/table-definition"
)

// Options mirror the bulk copy flags of the same name.
type Options struct {
	TruncateColumns bool
	BlanksAsNull    bool
	EmptyAsNull     bool
}

// rowBuilder turns decoded JSON records into rows matching the columns of a table.
type rowBuilder struct {
	table tabledefinition.Table
	paths []string // member name per column when loading with JSONPaths
	opts  Options
}

func newRowBuilder(table tabledefinition.Table, paths []string, opts Options) (*rowBuilder, error) {
	if paths != nil {
		if err := checkJsonPaths(paths, len(table.Columns)); err != nil {
			return nil, err
		}
	}
	return &rowBuilder{table: table, paths: paths, opts: opts}, nil
}

// build maps record onto the table columns. Without JSONPaths, keys match column names ignoring case
// and keys with no matching column are ignored.
func (b *rowBuilder) build(record map[string]interface{}) ([]interface{}, error) {
	var lookup func(i int) interface{}
	if b.paths != nil {
		lookup = func(i int) interface{} {
			return record[b.paths[i]]
		}
	} else {
		lower := make(map[string]interface{}, len(record))
		for k, v := range record {
			lower[strings.ToLower(k)] = v
		}
		lookup = func(i int) interface{} {
			return lower[strings.ToLower(b.table.Columns[i].Name)]
		}
	}
	row := make([]interface{}, len(b.table.Columns))
	for i, col := range b.table.Columns {
		v, err := coerce(col, lookup(i), b.opts)
		if err != nil {
			return nil, fmt.Errorf("column %v: %w", col.Name, err)
		}
		row[i] = v
	}
	return row, nil
}

// coerce converts a decoded JSON value into the Go type loaded into col.
// JSON null, and an empty string in a numeric column, become NULL.
func coerce(col tabledefinition.Column, v interface{}, opts Options) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch {
	case col.DataType.IsCharacter():
		return coerceString(col, v, opts)
	case col.DataType == tabledefinition.Int:
		return coerceInt(v, math.MinInt32, math.MaxInt32)
	case col.DataType == tabledefinition.BigInt:
		return coerceInt(v, math.MinInt64, math.MaxInt64)
	case col.DataType == tabledefinition.Float:
		return coerceFloat(v)
	}
	return helper.GetStringFromInterface(v)
}

func coerceString(col tabledefinition.Column, v interface{}, opts Options) (interface{}, error) {
	var s string
	switch x := v.(type) {
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		s = string(b)
	default:
		var err error
		if s, err = helper.GetStringFromInterface(v); err != nil {
			return nil, err
		}
	}
	if opts.EmptyAsNull && s == "" {
		return nil, nil
	}
	if opts.BlanksAsNull && s != "" && helper.IsBlank(s) {
		return nil, nil
	}
	if w := col.Width(); len(s) > w {
		if !opts.TruncateColumns {
			return nil, fmt.Errorf("value of %v bytes exceeds column width %v", len(s), w)
		}
		s = helper.TruncateBytes(s, w)
	}
	return s, nil
}

func coerceInt(v interface{}, min int64, max int64) (interface{}, error) {
	var i int64
	switch x := v.(type) {
	case json.Number:
		var err error
		if i, err = x.Int64(); err != nil {
			f, ferr := x.Float64()
			if ferr != nil || f != math.Trunc(f) {
				return nil, fmt.Errorf("invalid integer %q", x.String())
			}
			i = int64(f)
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		var err error
		if i, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid integer %q", x)
		}
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("invalid integer %v", x)
		}
		i = int64(x)
	default:
		return nil, fmt.Errorf("cannot load %T into an integer column", v)
	}
	if i < min || i > max {
		return nil, fmt.Errorf("integer %v out of range", i)
	}
	return i, nil
}

func coerceFloat(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", x.String())
		}
		return f, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", x)
		}
		return f, nil
	case float64:
		return x, nil
	}
	return nil, fmt.Errorf("cannot load %T into a numeric column", v)
}
