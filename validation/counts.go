package validation

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/sonofy/dwhpipe/catalog"
	c "github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/logger"
	"github.com/sonofy/dwhpipe/rdbms"
	"github.com/sonofy/dwhpipe/rdbms/shared"
	tabledefinition "github.com/sonofy/dwhpipe/table-definition"
)

const (
	OutputTable = c.OutputTable
	OutputCsv   = c.OutputCsv
	OutputJson  = c.OutputJson
)

var ErrCountsFailed = errors.New("one or more row counts failed")

// DefaultTables are checked unless every table is requested.
var DefaultTables = []string{c.TableArtists, c.TableUsers, c.TableSongs, c.TableStagingSongs}

// AllTables returns every table in create order.
func AllTables() []string {
	all := tabledefinition.All()
	retval := make([]string, len(all))
	for i, t := range all {
		retval[i] = t.Name
	}
	return retval
}

// TableCount is the outcome of counting the rows of one table.
type TableCount struct {
	Table string
	Rows  int64
	Err   error
}

// CountRows counts the rows of each table. A failed query is recorded against its table and the
// remaining tables are still counted.
func CountRows(ctx context.Context, log logger.Logger, db shared.Connector, cat *catalog.Catalog, tables ...string) []TableCount {
	stmts := cat.CountStatements(tables...)
	retval := make([]TableCount, 0, len(stmts))
	for _, s := range stmts {
		tc := TableCount{Table: s.Table}
		tc.Rows, tc.Err = rdbms.QueryCount(ctx, db, s.SQL)
		if tc.Err != nil {
			log.Debug("count failed using SQL: ", s.SQL)
			log.Warn("unable to count rows in ", s.Table, ": ", tc.Err)
		} else {
			log.Info(s.Table, " has ", tc.Rows, " rows")
		}
		retval = append(retval, tc)
	}
	return retval
}

// Failed returns ErrCountsFailed if any count has an error.
func Failed(counts []TableCount) error {
	n := 0
	for _, tc := range counts {
		if tc.Err != nil {
			n++
		}
	}
	if n > 0 {
		return errors.Wrapf(ErrCountsFailed, "%v of %v tables", n, len(counts))
	}
	return nil
}

// Write prints counts to w in the given format, "table", "csv" or "json".
func Write(w io.Writer, format string, counts []TableCount) error {
	switch format {
	case OutputTable, "":
		writeTable(w, counts)
		return nil
	case OutputCsv:
		return writeCsv(w, counts)
	case OutputJson:
		return writeJson(w, counts)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

func writeTable(w io.Writer, counts []TableCount) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Table", "Rows", "Error"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	for _, tc := range counts {
		table.Append(row(tc))
	}
	table.Render()
}

func writeCsv(w io.Writer, counts []TableCount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"table", "rows", "error"}); err != nil {
		return err
	}
	for _, tc := range counts {
		if err := cw.Write(row(tc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonCount struct {
	Table string `json:"table"`
	Rows  *int64 `json:"rows"`
	Error string `json:"error,omitempty"`
}

func writeJson(w io.Writer, counts []TableCount) error {
	out := make([]jsonCount, len(counts))
	for i, tc := range counts {
		out[i] = jsonCount{Table: tc.Table}
		if tc.Err != nil {
			out[i].Error = tc.Err.Error()
		} else {
			n := tc.Rows
			out[i].Rows = &n
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func row(tc TableCount) []string {
	if tc.Err != nil {
		return []string{tc.Table, "", tc.Err.Error()}
	}
	return []string{tc.Table, strconv.FormatInt(tc.Rows, 10), ""}
}
