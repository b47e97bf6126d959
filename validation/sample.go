package validation

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/sonofy/dwhpipe/catalog"
	"github.com/sonofy/dwhpipe/helper"
	"github.com/sonofy/dwhpipe/logger"
	"github.com/sonofy/dwhpipe/rdbms"
	"github.com/sonofy/dwhpipe/rdbms/shared"
)

var ErrSamplesFailed = errors.New("one or more table samples failed")

// sampleTable renders query results with tablewriter.
type sampleTable struct {
	table *tablewriter.Table
	rows  int
}

func (s *sampleTable) HandleHeader(i []interface{}) error {
	s.table.SetHeader(helper.InterfaceToString(i))
	return nil
}

func (s *sampleTable) HandleRow(i []interface{}) error {
	s.table.Append(helper.InterfaceToString(i))
	s.rows++
	return nil
}

// WriteSamples prints up to limit rows of each table to w.
// A table that cannot be read is reported in place of its rows and the rest are still printed.
func WriteSamples(ctx context.Context, log logger.Logger, db shared.Connector, cat *catalog.Catalog, w io.Writer, limit int, tables ...string) error {
	failed := 0
	for _, s := range cat.SampleStatements(limit, tables...) {
		fmt.Fprintf(w, "%v:\n", s.Table)
		h := &sampleTable{table: tablewriter.NewWriter(w)}
		h.table.SetAutoFormatHeaders(false)
		if err := rdbms.SqlQuery(ctx, log, db, s.SQL, h); err != nil {
			log.Warn("unable to sample rows from ", s.Table, ": ", err)
			fmt.Fprintf(w, "error: %v\n", err)
			failed++
			continue
		}
		h.table.Render()
		log.Debug("sampled ", h.rows, " rows from ", s.Table)
	}
	if failed > 0 {
		return errors.Wrapf(ErrSamplesFailed, "%v of %v tables", failed, len(tables))
	}
	return nil
}
