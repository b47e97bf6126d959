package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/sonofy/dwhpipe/catalog"
	"github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/logger"
	"github.com/sonofy/dwhpipe/rdbms"
)

var ErrNoSourceObjects = errors.New("no objects found")

// RowWriter bulk inserts rows into a table.
type RowWriter interface {
	WriteRows(ctx context.Context, table rdbms.SchemaTable, columns []string, rows [][]interface{}) (int64, error)
}

// Loader fills staging tables from JSON objects read by the client, for warehouses that cannot
// copy from object storage themselves.
type Loader struct {
	log       logger.Logger
	resolver  Resolver
	writer    RowWriter
	BatchRows int
}

func NewLoader(log logger.Logger, resolver Resolver, writer RowWriter) *Loader {
	return &Loader{
		log:       log,
		resolver:  resolver,
		writer:    writer,
		BatchRows: constants.StagingBatchRows,
	}
}

// Load appends every record found under spec.Source to target and returns the number of rows written.
// Objects ending in .gz are decompressed.
func (l *Loader) Load(ctx context.Context, target rdbms.SchemaTable, spec catalog.CopySpec) (int64, error) {
	var paths []string
	if spec.UsesJsonPaths() {
		var err error
		if paths, err = readJsonPaths(l.resolver, spec.Format); err != nil {
			return 0, err
		}
	}
	builder, err := newRowBuilder(spec.Table, paths, Options{
		TruncateColumns: spec.TruncateColumns,
		BlanksAsNull:    spec.BlanksAsNull,
		EmptyAsNull:     spec.EmptyAsNull,
	})
	if err != nil {
		return 0, errors.Wrapf(err, "error loading %v", target)
	}
	src, keys, err := listObjects(l.resolver, spec.Source)
	if err != nil {
		return 0, err
	}
	batchRows := l.BatchRows
	if batchRows <= 0 {
		batchRows = constants.StagingBatchRows
	}
	columns := spec.Table.ColumnNames()
	batch := make([][]interface{}, 0, batchRows)
	total := int64(0)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := l.writer.WriteRows(ctx, target, columns, batch)
		if err != nil {
			return err
		}
		total += n
		batch = batch[:0]
		return nil
	}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		l.log.Debug("loading ", key, " into ", target)
		err := l.decodeObject(src, key, builder, func(row []interface{}) error {
			batch = append(batch, row)
			if len(batch) >= batchRows {
				return flush()
			}
			return nil
		})
		if err != nil {
			return total, errors.Wrapf(err, "error loading %v from %v", target, key)
		}
	}
	if err := flush(); err != nil {
		return total, errors.Wrapf(err, "error loading %v", target)
	}
	l.log.Info("loaded ", total, " rows from ", len(keys), " objects into ", target)
	return total, nil
}

// decodeObject streams the JSON records in one object to emit. Records may be newline delimited
// or simply concatenated.
func (l *Loader) decodeObject(src Source, key string, builder *rowBuilder, emit func(row []interface{}) error) error {
	rc, err := src.Open(key)
	if err != nil {
		return err
	}
	defer rc.Close()
	var r io.Reader = rc
	if strings.HasSuffix(strings.ToLower(key), ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	for n := 1; ; n++ {
		record := make(map[string]interface{})
		if err := dec.Decode(&record); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("record %v: %w", n, err)
		}
		row, err := builder.build(record)
		if err != nil {
			return fmt.Errorf("record %v: %w", n, err)
		}
		if err := emit(row); err != nil {
			return err
		}
	}
}

// CheckSources verifies that every source holds at least one object and that any JSONPaths
// descriptor parses with one expression per column.
func CheckSources(ctx context.Context, log logger.Logger, resolver Resolver, specs []catalog.CopySpec) error {
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, keys, err := listObjects(resolver, spec.Source)
		if err != nil {
			return err
		}
		log.Info("found ", len(keys), " objects for ", spec.Table.Name, " at ", spec.Source)
		if !spec.UsesJsonPaths() {
			continue
		}
		paths, err := readJsonPaths(resolver, spec.Format)
		if err != nil {
			return err
		}
		if err := checkJsonPaths(paths, len(spec.Table.Columns)); err != nil {
			return errors.Wrapf(err, "JSONPaths file %v for %v", spec.Format, spec.Table.Name)
		}
	}
	return nil
}

func listObjects(resolver Resolver, url string) (Source, []string, error) {
	src, prefix, err := resolver.Resolve(url)
	if err != nil {
		return nil, nil, err
	}
	keys, err := src.List(prefix)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error listing %v", url)
	}
	if len(keys) == 0 {
		return nil, nil, errors.Wrapf(ErrNoSourceObjects, "source %v", url)
	}
	return src, keys, nil
}

func readJsonPaths(resolver Resolver, url string) ([]string, error) {
	src, key, err := resolver.Resolve(url)
	if err != nil {
		return nil, err
	}
	rc, err := src.Open(key)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening JSONPaths file %v", url)
	}
	defer rc.Close()
	paths, err := ParseJsonPaths(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "JSONPaths file %v", url)
	}
	return paths, nil
}
