package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sonofy/dwhpipe/catalog"
	"github.com/sonofy/dwhpipe/helper"
	"github.com/sonofy/dwhpipe/logger"
	"github.com/sonofy/dwhpipe/rdbms"
	"github.com/sonofy/dwhpipe/rdbms/shared"
	"github.com/sonofy/dwhpipe/staging"
	"github.com/sonofy/dwhpipe/stats"
)

var (
	ErrSingleTxAutoCommitDDL = errors.New("single transaction mode is not possible because DDL commits implicitly")
	ErrSingleTxClientStaging = errors.New("single transaction mode is not possible when staging tables are loaded by the client")
	ErrNoRowWriter           = errors.New("client side staging requires a row writer")
)

// StatementError is returned when a statement fails. The SQL is logged at debug level only.
type StatementError struct {
	Phase catalog.Phase
	Table string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("error during %v of table %v: %v", e.Phase, e.Table, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// RunnerConfig holds everything a Runner needs. Db may be nil for a dry run. Resolver and Writer
// are only used by warehouses that load staging tables through the client.
type RunnerConfig struct {
	Log      logger.Logger    `errorTxt:"logger" mandatory:"yes"`
	Catalog  *catalog.Catalog `errorTxt:"statement catalog" mandatory:"yes"`
	Db       shared.Connector
	Stats    *stats.RunStatsManager
	Resolver staging.Resolver
	Writer   staging.RowWriter
	// DryRun prints statements to Out instead of executing them.
	DryRun bool
	Out    io.Writer
}

// Options select the stages of a Run.
type Options struct {
	CreateTables      bool
	FullRefresh       bool
	SingleTransaction bool
	CheckSources      bool
	CopyParams        catalog.CopyParams
}

// Runner executes catalog statements one at a time against a warehouse connection.
// Every statement is committed on its own unless a single transaction is requested.
type Runner struct {
	log      logger.Logger
	db       shared.Connector
	cat      *catalog.Catalog
	stats    *stats.RunStatsManager
	resolver staging.Resolver
	writer   staging.RowWriter
	dryRun   bool
	out      io.Writer
	tx       shared.Transacter
	inTx     bool
}

func NewRunner(cfg *RunnerConfig) (*Runner, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	if cfg.Db == nil && !cfg.DryRun {
		return nil, errors.New("please supply a warehouse connection")
	}
	r := &Runner{
		log:      cfg.Log,
		db:       cfg.Db,
		cat:      cfg.Catalog,
		stats:    cfg.Stats,
		resolver: cfg.Resolver,
		writer:   cfg.Writer,
		dryRun:   cfg.DryRun,
		out:      cfg.Out,
	}
	if r.stats == nil {
		r.stats = stats.NewRunStats(cfg.Log)
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	return r, nil
}

func (r *Runner) Stats() *stats.RunStatsManager {
	return r.stats
}

// DropTables drops every table that exists.
func (r *Runner) DropTables(ctx context.Context) error {
	return r.execAll(ctx, r.cat.DropStatements())
}

// CreateTables drops then creates all seven tables.
func (r *Runner) CreateTables(ctx context.Context) error {
	if err := r.DropTables(ctx); err != nil {
		return err
	}
	stmts, err := r.cat.CreateStatements()
	if err != nil {
		return err
	}
	return r.execAll(ctx, stmts)
}

// LoadStaging appends source data to the staging tables, using server side bulk copy where the
// warehouse supports it and the client side loader otherwise.
func (r *Runner) LoadStaging(ctx context.Context, p catalog.CopyParams) error {
	stmts, err := r.cat.CopyStatements(p)
	if errors.Is(err, catalog.ErrNoServerSideCopy) {
		return r.loadClientSide(ctx, p)
	} else if err != nil {
		return err
	}
	return r.execAll(ctx, stmts)
}

// InsertTables populates the fact and dimension tables from staging.
func (r *Runner) InsertTables(ctx context.Context) error {
	return r.execAll(ctx, r.cat.InsertStatements())
}

// TruncateTables empties the fact and dimension tables.
func (r *Runner) TruncateTables(ctx context.Context) error {
	return r.execAll(ctx, r.cat.TruncateStatements(r.inTx))
}

// Run executes the requested stages in order: create, load, truncate (when FullRefresh is set)
// and insert. The first failure stops the run.
func (r *Runner) Run(ctx context.Context, opts Options) (err error) {
	if opts.SingleTransaction {
		if err := r.checkSingleTransaction(); err != nil {
			return err
		}
		commit, beginErr := r.begin(ctx)
		if beginErr != nil {
			return beginErr
		}
		defer func() { err = commit(err) }()
	}
	if opts.CheckSources {
		if err := r.CheckSources(ctx, opts.CopyParams); err != nil {
			return err
		}
	}
	if opts.CreateTables {
		if err := r.CreateTables(ctx); err != nil {
			return err
		}
	}
	if err := r.LoadStaging(ctx, opts.CopyParams); err != nil {
		return err
	}
	if opts.FullRefresh {
		if err := r.TruncateTables(ctx); err != nil {
			return err
		}
	}
	return r.InsertTables(ctx)
}

// Refresh truncates the fact and dimension tables and re-runs the inserts without touching staging.
func (r *Runner) Refresh(ctx context.Context, singleTransaction bool) (err error) {
	if singleTransaction {
		if !r.cat.Dialect().TransactionalDDL() {
			return ErrSingleTxAutoCommitDDL
		}
		commit, beginErr := r.begin(ctx)
		if beginErr != nil {
			return beginErr
		}
		defer func() { err = commit(err) }()
	}
	if err := r.TruncateTables(ctx); err != nil {
		return err
	}
	return r.InsertTables(ctx)
}

// CheckSources verifies the staging sources exist before anything is loaded.
func (r *Runner) CheckSources(ctx context.Context, p catalog.CopyParams) error {
	specs := catalog.CopySpecs(p)
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return err
		}
	}
	if r.resolver == nil {
		return errors.New("checking sources requires an object storage resolver")
	}
	return staging.CheckSources(ctx, r.log, r.resolver, specs)
}

func (r *Runner) checkSingleTransaction() error {
	d := r.cat.Dialect()
	if !d.TransactionalDDL() {
		return errors.Wrapf(ErrSingleTxAutoCommitDDL, "warehouse type %v", d.Name())
	}
	if !d.ServerSideCopy() {
		return errors.Wrapf(ErrSingleTxClientStaging, "warehouse type %v", d.Name())
	}
	return nil
}

// begin starts the run-wide transaction and returns a func that commits it, or rolls it back
// when the run failed.
func (r *Runner) begin(ctx context.Context) (func(error) error, error) {
	if r.dryRun {
		fmt.Fprintln(r.out, "BEGIN;")
		r.inTx = true
		return func(err error) error {
			r.inTx = false
			if err == nil {
				fmt.Fprintln(r.out, "COMMIT;")
			}
			return err
		}, nil
	}
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error starting transaction")
	}
	r.tx = tx
	r.inTx = true
	r.log.Info("started single transaction")
	return func(runErr error) error {
		r.tx = nil
		r.inTx = false
		if runErr != nil {
			if err := tx.Rollback(); err != nil {
				r.log.Error("error rolling back: ", err)
			} else {
				r.log.Warn("rolled back all changes")
			}
			return runErr
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrap(err, "error committing transaction")
		}
		r.log.Info("committed single transaction")
		return nil
	}, nil
}

func (r *Runner) execAll(ctx context.Context, stmts []catalog.Statement) error {
	for _, s := range stmts {
		if err := r.exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// exec runs one statement, recording its outcome in the run stats.
func (r *Runner) exec(ctx context.Context, s catalog.Statement) error {
	sw := r.stats.AddStepWatcher(string(s.Phase), s.Table)
	if r.dryRun {
		fmt.Fprintln(r.out, s.SQL)
		sw.Skip()
		return nil
	}
	if err := ctx.Err(); err != nil {
		sw.StopWatching(err)
		return &StatementError{Phase: s.Phase, Table: s.Table, Err: err}
	}
	r.log.Info("executing ", s)
	sw.StartWatching()
	n, err := r.execStatement(ctx, s.SQL)
	sw.AddRows(n)
	sw.StopWatching(err)
	if err != nil {
		r.log.Debug("failed SQL: ", s.SQL)
		return &StatementError{Phase: s.Phase, Table: s.Table, Err: err}
	}
	r.log.Debug(s, " affected ", n, " rows")
	return nil
}

// execStatement runs sqltext in the run-wide transaction if there is one, else in its own
// transaction. Rows affected are reported when the driver knows them.
func (r *Runner) execStatement(ctx context.Context, sqltext string) (int64, error) {
	if r.tx != nil {
		res, err := r.tx.ExecContext(ctx, sqltext)
		if err != nil {
			return 0, err
		}
		return rowsAffected(res), nil
	}
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, sqltext)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Error("error rolling back: ", rbErr)
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return rowsAffected(res), nil
}

func rowsAffected(res shared.Result) int64 {
	if res == nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

// loadClientSide streams each staging source through the staging loader.
func (r *Runner) loadClientSide(ctx context.Context, p catalog.CopyParams) error {
	if r.inTx {
		return ErrSingleTxClientStaging
	}
	for _, spec := range catalog.CopySpecs(p) {
		target := r.cat.TableName(spec.Table.Name)
		sw := r.stats.AddStepWatcher(string(catalog.PhaseCopy), spec.Table.Name)
		if err := spec.Validate(); err != nil {
			sw.StopWatching(err)
			return &StatementError{Phase: catalog.PhaseCopy, Table: spec.Table.Name, Err: err}
		}
		if r.dryRun {
			fmt.Fprintf(r.out, "-- load %v from %v (format %v)\n", target, spec.Source, spec.Format)
			sw.Skip()
			continue
		}
		if r.resolver == nil || r.writer == nil {
			sw.StopWatching(ErrNoRowWriter)
			return &StatementError{Phase: catalog.PhaseCopy, Table: spec.Table.Name, Err: ErrNoRowWriter}
		}
		r.log.Info("loading ", target, " from ", spec.Source)
		sw.StartWatching()
		l := staging.NewLoader(r.log, r.resolver, &countingWriter{w: r.writer, sw: sw})
		_, err := l.Load(ctx, target, spec)
		sw.StopWatching(err)
		if err != nil {
			return &StatementError{Phase: catalog.PhaseCopy, Table: spec.Table.Name, Err: err}
		}
	}
	return nil
}

// countingWriter feeds rows written by the staging loader into a StepWatcher while the load runs.
type countingWriter struct {
	w  staging.RowWriter
	sw *stats.StepWatcher
}

func (c *countingWriter) WriteRows(ctx context.Context, table rdbms.SchemaTable, columns []string, rows [][]interface{}) (int64, error) {
	n, err := c.w.WriteRows(ctx, table, columns, rows)
	c.sw.AddRows(n)
	return n, err
}
