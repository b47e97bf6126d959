package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sonofy/dwhpipe/catalog"
	"github.com/sonofy/dwhpipe/config"
	c "github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/helper"
	"github.com/sonofy/dwhpipe/logger"
	"github.com/sonofy/dwhpipe/rdbms"
	"github.com/sonofy/dwhpipe/rdbms/shared"
	"github.com/sonofy/dwhpipe/staging"
)

// openDbConnection is swapped out by tests.
var openDbConnection = rdbms.OpenDbConnection

// newCopyWriter opens the connection used to stream rows into staging tables. It is swapped out by tests.
var newCopyWriter = func(ctx context.Context, log logger.Logger, d shared.ConnectionDetails) (copyWriter, error) {
	return rdbms.NewPgxCopyWriter(ctx, log, shared.GetDsnConnectionDetails(&d))
}

type copyWriter interface {
	staging.RowWriter
	Close(ctx context.Context) error
}

// CommonConfig holds the flags shared by every warehouse command.
type CommonConfig struct {
	ConfigFile       string
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	DryRun           bool
	StackDumpOnPanic bool
	// AllowEnvOnly lets the configuration come from DWH_<SECTION>_<KEY> variables alone.
	AllowEnvOnly bool
	// Out receives printed statements and summaries; defaults to STDOUT.
	Out io.Writer
}

func (cc *CommonConfig) out() io.Writer {
	if cc.Out == nil {
		return os.Stdout
	}
	return cc.Out
}

// validate checks mandatory fields and the log level.
func (cc *CommonConfig) validate() error {
	if err := helper.ValidateStructIsPopulated(cc); err != nil {
		return err
	}
	return logger.ValidLevel(cc.LogLevel)
}

// newRunLogger returns a logger that tags every line with a new run id.
func newRunLogger(cc *CommonConfig) (*logger.LoggerImpl, string) {
	runId := xid.New().String()
	log := logger.NewLogger(c.AppName, cc.LogLevel, cc.StackDumpOnPanic).WithField("runId", runId)
	log.Info("run started at ", time.Now().Format(c.TimeFormatRunStarted))
	return log, runId
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM so the in-flight
// statement is abandoned.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadConfig reads the pipeline configuration and validates the connection values, plus the
// staging sources when loads is set.
func loadConfig(log logger.Logger, cc *CommonConfig, loads bool) (*config.Config, error) {
	cfg, err := config.Load(cc.ConfigFile, cc.AllowEnvOnly)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		log.Info("using config file ", cfg.Path)
	} else {
		log.Info("using config from the environment")
	}
	validate := cfg.ValidateConnection
	if loads {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// warehouse is everything a command needs to talk to the configured warehouse.
type warehouse struct {
	log     logger.Logger
	cfg     *config.Config
	cat     *catalog.Catalog
	details shared.ConnectionDetails
	db      shared.Connector
	writer  copyWriter
}

// openWarehouse loads config and builds the catalog. A connection is opened unless this is a dry run.
// Call close when done.
func openWarehouse(ctx context.Context, log logger.Logger, cc *CommonConfig, loads bool) (*warehouse, error) {
	cfg, err := loadConfig(log, cc, loads)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.NewForConnectionType(cfg.Warehouse.Type, cfg.Warehouse.Schema)
	if err != nil {
		return nil, err
	}
	details, err := cfg.ConnectionDetails()
	if err != nil {
		return nil, err
	}
	w := &warehouse{log: log, cfg: cfg, cat: cat, details: details}
	if cc.DryRun {
		return w, nil
	}
	log.Info("connecting to ", details)
	if w.db, err = openDbConnection(ctx, log, details); err != nil {
		return nil, errors.Wrapf(err, "error connecting to %v warehouse", cfg.Warehouse.Type)
	}
	return w, nil
}

// stagingWriter opens the client side COPY connection for warehouses without server side copy.
func (w *warehouse) stagingWriter(ctx context.Context) (staging.RowWriter, error) {
	if w.db == nil || w.cat.Dialect().ServerSideCopy() {
		return nil, nil
	}
	if w.writer == nil {
		cw, err := newCopyWriter(ctx, w.log, w.details)
		if err != nil {
			return nil, err
		}
		w.writer = cw
	}
	return w.writer, nil
}

func (w *warehouse) resolver() staging.Resolver {
	return &staging.DefaultResolver{Log: w.log, Region: w.cfg.S3.Region, Endpoint: w.cfg.S3.Endpoint}
}

func (w *warehouse) close() {
	if w.writer != nil {
		if err := w.writer.Close(context.Background()); err != nil {
			w.log.Warn("error closing COPY connection: ", err)
		}
	}
	if w.db != nil {
		w.db.Close()
		w.log.Debug("closed warehouse connection")
	}
}

// copyParams maps the config onto the values substituted into bulk load statements.
func copyParams(cfg *config.Config) catalog.CopyParams {
	return catalog.CopyParams{
		LogData:            cfg.S3.LogData,
		LogJsonPath:        cfg.S3.LogJsonPath,
		SongData:           cfg.S3.SongData,
		RoleArn:            cfg.IamRole.Arn,
		Region:             cfg.S3.Region,
		StorageIntegration: cfg.Warehouse.StorageIntegration,
	}
}

func getPrintLogFunc(log logger.Logger, w io.Writer, useStdOut bool) func(msg string) {
	return func(msg string) {
		if useStdOut {
			fmt.Fprintln(w, msg)
		} else {
			log.Info(msg)
		}
	}
}

// writeStatements prints stmts as yaml, json or plain SQL.
func writeStatements(w io.Writer, stmts []catalog.Statement, format string) error {
	var data []byte
	var err error
	switch strings.ToLower(format) {
	case c.OutputYaml:
		data, err = yaml.Marshal(stmts)
	case c.OutputJson:
		data, err = json.MarshalIndent(stmts, "", "  ")
		data = append(data, '\n')
	case c.OutputSql:
		sqls := make([]string, len(stmts))
		for i, s := range stmts {
			sqls[i] = fmt.Sprintf("-- %v\n%v\n", s, s.SQL)
		}
		data = []byte(strings.Join(sqls, "\n"))
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return errors.Wrap(err, "unable to marshal the statements")
	}
	_, err = w.Write(data)
	return err
}
