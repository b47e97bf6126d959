package actions

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sonofy/dwhpipe/catalog"
	"github.com/sonofy/dwhpipe/config"
	c "github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/logger"
)

type PlanConfig struct {
	CommonConfig
	// WarehouseType overrides WAREHOUSE.TYPE from the config.
	WarehouseType string
	Output        string `errorTxt:"output" mandatory:"yes"`
}

// RunPlan prints every statement a full run would execute, without connecting to the warehouse.
func RunPlan(cfg *PlanConfig) error {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "error"
	}
	if cfg.Output == "" {
		cfg.Output = c.OutputSql
	}
	if err := logger.ValidLevel(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.NewLogger(c.AppName, cfg.LogLevel, cfg.StackDumpOnPanic)
	conf, err := config.Load(cfg.ConfigFile, cfg.AllowEnvOnly)
	if err != nil {
		return err
	}
	if cfg.WarehouseType != "" {
		conf.Warehouse.Type = cfg.WarehouseType
	}
	log.Debug("planning for warehouse type ", conf.Warehouse.Type)
	cat, err := catalog.NewForConnectionType(conf.Warehouse.Type, conf.Warehouse.Schema)
	if err != nil {
		return err
	}
	stmts, err := Plan(cat, copyParams(conf))
	if err != nil {
		return err
	}
	return writeStatements(cfg.out(), stmts, cfg.Output)
}

// Plan returns the statements of a full run in execution order. Staging loads done by the client
// appear as comments.
func Plan(cat *catalog.Catalog, p catalog.CopyParams) ([]catalog.Statement, error) {
	stmts := cat.DropStatements()
	creates, err := cat.CreateStatements()
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, creates...)
	copies, err := cat.CopyStatements(p)
	if errors.Is(err, catalog.ErrNoServerSideCopy) {
		copies = copies[:0]
		for _, spec := range catalog.CopySpecs(p) {
			if err := spec.Validate(); err != nil {
				return nil, err
			}
			copies = append(copies, catalog.Statement{
				Phase: catalog.PhaseCopy,
				Table: spec.Table.Name,
				SQL:   fmt.Sprintf("-- load %v from %v (format %v)", cat.TableName(spec.Table.Name), spec.Source, spec.Format),
			})
		}
	} else if err != nil {
		return nil, err
	}
	stmts = append(stmts, copies...)
	return append(stmts, cat.InsertStatements()...), nil
}
