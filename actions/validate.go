package actions

import (
	"fmt"

	"github.com/sonofy/dwhpipe/helper"
	tabledefinition "github.com/sonofy/dwhpipe/table-definition"
	"github.com/sonofy/dwhpipe/validation"
)

type ValidateConfig struct {
	CommonConfig
	All bool
	// Tables is a CSV of table names to count, used in place of the defaults.
	Tables string
	Output string
	// Sample prints up to this many rows of each table after the counts.
	Sample int
}

// RunValidate prints a row count per table. Every table is counted even when some counts fail,
// in which case an error is returned after printing.
func RunValidate(cfg *ValidateConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	tables, err := validateTables(cfg)
	if err != nil {
		return err
	}
	if cfg.Sample > 0 && cfg.Output != "" && cfg.Output != validation.OutputTable {
		return fmt.Errorf("sample rows can only be printed with %v output", validation.OutputTable)
	}
	cfg.DryRun = false // counting is read-only
	log, _ := newRunLogger(&cfg.CommonConfig)
	ctx, cancel := signalContext()
	defer cancel()
	w, err := openWarehouse(ctx, log, &cfg.CommonConfig, false)
	if err != nil {
		log.Error(err)
		return err
	}
	defer w.close()
	counts := validation.CountRows(ctx, log, w.db, w.cat, tables...)
	if err := validation.Write(cfg.out(), cfg.Output, counts); err != nil {
		return err
	}
	var sampleErr error
	if cfg.Sample > 0 {
		sampleErr = validation.WriteSamples(ctx, log, w.db, w.cat, cfg.out(), cfg.Sample, tables...)
	}
	if err := validation.Failed(counts); err != nil {
		return err
	}
	return sampleErr
}

// validateTables returns the tables to count: all of them, those named in cfg.Tables, or the defaults.
func validateTables(cfg *ValidateConfig) ([]string, error) {
	if cfg.All {
		return validation.AllTables(), nil
	}
	if cfg.Tables == "" {
		return validation.DefaultTables, nil
	}
	tables := helper.CsvToStringSliceTrimSpaces(cfg.Tables)
	for _, t := range tables {
		if _, err := tabledefinition.Get(t); err != nil {
			return nil, err
		}
	}
	return tables, nil
}
