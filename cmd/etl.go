package cmd

import (
	"github.com/sonofy/dwhpipe/actions"
	"github.com/spf13/cobra"
)

var etlCfg = actions.EtlConfig{}

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Load the staging tables then populate the star schema",
	Long: `Bulk load song metadata and event logs into staging_events and staging_songs, then
insert into songplays, users, songs, artists and time.

Staging loads append, so run "create tables" first or use --create-tables to start
from empty tables. Use --full-refresh to empty the fact and dimension tables before
the inserts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEtl()
	},
}

func runEtl() error {
	applyGlobals(&etlCfg.CommonConfig)
	return actions.RunEtl(&etlCfg)
}

func init() {
	rootCmd.AddCommand(etlCmd)
	addCommonFlags(etlCmd, &etlCfg.CommonConfig, "info")
	addEtlFlags(etlCmd, &etlCfg)
	switches.addFlag(etlCmd, &etlCfg.CreateTables, "create-tables", "false", false, "")
}

func addEtlFlags(c *cobra.Command, cfg *actions.EtlConfig) {
	switches.addFlag(c, &cfg.FullRefresh, "full-refresh", "false", false, "")
	switches.addFlag(c, &cfg.CheckSources, "check-sources", "false", false, "")
	switches.addFlag(c, &cfg.SingleTransaction, "single-transaction", "false", false, "")
}
