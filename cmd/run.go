package cmd

import (
	"github.com/sonofy/dwhpipe/actions"
	"github.com/spf13/cobra"
)

var runCfg = actions.EtlConfig{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Recreate all tables then run the ETL",
	Long: `Drop and create all tables, bulk load the staging tables, then populate the star
schema. This is the same as "create tables" followed by "etl".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline()
	},
}

func runPipeline() error {
	applyGlobals(&runCfg.CommonConfig)
	return actions.RunPipeline(&runCfg)
}

func init() {
	rootCmd.AddCommand(runCmd)
	addCommonFlags(runCmd, &runCfg.CommonConfig, "info")
	addEtlFlags(runCmd, &runCfg)
}
