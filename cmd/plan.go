package cmd

import (
	"github.com/sonofy/dwhpipe/actions"
	"github.com/sonofy/dwhpipe/constants"
	"github.com/spf13/cobra"
)

var planCfg = actions.PlanConfig{}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the SQL a full run would execute",
	Long: `Print every statement "run" would execute, in order, without connecting to the
warehouse. Staging loads performed by this tool rather than the warehouse are shown
as comments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan()
	},
}

func runPlan() error {
	applyGlobals(&planCfg.CommonConfig)
	return actions.RunPlan(&planCfg)
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().SortFlags = false
	planCmd.SilenceUsage = true
	switches.addFlag(planCmd, &planCfg.ConfigFile, "config", "", false, "")
	switches.addFlag(planCmd, &planCfg.Output, "output", constants.OutputSql, false, ": \"sql | yaml | json\"")
	switches.addFlag(planCmd, &planCfg.WarehouseType, "warehouse-type", "", false, "")
	switches.addFlag(planCmd, &planCfg.LogLevel, "log-level", "error", false, "")
}
