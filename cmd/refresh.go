package cmd

import (
	"github.com/sonofy/dwhpipe/actions"
	"github.com/spf13/cobra"
)

var refreshCfg = actions.RefreshConfig{}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the star schema from the staging tables",
	Long: `Empty songplays, users, songs, artists and time, then insert into them again from
the staging tables as they are. Nothing is loaded from object storage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefresh()
	},
}

func runRefresh() error {
	applyGlobals(&refreshCfg.CommonConfig)
	return actions.RunRefresh(&refreshCfg)
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	addCommonFlags(refreshCmd, &refreshCfg.CommonConfig, "info")
	switches.addFlag(refreshCmd, &refreshCfg.SingleTransaction, "single-transaction", "false", false, "")
}
