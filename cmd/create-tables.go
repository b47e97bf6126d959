package cmd

import (
	"github.com/sonofy/dwhpipe/actions"
	"github.com/spf13/cobra"
)

var createTablesCfg = actions.CreateTablesConfig{}

var createTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Drop and recreate all tables",
	Long: `Drop the seven tables if they exist, then create them again, empty.

Tables are dropped in the order staging_events, staging_songs, songplays, users,
songs, artists, time and created with the staging tables first and songplays last.
Each statement is committed on its own.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreateTables()
	},
}

func runCreateTables() error {
	applyGlobals(&createTablesCfg.CommonConfig)
	return actions.RunCreateTables(&createTablesCfg)
}

func init() {
	createCmd.AddCommand(createTablesCmd)
	addCommonFlags(createTablesCmd, &createTablesCfg.CommonConfig, "info")
}
