package cmd

import (
	"github.com/sonofy/dwhpipe/actions"
	"github.com/sonofy/dwhpipe/constants"
	"github.com/spf13/cobra"
)

var validateCfg = actions.ValidateConfig{}

var validateCmd = &cobra.Command{
	Use:     "validate",
	Aliases: []string{"count"},
	Short:   "Print row counts",
	Long: `Print the number of rows in artists, users, songs and staging_songs, or in every
table with --all. A table that cannot be counted is reported and the others are
still counted; the command then exits non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func runValidate() error {
	applyGlobals(&validateCfg.CommonConfig)
	return actions.RunValidate(&validateCfg)
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addCommonFlags(validateCmd, &validateCfg.CommonConfig, "warn")
	switches.addFlag(validateCmd, &validateCfg.All, "all", "false", false, "")
	switches.addFlag(validateCmd, &validateCfg.Tables, "tables", "", false, "")
	switches.addFlag(validateCmd, &validateCfg.Output, "output", constants.OutputTable, false, ": \"table | csv | json\"")
	switches.addFlag(validateCmd, &validateCfg.Sample, "sample", "0", false, "")
}
