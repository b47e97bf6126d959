package cmd

import (
	"github.com/spf13/cobra"
)

var defaultCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Configure default values for commands",
	Long: `Configure default values for command flags. A default applies to every command
that has a flag of the same name, unless the flag is given on the command line.`,
}

func init() {
	configCmd.AddCommand(defaultCmd)
}
