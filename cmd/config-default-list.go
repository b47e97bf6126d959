package cmd

import (
	"github.com/sonofy/dwhpipe/actions"
	"github.com/spf13/cobra"
)

var configDefaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all default flag values",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getDefaultsStore()
		if err != nil {
			return err
		}
		return actions.RunDefaultList(&actions.DefaultListConfig{Store: s, Out: cmd.OutOrStdout()})
	},
}

func init() {
	defaultCmd.AddCommand(configDefaultListCmd)
}
