package cmd

import (
	"fmt"

	"github.com/sonofy/dwhpipe/constants"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure default flag values",
	Long: fmt.Sprintf(`Configure default flag values where:

- Defaults are stored in file ~/%v/%v
- Pipeline settings are read from ./%v or ~/%v/%v unless --config is given
`, constants.ConfigDir, constants.DefaultsFileName, constants.ConfigFileName, constants.ConfigDir, constants.ConfigFileName),
}

func init() {
	rootCmd.AddCommand(configCmd)
}
