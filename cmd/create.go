package cmd

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create warehouse objects",
	Long: `Create warehouse objects:

- tables: drop then create the staging, fact and dimension tables
`,
}

func init() {
	rootCmd.AddCommand(createCmd)
}
