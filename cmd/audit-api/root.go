package main

import "github.com/spf13/cobra"

var (
	seedFile string
)

var rootCmd = &cobra.Command{
	Use: "audit-api",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&seedFile, "seed", "", "Path to a YAML catalog to seed rule sources and artifacts from")
}
