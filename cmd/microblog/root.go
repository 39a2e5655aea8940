package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "microblog",
	Short: "Microblog is a REST API generated from resource definitions",
	Long: `Microblog serves create/read/update/delete routes for people and posts,
plus any resources declared in a YAML manifest.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "path to the YAML config file (CONFIG_PATH takes priority)")
	rootCmd.PersistentFlags().String("manifest", "", "path to a YAML resource manifest (overrides manifest_path)")
}
