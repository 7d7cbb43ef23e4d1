package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "panlens",
	Short: "panlens: explore Panorama configuration exports",
	Long: `panlens ingests Panorama configuration exports (shared objects,
device-groups, templates, vsys) and serves them as filterable, paginated
collections over HTTP and MCP.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to panlens.hcl (defaults to $PANLENS_CONFIG)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
