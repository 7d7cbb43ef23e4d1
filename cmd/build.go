package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/panlens/internal/service"
	"github.com/agentic-research/panlens/internal/store"
)

var buildCmd = &cobra.Command{
	Use:   "build [export.xml] [cache.db]",
	Short: "Parse a configuration export and warm the snapshot cache",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		output := args[1]

		f, err := os.Open(source)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		info, err := f.Stat()
		if err != nil {
			return err
		}

		start := time.Now()
		fmt.Printf("Parsing %s...\n", source)
		snap, err := service.ParseSnapshot(filepath.Base(source), f)
		if err != nil {
			return err
		}

		db, err := store.Open(output)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := store.Save(db, filepath.Base(source), info.Size(), info.ModTime().UnixNano(), snap, time.Now().Unix()); err != nil {
			return err
		}
		fmt.Printf("Done in %v.\n", time.Since(start))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
