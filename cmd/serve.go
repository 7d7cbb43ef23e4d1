package cmd

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/panlens/internal/config"
	"github.com/agentic-research/panlens/internal/httpapi"
	"github.com/agentic-research/panlens/internal/logger"
	"github.com/agentic-research/panlens/internal/service"
	"github.com/agentic-research/panlens/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		log := logger.New(cfg.Log.Level, cfg.Log.Format)

		var db *sql.DB
		if cfg.CachePath != "" {
			db, err = store.Open(cfg.CachePath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
		}

		svc := service.New(osfs.New(cfg.ConfigsDir), db, log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info().Str("configs_dir", cfg.ConfigsDir).Str("cache", cfg.CachePath).Msg("starting panlens")
		return httpapi.NewServer(cfg.Listen, svc, log).Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
