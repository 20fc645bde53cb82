package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meetaudit/internal/daemon"
	"meetaudit/internal/logging"
	"meetaudit/internal/preflight"
	"meetaudit/internal/store"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon that ingests pipeline status reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			for _, result := range preflight.Failed(preflight.RunAll(cmd.Context(), cfg)) {
				logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
					logging.String("check", result.Name),
					logging.String("detail", result.Detail),
					logging.String(logging.FieldErrorHint, "run `meetaudit status` for the full report"),
				)
			}

			st, err := store.Open(cfg)
			if err != nil {
				logger.Error("open audit store", logging.Error(err))
				return err
			}

			d, err := daemon.New(cfg, st, logger)
			if err != nil {
				st.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(cmd.Context()); err != nil {
				return err
			}
			<-cmd.Context().Done()
			logger.Info("shutdown requested")
			return nil
		},
	}
}
