package commands

import (
	"context"
	"log/slog"
	"time"
	"yamisign/lib/serviceutil"
	"yamisign/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the daily autosign job until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.close()

		providers, err := telemetry.Setup(ctx, "yamisign", a.config.Telemetry)
		if err != nil {
			serviceutil.Fatal("init telemetry", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := providers.Shutdown(shutdownCtx)
			if err != nil {
				slog.Warn("telemetry shutdown", "err", err)
			}
		}()
		telemetry.InstrumentPerfStats(ctx)

		service, err := a.service()
		if err != nil {
			serviceutil.Fatal("init autosign", err)
		}

		slog.Info(
			"autosign started",
			"scheduled_time", a.config.Autosign.ScheduledTime,
			"timezone", a.clock.Location().String(),
			"site", a.site.BaseUrl().String(),
		)
		err = service.Start(ctx)
		if err != nil {
			serviceutil.Fatal("autosign stopped", err)
		}
		slog.Info("autosign stopped")
	},
}
