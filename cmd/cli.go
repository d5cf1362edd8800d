package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storepulse/internal/model"
	"storepulse/internal/service"
	"storepulse/pkg/logger"

	"github.com/spf13/cobra"
)

// Process roles of the serve command
const (
	roleAll    = "all"    // HTTP API and report worker
	roleAPI    = "api"    // HTTP API only, jobs are consumed elsewhere (asynq)
	roleWorker = "worker" // report worker only (asynq)
)

func buildCLI() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "storepulse",
		Short:         "Store uptime/downtime report service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFile != "" {
				os.Setenv("CONFIG_PATH", configFile)
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default $CONFIG_PATH or config/config.yaml)")

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildIngestCommand())
	rootCmd.AddCommand(buildGenerateCommand())
	return rootCmd
}

func buildServeCommand() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and/or the report worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch role {
			case roleAll, roleAPI, roleWorker:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			return runServe(role)
		},
	}
	cmd.Flags().StringVar(&role, "role", roleAll, "process role: all, api, worker")
	return cmd
}

func runServe(role string) error {
	app := NewApplication(role)

	if err := app.Initialize(); err != nil {
		logger.ErrorCtx(app.ctx, "Application initialization failed: %v", err)
		app.Close()
		return err
	}

	if err := app.Start(); err != nil {
		logger.ErrorCtx(app.ctx, "Application startup failed: %v", err)
		app.Close()
		return err
	}

	// Wait for exit signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.InfoCtx(app.ctx, "Received exit signal: %v", sig)

	// Graceful shutdown (30 seconds timeout)
	if err := app.Shutdown(30 * time.Second); err != nil {
		logger.ErrorCtx(app.ctx, "Application shutdown failed: %v", err)
		return err
	}

	logger.InfoCtx(app.ctx, "Application safely exited")
	return nil
}

func buildIngestCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Replace the input tables with store_status.csv, menu_hours.csv and timezones.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := NewApplication(roleAll)
			defer app.Close()
			if err := app.InitializeStorage(); err != nil {
				return err
			}
			if dir == "" {
				dir = app.config.Ingest.DataDir
			}

			svc := service.NewIngestService(app.ingestSink, app.config.Ingest.ChunkSize, app.config.Report.DefaultTimezone)
			stats, err := svc.LoadDirectory(app.ctx, dir)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding the CSV files (default ingest.data_dir)")
	return cmd
}

func buildGenerateCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compute one report synchronously and print its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := NewApplication(roleAll)
			defer app.Close()
			if err := app.InitializeStorage(); err != nil {
				return err
			}
			runner, err := app.newReportRunner()
			if err != nil {
				return err
			}

			reportService := service.NewReportService(app.dataSource, app.reportStore, app.artifactStore, &inlineDispatcher{runner: runner}, nil)
			resp, err := reportService.Trigger(app.ctx)
			if err != nil {
				return err
			}

			status, err := reportService.GetStatus(app.ctx, resp.ReportID)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), status); err != nil {
				return err
			}
			if status.Status != model.ReportStatusComplete {
				return fmt.Errorf("report %s ended %s: %s", status.ReportID, status.Status, status.Error)
			}
			if out != "" {
				return copyArtifact(app.ctx, reportService, resp.ReportID, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "also copy the CSV to this path")
	return cmd
}

// inlineDispatcher runs the job inside Dispatch
type inlineDispatcher struct {
	runner *service.ReportRunner
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, reportID string) error {
	return d.runner.Run(ctx, reportID)
}

func (d *inlineDispatcher) Close() error {
	return nil
}

func copyArtifact(ctx context.Context, svc *service.ReportService, reportID, path string) error {
	rc, _, err := svc.OpenArtifact(ctx, reportID)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
