package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/snazzy/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Build, watch and serve the site with live reload",
	Long: `Serve builds every application, serves the site directory over HTTP and
rebuilds on change. Open pages reload after every successful build.

Examples:
  snazzy serve                        # http://localhost:8000
  snazzy serve --port 3000 --debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addBuildFlags(serveCmd)
	serveCmd.Flags().String("host", "localhost", "host to listen on")
	serveCmd.Flags().IntP("port", "p", 8000, "port to listen on")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(appConfig.Server, appConfig.Build.SiteDir, appLogger)

	builder := newSiteBuilder(appConfig, newTransformer(appConfig), appLogger, cmd.OutOrStdout())
	builder.pipeline.AddCallback(srv.HandleBuildResult)
	srv.SetMetricsSource(builder.pipeline)

	fw, err := startWatching(ctx, builder)
	if err != nil {
		return err
	}
	defer fw.Stop()

	return srv.Start(ctx)
}
