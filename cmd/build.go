package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conneroisu/snazzy/internal/build"
	"github.com/conneroisu/snazzy/internal/config"
	"github.com/conneroisu/snazzy/internal/logging"
	"github.com/conneroisu/snazzy/internal/scanner"
	"github.com/conneroisu/snazzy/internal/transform"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b", "make"},
	Short:   "Build every application into the site directory",
	Long: `Build discovers every application below the source directory and writes
its bundles and page into the site directory.

Examples:
  snazzy build                  # Release build into _site/
  snazzy build --debug          # Keep tool output readable
  snazzy build --prefix v42     # Write app-v42.js and rewrite static/ paths
  snazzy build -j 2             # Run at most two tool processes at a time`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
}

// addBuildFlags registers the flags shared by every command that builds.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("debug", false, "use the tools' debug arguments")
	cmd.Flags().String("prefix", "", "deployment prefix for asset paths and bundle names")
	cmd.Flags().IntP("jobs", "j", 0, "maximum concurrent tool processes (default: number of CPUs)")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := newSiteBuilder(appConfig, newTransformer(appConfig), appLogger, cmd.OutOrStdout()).Build(ctx)
	return err
}

func newTransformer(cfg *config.Config) transform.Transformer {
	return transform.NewCommandTransformer(cfg.Transform, cfg.Build.Debug).WithDir(cfg.Transform.Dir)
}

// siteBuilder rebuilds every application of the source tree on demand.
type siteBuilder struct {
	config   *config.Config
	scanner  *scanner.Scanner
	pipeline *build.BuildPipeline
	out      io.Writer
}

func newSiteBuilder(cfg *config.Config, tr transform.Transformer, logger logging.Logger, out io.Writer) *siteBuilder {
	sink := build.NewDirSink(cfg.Build.SiteDir)
	return &siteBuilder{
		config:  cfg,
		scanner: scanner.New(cfg.Build.SourceDir, cfg.Build.SiteDir, cfg.Build.Exclude, logger),
		pipeline: build.NewBuildPipeline(tr, sink, build.Options{
			Prefix:      cfg.Build.Prefix,
			Parallelism: cfg.Build.Parallelism,
		}, logger),
		out: out,
	}
}

// Build discovers and builds every application, printing one status line
// per application.
func (b *siteBuilder) Build(ctx context.Context) ([]*build.Result, error) {
	apps, err := b.scanner.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		fmt.Fprintf(b.out, "No applications found in %s\n", b.config.Build.SourceDir)
		return nil, nil
	}

	results, err := b.pipeline.BuildAll(ctx, apps)
	for _, result := range results {
		printResult(b.out, result)
	}
	return results, err
}

func printResult(out io.Writer, result *build.Result) {
	if result.Err != nil {
		fmt.Fprintf(out, "%s %s: %v\n", color.RedString("✗"), result.App, result.Err)
		return
	}
	fmt.Fprintf(out, "%s %s %s\n",
		color.GreenString("✓"),
		result.App,
		color.New(color.Faint).Sprintf("(%d components, %d B script, %d B style, %s)",
			result.Components, result.ScriptSize, result.StyleSize, result.Duration.Round(time.Millisecond)),
	)
}
