package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conneroisu/snazzy/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Build, then rebuild whenever a source file changes",
	Long: `Watch builds every application once and then rebuilds after each batch
of changes to pages, entry points or component definitions. Build failures
are reported and watching continues.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addBuildFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder := newSiteBuilder(appConfig, newTransformer(appConfig), appLogger, cmd.OutOrStdout())
	fw, err := startWatching(ctx, builder)
	if err != nil {
		return err
	}
	defer fw.Stop()

	<-ctx.Done()
	return nil
}

// startWatching runs an initial build and starts a watcher that rebuilds on
// change. Build errors are reported, not returned.
func startWatching(ctx context.Context, builder *siteBuilder) (*watcher.FileWatcher, error) {
	out := builder.out
	if _, err := builder.Build(ctx); err != nil {
		appLogger.Warn(ctx, err, "initial build failed")
	}

	fw, err := watcher.NewFileWatcher(appConfig.Watch.Debounce, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	skip := builder.scanner.Excluded
	fw.AddFilter(watcher.SourceFilter)
	fw.AddFilter(watcher.NoTempFilter)
	fw.AddFilter(watcher.SkipFilter(skip))
	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		for _, event := range events {
			fmt.Fprintf(out, "%s %s %s\n", color.CyanString("↻"), event.Path, event.Type)
		}
		if _, err := builder.Build(ctx); err != nil {
			appLogger.Warn(ctx, err, "rebuild failed")
		}
		return nil
	})

	if err := fw.AddRecursive(builder.scanner.Root(), skip); err != nil {
		fw.Stop()
		return nil, fmt.Errorf("failed to watch %s: %w", builder.scanner.Root(), err)
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return nil, err
	}

	fmt.Fprintf(out, "Watching %s for changes\n", builder.scanner.Root())
	return fw, nil
}
