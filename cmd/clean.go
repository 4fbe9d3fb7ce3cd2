package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conneroisu/snazzy/internal/scaffolding"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the site directory",
	Long: `Clean removes the site directory. With --all it also removes the files
prepare and npm install created: .babelrc, node_modules and
package-lock.json.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

var cleanAll bool

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "also remove installed tools and generated project files")
}

func runClean(cmd *cobra.Command, _ []string) error {
	targets := []string{appConfig.Build.SiteDir}
	if cleanAll {
		for _, name := range scaffolding.Distfiles {
			targets = append(targets, filepath.Join(appConfig.Build.SourceDir, name))
		}
	}

	for _, target := range targets {
		if _, err := os.Lstat(target); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to remove %s: %w", target, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed %s\n", color.YellowString("✗"), target)
	}
	return nil
}
