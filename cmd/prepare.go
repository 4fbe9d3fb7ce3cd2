package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conneroisu/snazzy/internal/scaffolding"
)

var prepareCmd = &cobra.Command{
	Use:     "prepare",
	Aliases: []string{"init"},
	Short:   "Write the project files the default tools need",
	Long: `Prepare writes package.json, .babelrc and .gitignore into the current
directory unless they already exist. With --npm it also runs npm install so
that handlebars, babel and sass are available under node_modules/.bin.`,
	Args: cobra.NoArgs,
	RunE: runPrepare,
}

var prepareNpm bool

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepareCmd.Flags().BoolVar(&prepareNpm, "npm", false, "run npm install afterwards")
}

func runPrepare(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	created, err := scaffolding.PrepareProject(".")
	for _, path := range created {
		fmt.Fprintf(out, "%s created %s\n", color.GreenString("✓"), path)
	}
	if err != nil {
		return err
	}

	if !prepareNpm {
		return nil
	}

	npm := exec.CommandContext(cmd.Context(), "npm", "install")
	npm.Stdout = out
	npm.Stderr = cmd.ErrOrStderr()
	npm.Env = os.Environ()
	if err := npm.Run(); err != nil {
		return fmt.Errorf("npm install failed: %w", err)
	}
	return nil
}
