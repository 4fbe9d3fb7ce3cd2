package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conneroisu/snazzy/internal/scaffolding"
)

var newCmd = &cobra.Command{
	Use:   "new <component-name>",
	Short: "Create a component skeleton",
	Long: `New prints the skeleton of a component definition to stdout. With --app
the skeleton is written to <app>/+app/<component-name>.xml instead; an
existing file is never overwritten.

Component names are lowercase words joined by single dashes, for example
todo-list. The script class is named after it (TodoList) and every style
selector is scoped with a random attribute.

Examples:
  snazzy new todo-list > web/+app/todo-list.xml
  snazzy new todo-list --app web`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

var newAppDir string

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVarP(&newAppDir, "app", "a", "", "application directory to write the component into")
}

func runNew(cmd *cobra.Command, args []string) error {
	g := scaffolding.NewComponentGenerator()

	if newAppDir == "" {
		content, err := g.Generate(args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(content)
		return err
	}

	path, err := g.WriteTo(newAppDir, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s created %s\n", color.GreenString("✓"), path)
	return nil
}
