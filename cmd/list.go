package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/snazzy/internal/component"
	"github.com/conneroisu/snazzy/internal/registry"
	"github.com/conneroisu/snazzy/internal/scanner"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l", "ls"},
	Short:   "List applications, their components and build order",
	Long: `List discovers every application and shows its components with their
declared dependencies and the resolved build order. Applications whose
components cannot be parsed or ordered are listed with the error.

Examples:
  snazzy list                 # Table output
  snazzy list -f json         # JSON output
  snazzy list --format yaml   # YAML output`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, json, yaml)")
}

type componentListing struct {
	Name         string   `json:"name"         yaml:"name"`
	Source       string   `json:"source"       yaml:"source"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	// Dependents are the components declaring this one as a dependency.
	Dependents []string `json:"dependents" yaml:"dependents"`
}

type appListing struct {
	Name       string             `json:"name"            yaml:"name"`
	Dir        string             `json:"dir"             yaml:"dir"`
	Components []componentListing `json:"components"      yaml:"components"`
	Order      []string           `json:"order,omitempty" yaml:"order,omitempty"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
}

func runList(cmd *cobra.Command, _ []string) error {
	apps, err := scanner.New(appConfig.Build.SourceDir, appConfig.Build.SiteDir, appConfig.Build.Exclude, appLogger).
		Discover(cmd.Context())
	if err != nil {
		return err
	}

	listings := make([]appListing, 0, len(apps))
	for _, app := range apps {
		listings = append(listings, describeApp(app))
	}

	return writeListings(cmd.OutOrStdout(), listings, listFormat)
}

// describeApp parses and orders the components of app without running any
// tool.
func describeApp(app scanner.App) appListing {
	listing := appListing{
		Name:       app.Name,
		Dir:        app.Dir,
		Components: []componentListing{},
	}

	reg := registry.NewComponentRegistry()
	for _, path := range app.Components {
		rec, err := component.ParseFile(path, nil)
		if err != nil {
			listing.Error = err.Error()
			return listing
		}
		listing.Components = append(listing.Components, componentListing{
			Name:         rec.Name(),
			Source:       rec.Source(),
			Dependencies: rec.Dependencies(),
		})
		if err := reg.Register(rec); err != nil {
			listing.Error = err.Error()
			return listing
		}
	}

	for i := range listing.Components {
		c := &listing.Components[i]
		c.Dependents = []string{}
		for _, rec := range reg.GetDependents(c.Name) {
			c.Dependents = append(c.Dependents, rec.Name())
		}
	}

	order, err := reg.ResolveOrder()
	if err != nil {
		listing.Error = err.Error()
		return listing
	}
	listing.Order = order
	return listing
}

func writeListings(out io.Writer, listings []appListing, format string) error {
	switch strings.ToLower(format) {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(listings)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(listings)
	case "table":
		return writeListingTable(out, listings)
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", format)
	}
}

func writeListingTable(out io.Writer, listings []appListing) error {
	if len(listings) == 0 {
		_, err := fmt.Fprintln(out, "No applications found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APP\tCOMPONENT\tDEPENDENCIES\tUSED BY\tSOURCE")
	fmt.Fprintln(w, "---\t---------\t------------\t-------\t------")
	for _, listing := range listings {
		if len(listing.Components) == 0 {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\n", listing.Name)
		}
		for _, c := range listing.Components {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				listing.Name, c.Name, joinOrDash(c.Dependencies), joinOrDash(c.Dependents), c.Source)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, listing := range listings {
		if listing.Error != "" {
			fmt.Fprintf(out, "\n%s: %s\n", listing.Name, listing.Error)
			continue
		}
		fmt.Fprintf(out, "\n%s build order: %s\n", listing.Name, strings.Join(listing.Order, " -> "))
	}
	return nil
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
