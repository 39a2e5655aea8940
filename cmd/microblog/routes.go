package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/aanand-mishra/crudgen/internal/config"
	"github.com/aanand-mishra/crudgen/internal/resource"
	"github.com/aanand-mishra/crudgen/internal/store"
	"github.com/aanand-mishra/crudgen/internal/store/sqlite"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route table",
	Long: `Builds every resource against a throwaway in-memory store and prints
the routes the server would mount. No config file is needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestFlag, _ := cmd.Flags().GetString("manifest")
		return printRoutes(cmd.OutOrStdout(), manifestFlag)
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func printRoutes(out io.Writer, manifest string) error {
	conn, err := sqlite.Open(":memory:")
	if err != nil {
		return err
	}
	if err := store.Default().Open(conn); err != nil {
		conn.Close()
		return err
	}
	defer store.Default().Close()

	cfg := &config.Config{UpdatePolicy: config.UpdatePresent}
	resources, err := buildResources(cfg, manifest, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tOPERATION\tDESCRIPTION\tBODY")
	for _, res := range resources {
		for _, route := range res.Routes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				route.Method, route.Path, route.Op, route.Description, bodySummary(route))
		}
	}
	return w.Flush()
}

// bodySummary lists the payload fields of a route, mandatory ones marked
// with "*".
func bodySummary(route resource.Route) string {
	if route.Rules == nil {
		return "-"
	}
	fields := route.Rules.Fields()
	for i, name := range fields {
		if route.Rules[name].IsMandatory() {
			fields[i] = name + "*"
		}
	}
	return strings.Join(fields, ",")
}
