package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

var (
	listFilter string
	listSkip   int
	listLimit  int
	listJSON   bool
	listToy    bool
	listWhere  []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued builds",
	Long: `Lists builds, most recently modified first.

Filters accept the listing's JSON form or repeated field=value pairs.
Values of one field are alternatives; different fields must all match.

Examples:
  buildboard list --filter '{"arch":["x86_64"],"license":["enterprise"]}'
  buildboard list --where os=Windows --where os="Mac OS X" --limit 10
  buildboard list --toy`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var facetsJSON bool

var facetsCmd = &cobra.Command{
	Use:   "facets",
	Short: "Show the distinct values of every filterable category",
	Args:  cobra.NoArgs,
	RunE:  runFacets,
}

var problemsJSON bool

var problemsCmd = &cobra.Command{
	Use:   "problems",
	Short: "List builds whose version could not be determined",
	Args:  cobra.NoArgs,
	RunE:  runProblems,
}

func init() {
	listCmd.Flags().StringVar(&listFilter, "filter", "", "filter criteria as JSON")
	listCmd.Flags().StringArrayVarP(&listWhere, "where", "w", nil, "field=value filter, repeatable")
	listCmd.Flags().BoolVar(&listToy, "toy", false, "only toy builds")
	listCmd.Flags().IntVar(&listSkip, "skip", 0, "number of matching builds to skip")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "maximum number of builds (default from settings)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	facetsCmd.Flags().BoolVar(&facetsJSON, "json", false, "output as JSON")
	problemsCmd.Flags().BoolVar(&problemsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd, facetsCmd, problemsCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	filter, err := buildFilter(listFilter, listWhere, listToy)
	if err != nil {
		return err
	}

	limit := listLimit
	if limit == 0 && a.Config != nil {
		limit = a.Config.Query.DefaultLimit
	}

	page, err := a.Query.List(cmd.Context(), filter, listSkip, limit)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if listJSON {
		return printJSON(cmd, page)
	}
	return outputBuildTable(cmd, page)
}

// buildFilter combines the JSON filter with field=value pairs.
func buildFilter(jsonFilter string, where []string, toy bool) (domain.FilterCriteria, error) {
	filter, err := domain.ParseFilter(jsonFilter)
	if err != nil {
		return domain.FilterCriteria{}, err
	}
	for _, pair := range where {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			return domain.FilterCriteria{}, fmt.Errorf("%w: expected field=value, got %q", domain.ErrInvalidFilter, pair)
		}
		field, ok := domain.ParseField(strings.TrimSpace(key))
		if !ok {
			return domain.FilterCriteria{}, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidFilter, key)
		}
		filter = filter.With(field, value)
	}
	if toy {
		filter = filter.WithToyOnly()
	}
	return filter, nil
}

func outputBuildTable(cmd *cobra.Command, page *domain.BuildPage) error {
	if len(page.Builds) == 0 {
		cmd.Println("No builds found.")
		return nil
	}

	nameWidth := 0
	if width := terminalWidth(cmd.OutOrStdout()); width > 0 {
		// Leave room for the other columns.
		nameWidth = max(width-70, 20)
	}

	tw := newTable(cmd)
	fmt.Fprintln(tw, "FILENAME\tVERSION\tOS\tARCH\tLICENSE\tSIZE\tMODIFIED")
	for i := range page.Builds {
		b := &page.Builds[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(valueOr(b.Filename, b.ID), nameWidth),
			b.FullVersion,
			valueOr(b.OS, "-"),
			valueOr(b.Architecture, "-"),
			valueOr(b.License, "-"),
			formatBytes(b.SizeBytes),
			b.ModifiedAt.UTC().Format("2006-01-02 15:04"),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	first := page.Skip + 1
	last := page.Skip + len(page.Builds)
	cmd.Printf("\nShowing %d-%d of %d builds", first, last, page.Total)
	if page.HasMore {
		cmd.Printf(" (next: --skip %d)", last)
	}
	cmd.Println()
	return nil
}

func runFacets(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	// The facet index is held in memory; rebuild it from the corpus,
	// reusing cached partitions.
	if err := a.Ingest.Reaggregate(cmd.Context()); err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	catalog, err := a.Query.FacetCatalog(cmd.Context())
	if err != nil {
		return fmt.Errorf("facets failed: %w", err)
	}

	if facetsJSON {
		return printJSON(cmd, catalog)
	}

	for _, c := range domain.Categories() {
		values := catalog.Facets[c]
		if len(values) == 0 {
			cmd.Printf("%s: (none)\n", c)
			continue
		}
		cmd.Printf("%s: %s\n", c, strings.Join(values, ", "))
	}
	return nil
}

func runProblems(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	builds, err := a.Query.Problems(cmd.Context())
	if err != nil {
		return fmt.Errorf("problems failed: %w", err)
	}

	if problemsJSON {
		return printJSON(cmd, builds)
	}
	if len(builds) == 0 {
		cmd.Println("No problem builds.")
		return nil
	}

	tw := newTable(cmd)
	fmt.Fprintln(tw, "ID\tSIZE\tMODIFIED")
	for i := range builds {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			builds[i].ID,
			formatBytes(builds[i].SizeBytes),
			builds[i].ModifiedAt.UTC().Format("2006-01-02 15:04"),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	cmd.Printf("\n%d builds without a version\n", len(builds))
	return nil
}
