package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

var compareJSON bool

var compareCmd = &cobra.Command{
	Use:   "compare <build-a> <build-b>",
	Short: "Compare the component manifests of two builds",
	Long: `Compares the manifests of two builds, given by ID or filename.

Output lines are prefixed with + (only in b), - (only in a) or
~ (different revision).`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

var (
	manifestJSON bool
	manifestRaw  bool
)

var manifestCmd = &cobra.Command{
	Use:   "manifest <build>",
	Short: "Show the component manifest of a build",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifest,
}

func init() {
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "output as JSON")
	manifestCmd.Flags().BoolVar(&manifestJSON, "json", false, "output as JSON")
	manifestCmd.Flags().BoolVar(&manifestRaw, "raw", false, "print the raw record")
	rootCmd.AddCommand(compareCmd, manifestCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	result, err := a.Comparisons.Compare(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("compare failed: %w", err)
	}

	if compareJSON {
		return printJSON(cmd, result)
	}

	cmd.Printf("a: %s\nb: %s\n\n", result.A, result.B)
	if result.Empty {
		cmd.Println("No differences.")
		return nil
	}
	for _, e := range result.Compared {
		switch e.Change {
		case domain.ChangeAdded:
			cmd.Printf("+ %s %s\n", e.Name, e.B)
		case domain.ChangeRemoved:
			cmd.Printf("- %s %s\n", e.Name, e.A)
		case domain.ChangeChanged:
			cmd.Printf("~ %s %s -> %s\n", e.Name, e.A, e.B)
		}
	}
	return nil
}

func runManifest(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	m, err := a.Manifests.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("manifest failed: %w", err)
	}

	switch {
	case manifestRaw:
		return printJSON(cmd, m.Raw)
	case manifestJSON:
		return printJSON(cmd, m)
	}

	cmd.Printf("%s\n\n", m.ID)
	if len(m.Components) == 0 {
		cmd.Println("No manifest recorded.")
		return nil
	}
	tw := newTable(cmd)
	fmt.Fprintln(tw, "COMPONENT\tREVISION")
	for _, c := range m.Components {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, valueOr(c.Revision, "-"))
	}
	return tw.Flush()
}
