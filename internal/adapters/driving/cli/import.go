package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var importJSON bool

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import build records from a directory",
	Long: `Scans a directory tree for build records (.json, .yaml, .yml) and
stores every record of the catalogued product. Records of other products
are skipped; unreadable files are reported and counted as errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importJSON, "json", false, "output counters as JSON")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if a.OpenSource == nil || a.Ingest == nil {
		return errors.New("ingestion not configured")
	}

	src, err := a.OpenSource(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer src.Close()

	if !importJSON {
		cmd.Printf("Importing from %s...\n", args[0])
	}
	if err := a.Ingest.Ingest(cmd.Context(), src); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	status := a.Ingest.Status()
	if importJSON {
		return printJSON(cmd, status)
	}
	cmd.Printf("Imported %d records (%d rejected, %d errors)\n",
		status.RecordsIngested, status.RecordsRejected, status.ErrorCount)
	return nil
}
