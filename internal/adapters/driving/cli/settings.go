package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change buildboard settings stored in config.toml.

Keys use dot notation, e.g. query.max_limit or scheduler.rescan.interval.
Run "buildboard settings keys" for the full list.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a single setting. The value is validated before it is saved.

Examples:
  buildboard settings set ingest.dir /srv/builds
  buildboard settings set storage.backend memory
  buildboard settings set scheduler.rescan.interval 5m`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List recognised setting keys",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, key := range services.SettingKeys() {
			cmd.Println(key)
		}
	},
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the record directory, storage and listen address.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if a.Settings == nil {
		return errors.New("settings service not configured")
	}

	settings, err := a.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	if a.Home != "" {
		cmd.Printf("Directory: %s\n", a.Home)
	}

	section := ""
	for _, key := range services.SettingKeys() {
		group, name, _ := strings.Cut(key, ".")
		if group != section {
			section = group
			cmd.Printf("\n[%s]\n", group)
		}
		value, _ := services.SettingValue(settings, key)
		cmd.Printf("  %s: %s\n", name, valueOr(value, "(not set)"))
	}

	cmd.Printf("\nStorage: %s\n", settings.Storage.Backend.Description())
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if a.Settings == nil {
		return errors.New("settings service not configured")
	}

	if err := a.Settings.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("%s = %s\n", args[0], args[1])
	cmd.Println("Restart running servers to apply.")
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if a.Settings == nil {
		return errors.New("settings service not configured")
	}

	settings, err := a.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("buildboard setup")
	cmd.Println("================")
	cmd.Println()

	cmd.Printf("Directory of build records [%s]: ", valueOr(settings.Ingest.Dir, "none"))
	if dir := readLine(reader); dir != "" {
		settings.Ingest.Dir = dir
	}

	cmd.Println("\nStorage backend:")
	backends := domain.AllStorageBackends()
	current := 1
	for i, b := range backends {
		if b == settings.Storage.Backend {
			current = i + 1
		}
		cmd.Printf("  [%d] %s\n", i+1, b.Description())
	}
	cmd.Printf("Select [%d]: ", current)
	settings.Storage.Backend = backends[parseChoice(readLine(reader), len(backends), current)-1]

	cmd.Printf("\nHTTP listen address [%s]: ", settings.Server.Addr)
	if addr := readLine(reader); addr != "" {
		settings.Server.Addr = addr
	}

	if err := a.Settings.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Println("\nSettings saved.")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}
