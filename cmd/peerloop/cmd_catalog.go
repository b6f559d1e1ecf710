package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"peerloop/internal/catalog"
	"peerloop/internal/config"
)

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

// catalogCmd inspects the persona/knowledge/resource catalogs.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate the persona/knowledge/resource catalogs",
	RunE:  runCatalogShow,
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the catalog directory without booting the engine",
	RunE:  runCatalogValidate,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the loaded roster and catalog sizes",
	RunE:  runCatalogShow,
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}

func loadCatalog() (*catalog.Catalog, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return catalog.Load(cfg.Catalog.Dir)
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	if err := cat.Validate(); err != nil {
		return fmt.Errorf("catalog invalid: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "catalog OK")
	return nil
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	reg, err := cat.Registry()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	coach := reg.Coach()
	fmt.Fprintf(out, "coach: %s (%s)\n", nameStyle.Render(coach.DisplayName), coach.ID)
	for _, p := range reg.Peers() {
		fmt.Fprintf(out, "peer:  %s (%s) - %s\n", nameStyle.Render(p.DisplayName), p.ID, p.Voice.Style)
	}
	fmt.Fprintf(out, "\n%d knowledge entries, %d resources\n", len(cat.Knowledge), len(cat.Resources))
	return nil
}
