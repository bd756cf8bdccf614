package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/costs"
)

var validateFlags struct {
	checkCosts bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate parses the configuration file, applies defaults, and reports
every validation problem found.

Examples:
  # Validate the default config file
  saturn validate

  # Validate a specific file and its cost profiles
  saturn validate --config /etc/saturn/saturn.yaml --check-costs`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.checkCosts, "check-costs", false, "also parse the cost profile file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	if validateFlags.checkCosts {
		profiles, err := costs.LoadProfiles(cfg.Costs.ProfilePath)
		if err != nil {
			return fmt.Errorf("cost profiles invalid: %w", err)
		}
		fmt.Printf("✓ Cost profiles valid (%d providers)\n", len(profiles))
	}

	fmt.Printf("✓ Configuration valid (%d providers)\n", len(cfg.Providers))
	return nil
}
