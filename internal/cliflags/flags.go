// Package cliflags provides the flag bindings shared across every
// envars subcommand, grounded on the teacher's
// engine/cld/commands/flags helper pattern.
package cliflags

import "github.com/spf13/cobra"

const (
	DefaultFile = "envars.yml"
)

// File registers the global --file/-f flag (default envars.yml).
func File(cmd *cobra.Command, dest *string) {
	cmd.PersistentFlags().StringVarP(dest, "file", "f", DefaultFile, "Path to the envars document")
}

// Verbose registers the global --verbose flag.
func Verbose(cmd *cobra.Command, dest *bool) {
	cmd.PersistentFlags().BoolVarP(dest, "verbose", "v", false, "Emit diagnostic logging")
}

// Environment registers --env/-e. It is not required at the flag level
// since ENVARS_ENV may supply it instead; resolve.EnvironmentOrFallback
// enforces MissingEnv when neither is present.
func Environment(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "env", "e", "", "Target environment (falls back to ENVARS_ENV)")
}

// Location registers --loc/-l.
func Location(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "loc", "l", "", "Target location")
}
