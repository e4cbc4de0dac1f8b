package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plantdash/plantdash/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around env
func NewRootCmd(env *commands.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "plantdash",
		Short: "plantdash - Plant and report dashboard in your terminal",
		Long: `plantdash CLI - Browse plants and generate reports from the terminal.

Sessions are shared with nothing else: the token is kept in the system
keyring, preferences in ~/.config/plantdash/config.json.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.Open()
		},
	}

	rootCmd.PersistentFlags().StringVar(&env.APIURL, "api-url", env.APIURL, "Backend API URL (or set PLANTDASH_API_URL)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(env.Out, "plantdash version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewWhoamiCmd(env))
	rootCmd.AddCommand(commands.NewThemeCmd(env))
	rootCmd.AddCommand(commands.NewLangCmd(env))
	rootCmd.AddCommand(commands.NewPlantsCmd(env))
	rootCmd.AddCommand(commands.NewReportsCmd(env))
	rootCmd.AddCommand(commands.NewDashCmd(env))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd(commands.DefaultEnv()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
