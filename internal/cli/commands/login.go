package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/plantdash/plantdash/internal/session"
	"github.com/plantdash/plantdash/internal/theme"
)

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the plant backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, env, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set PLANTDASH_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set PLANTDASH_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, env *Env, email, password string) error {
	ctx := cmd.Context()

	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("PLANTDASH_EMAIL")
	}
	if password == "" {
		password = os.Getenv("PLANTDASH_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or PLANTDASH_EMAIL env var)")
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		stdin := env.Stdin
		if stdin == nil || !term.IsTerminal(int(stdin.Fd())) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or PLANTDASH_PASSWORD env var)")
		}

		fmt.Fprint(env.Out, "Password: ")
		bytePassword, err := term.ReadPassword(int(stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(bytePassword)
		fmt.Fprintln(env.Out) // New line after password input
	}

	container := env.Session(ctx)

	fmt.Fprintf(env.Out, "Logging in to %s...\n", env.Client().BaseURL())

	state, err := container.Login(ctx, session.Credentials{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("%s: %w", session.ErrorMessage(err), err)
	}

	p := theme.PaletteFor(state)
	fmt.Fprintln(env.Out, p.Good.Render("✓ Login successful!"))
	fmt.Fprintf(env.Out, "  User: %s (%s)\n", state.User.Name, state.User.Email)
	if state.User.IsAdmin() {
		fmt.Fprintln(env.Out, "  Role: Admin")
	}

	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			env.Session(cmd.Context()).Logout(cmd.Context())
			fmt.Fprintln(env.Out, "Logged out.")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			state := env.Session(cmd.Context()).State()
			if !state.IsAuthenticated {
				return errNotLoggedIn
			}

			p := theme.PaletteFor(state)
			row := func(label, value string) {
				fmt.Fprintf(env.Out, "%s %s\n", p.Label.Render(fmt.Sprintf("%-10s", label+":")), p.Value.Render(value))
			}

			row("Name", state.User.Name)
			row("Email", state.User.Email)
			row("Role", state.Role())
			row("Dark mode", fmt.Sprintf("%t", state.IsDarkMode))
			if state.Language != "" {
				row("Language", state.Language)
			}
			return nil
		},
	}
}
