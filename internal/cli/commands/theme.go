package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plantdash/plantdash/internal/theme"
)

// NewThemeCmd creates the theme command
func NewThemeCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [toggle]",
		Short:     "Show or toggle dark mode",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container := env.Session(ctx)

			if len(args) == 1 {
				if !container.State().IsAuthenticated {
					return fmt.Errorf("dark mode can only be changed while logged in")
				}
				container.ToggleDarkMode(ctx)
			}

			state := container.State()
			p := theme.PaletteFor(state)

			mode := "light"
			if theme.DarkEnabled(state) {
				mode = "dark"
			}
			fmt.Fprintf(env.Out, "%s %s\n", p.Label.Render("Theme:"), p.Title.Render(mode))
			return nil
		},
	}
}
