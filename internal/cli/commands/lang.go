package commands

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/plantdash/plantdash/internal/i18n"
)

// NewLangCmd creates the lang command
func NewLangCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "lang [tag]",
		Short: "Show or set the display language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container := env.Session(ctx)

			var tag string
			switch {
			case len(args) == 1:
				tag = args[0]
			case env.Stdin != nil && term.IsTerminal(int(env.Stdin.Fd())):
				selected, err := selectLanguage(container.State().Language)
				if err != nil {
					return err
				}
				tag = selected
			default:
				current := container.State().Language
				if current == "" {
					current = i18n.Default + " (default)"
				}
				fmt.Fprintf(env.Out, "Language: %s\n", current)
				return nil
			}

			lang, ok := i18n.Normalize(tag)
			if !ok {
				return fmt.Errorf("unsupported language %q (supported: %v)", tag, i18n.Languages())
			}

			if err := container.SetLanguage(ctx, lang); err != nil {
				return err
			}

			fmt.Fprintf(env.Out, "%s: %s\n", i18n.T(lang, "lang.label"), lang)
			return nil
		},
	}
}

// selectLanguage prompts for one of the supported languages
func selectLanguage(current string) (string, error) {
	languages := i18n.Languages()

	cursor := 0
	for i, lang := range languages {
		if lang == current {
			cursor = i
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ . | cyan }}",
		Inactive: "  {{ . }}",
		Selected: "{{ . | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a language",
		Items:     languages,
		Templates: templates,
		CursorPos: cursor,
	}

	_, lang, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("language selection cancelled: %w", err)
	}
	return lang, nil
}
