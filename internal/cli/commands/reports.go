package commands

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/plantdash/plantdash/internal/reports"
)

// NewReportsCmd creates the reports command
func NewReportsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reports",
		Aliases: []string{"ls-reports"},
		Short:   "List your reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReports(cmd, env)
		},
	}

	cmd.AddCommand(newReportCreateCmd(env))
	return cmd
}

func runReports(cmd *cobra.Command, env *Env) error {
	ctx := cmd.Context()
	token, err := env.authedToken(ctx)
	if err != nil {
		return err
	}

	list, err := env.Client().ListReports(ctx, token)
	if err != nil {
		return env.backendError(ctx, err)
	}

	if len(list) == 0 {
		fmt.Fprintln(env.Out, "No reports found.")
		fmt.Fprintln(env.Out, "\nCreate one with: plantdash reports create --plant <plant-id>")
		return nil
	}

	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tFORMAT\tSTATUS\tCREATED AT")
	fmt.Fprintln(w, "──\t─────\t──────\t──────\t──────────")

	for _, report := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			report.ID,
			report.Title,
			report.Format,
			report.Status,
			report.CreatedAt.Format(time.RFC3339),
		)
	}

	return w.Flush()
}

func newReportCreateCmd(env *Env) *cobra.Command {
	today := time.Now().UTC()
	form := reports.Form{
		From:   today.AddDate(0, 0, -7).Format("2006-01-02"),
		To:     today.Format("2006-01-02"),
		Format: reports.Formats[0],
	}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Ask the backend to generate a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportCreate(cmd, env, form)
		},
	}

	cmd.Flags().StringVar(&form.Title, "title", "", "Report title")
	cmd.Flags().StringVar(&form.PlantID, "plant", "", "Plant ID")
	cmd.Flags().StringVar(&form.SystemID, "system", "", "System ID (optional)")
	cmd.Flags().StringSliceVar(&form.ParameterIDs, "param", nil, "Parameter IDs (repeatable)")
	cmd.Flags().StringVar(&form.From, "from", form.From, "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.To, "to", form.To, "End date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.Format, "format", form.Format, "Output format (pdf, xlsx, csv)")

	return cmd
}

func runReportCreate(cmd *cobra.Command, env *Env, form reports.Form) error {
	ctx := cmd.Context()
	token, err := env.authedToken(ctx)
	if err != nil {
		return err
	}

	if form.Title == "" {
		form.Title = fmt.Sprintf("%s %s..%s", form.PlantID, form.From, form.To)
	}

	if err := reports.NewValidator().Validate(form); err != nil {
		var fields reports.FieldErrors
		if errors.As(err, &fields) {
			names := make([]string, 0, len(fields))
			for name := range fields {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(env.Out, "  %s: %s\n", name, fields[name])
			}
		}
		return err
	}

	req, err := form.Request()
	if err != nil {
		return err
	}

	report, err := env.Client().CreateReport(ctx, token, req)
	if err != nil {
		return env.backendError(ctx, err)
	}

	p := env.Palette(ctx)
	fmt.Fprintln(env.Out, p.Good.Render("✓ Report requested"))
	fmt.Fprintf(env.Out, "  ID: %s\n  Status: %s\n", report.ID, report.Status)
	return nil
}
