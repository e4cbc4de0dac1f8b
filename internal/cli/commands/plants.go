package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewPlantsCmd creates the plants command
func NewPlantsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "plants [plant-id]",
		Short: "List plants, or show the systems of one plant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runPlantDetail(cmd, env, args[0])
			}
			return runPlants(cmd, env)
		},
	}
}

func runPlants(cmd *cobra.Command, env *Env) error {
	ctx := cmd.Context()
	token, err := env.authedToken(ctx)
	if err != nil {
		return err
	}

	plants, err := env.Client().ListPlants(ctx, token)
	if err != nil {
		return env.backendError(ctx, err)
	}

	if len(plants) == 0 {
		fmt.Fprintln(env.Out, "No plants found.")
		return nil
	}

	p := env.Palette(ctx)
	fmt.Fprintln(env.Out, p.Title.Render("Plants"))
	fmt.Fprintln(env.Out)

	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLOCATION\tSTATUS\tSYSTEMS")
	fmt.Fprintln(w, "──\t────\t────────\t──────\t───────")

	for _, plant := range plants {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			plant.ID,
			plant.Name,
			plant.Location,
			plant.Status,
			plant.SystemCount,
		)
	}

	return w.Flush()
}

func runPlantDetail(cmd *cobra.Command, env *Env, plantID string) error {
	ctx := cmd.Context()
	token, err := env.authedToken(ctx)
	if err != nil {
		return err
	}

	api := env.Client()

	plant, err := api.GetPlant(ctx, token, plantID)
	if err != nil {
		return env.backendError(ctx, err)
	}

	systems, err := api.ListSystems(ctx, token, plantID)
	if err != nil {
		return env.backendError(ctx, err)
	}

	p := env.Palette(ctx)
	fmt.Fprintf(env.Out, "%s %s\n\n", p.Title.Render(plant.Name), p.Muted.Render(plant.Location))

	for _, system := range systems {
		params, err := api.ListParameters(ctx, token, system.ID)
		if err != nil {
			return env.backendError(ctx, err)
		}

		fmt.Fprintf(env.Out, "%s %s\n", p.Label.Render(system.Name), p.Muted.Render(system.Type))

		w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
		for _, param := range params {
			fmt.Fprintf(w, "  %s\t%g %s\n", param.Name, param.Value, param.Unit)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(env.Out)
	}

	return nil
}
