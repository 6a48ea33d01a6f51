package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/provider"
	"github.com/jengzang/tripguide-backend-go/internal/scheduler"
)

func newPlanCmd() *cobra.Command {
	var f planFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build an itinerary offline",
		Long:  "Build an itinerary from the activity catalog for a date range, using synthetic forecasts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildPlan(&f)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), it)
			}
			return printItinerary(cmd.OutOrStdout(), it)
		},
	}
	f.register(cmd)

	return cmd
}

// buildPlan schedules the catalog and attaches synthetic forecasts
func buildPlan(f *planFlags) (*models.Itinerary, error) {
	prefs, err := f.preferences()
	if err != nil {
		return nil, err
	}
	pool, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(scheduler.DefaultConfig()).WithRand(f.rng())
	it, err := sched.Build(f.key(), pool, prefs)
	if err != nil {
		return nil, err
	}

	dates, _ := it.Key.Dates()
	for i := range it.Days {
		fc := provider.SyntheticForecast(dates[i], sched.Config().CityCenter)
		it.Days[i].Forecast = &fc
	}
	return it, nil
}

// printItinerary prints one block per day.
func printItinerary(out io.Writer, it *models.Itinerary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, d := range it.Days {
		fmt.Fprintf(w, "Day %d  %s", d.Day, d.Date)
		if d.Forecast != nil {
			fmt.Fprintf(w, "  %s", d.Forecast.Display)
		}
		fmt.Fprintln(w)
		if len(d.Activities) == 0 {
			fmt.Fprintln(w, "  (free day)")
		}
		for _, a := range d.Activities {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", a.Time, a.Title, a.Duration, a.Category)
		}
	}
	if it.Fallback {
		fmt.Fprintln(w, "note: planned by the fallback planner")
	}
	return w.Flush()
}
