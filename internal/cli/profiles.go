package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/models"
)

func newProfilesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List geofence profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := arrival.LoadProfiles(file)
			if err != nil {
				return err
			}
			names := arrival.ProfileNames(profiles)

			if isJSON() {
				list := make([]models.GeofenceProfile, 0, len(names))
				for _, name := range names {
					list = append(list, profiles[name])
				}
				return printJSON(cmd.OutOrStdout(), list)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tRADIUS\tDWELL\tSNOOZE\tCLEAR\tDESCRIPTION")
			for _, name := range names {
				p := profiles[name]
				fmt.Fprintf(w, "%s\t%.0fm\t%s\t%s\t%.0fm\t%s\n",
					p.Name, p.RadiusMeters, p.Dwell(), p.Snooze(), p.PromptClearMeters, p.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML file with profile overrides")

	return cmd
}
