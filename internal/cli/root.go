// Package cli defines the cobra command tree for tripctl.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jengzang/tripguide-backend-go/internal/catalog"
	"github.com/jengzang/tripguide-backend-go/internal/models"
)

var (
	flagFormat  string
	flagCatalog string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tripctl",
		Short:         "Plan city itineraries and replay arrival tracking offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagCatalog, "catalog", "", "activity catalog JSON file (default: built-in)")

	root.AddCommand(
		newPlanCmd(),
		newProfilesCmd(),
		newReplayCmd(),
	)

	return root
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// loadCatalog reads the --catalog file or returns the built-in catalog.
func loadCatalog() ([]models.Activity, error) {
	if flagCatalog == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(flagCatalog)
}

// printJSON marshals v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// planFlags are the itinerary inputs shared by plan and replay.
type planFlags struct {
	start, end string
	tempo      int
	price      int
	mode       string
	likes      []string
	seed       int64
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "last day (YYYY-MM-DD, default: start)")
	cmd.Flags().IntVar(&f.tempo, "tempo", 50, "tempo 0-100")
	cmd.Flags().IntVar(&f.price, "price", 50, "price tolerance 0-100")
	cmd.Flags().StringVar(&f.mode, "mode", string(models.ModeWalking), "transport mode (walking|rideshare|car)")
	cmd.Flags().StringSliceVar(&f.likes, "like", nil, "liked tag, repeatable")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "random seed for the fallback planner")
	_ = cmd.MarkFlagRequired("start")
}

func (f *planFlags) key() models.PlanKey {
	end := f.end
	if end == "" {
		end = f.start
	}
	return models.PlanKey{Start: f.start, End: end}
}

func (f *planFlags) preferences() (models.Preferences, error) {
	mode := models.TransportMode(strings.ToLower(f.mode))
	if !mode.Valid() {
		return models.Preferences{}, fmt.Errorf("unknown transport mode %q", f.mode)
	}
	if f.tempo < 0 || f.tempo > 100 || f.price < 0 || f.price > 100 {
		return models.Preferences{}, fmt.Errorf("tempo and price must be within 0-100")
	}
	return models.Preferences{Tempo: f.tempo, Price: f.price, Mode: mode, LikedTags: f.likes}, nil
}

func (f *planFlags) rng() *rand.Rand {
	return rand.New(rand.NewSource(f.seed))
}
