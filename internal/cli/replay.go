package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/geosource"
)

type replayOptions struct {
	plan         planFlags
	file         string
	day          int
	profile      string
	profilesFile string
	answer       string
}

func newReplayCmd() *cobra.Command {
	var o replayOptions

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded location samples through arrival detection",
		Long: "Plan an itinerary, confirm it, and feed a JSON array of location payloads " +
			"({lat,lng,accuracyMeters,timestamp} or {error}) through the arrival state machine.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(o.file)
			if err != nil {
				return fmt.Errorf("failed to read samples: %w", err)
			}
			return runReplay(cmd.OutOrStdout(), &o, data)
		},
	}
	o.plan.register(cmd)
	cmd.Flags().StringVar(&o.file, "file", "", "JSON array of location payloads")
	cmd.Flags().IntVar(&o.day, "day", 1, "day of the plan to track")
	cmd.Flags().StringVar(&o.profile, "profile", "", "geofence profile (default: default)")
	cmd.Flags().StringVar(&o.profilesFile, "profiles-file", "", "YAML file with profile overrides")
	cmd.Flags().StringVar(&o.answer, "answer", "", "answer prompts automatically (yes|no)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runReplay(out io.Writer, o *replayOptions, data []byte) error {
	if o.answer != "" && o.answer != "yes" && o.answer != "no" {
		return fmt.Errorf("--answer must be yes or no")
	}
	var payloads []json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		return fmt.Errorf("samples file must be a JSON array: %w", err)
	}

	it, err := buildPlan(&o.plan)
	if err != nil {
		return err
	}
	if _, ok := it.DayByNumber(o.day); !ok {
		return fmt.Errorf("day %d is outside the plan", o.day)
	}
	profile, err := arrival.ResolveProfile(o.profilesFile, o.profile)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	updates := make([]geosource.Update, 0, len(payloads))
	for i, raw := range payloads {
		u, err := geosource.Decode(raw, now)
		if err != nil {
			return fmt.Errorf("payload %d: %w", i, err)
		}
		updates = append(updates, u)
	}

	// 从第一个样本的时间开始
	at := now
	for _, u := range updates {
		if u.Sample != nil {
			at = u.Sample.Timestamp
			break
		}
	}

	var events []arrival.Event
	m := arrival.NewMachine(profile)
	it.Locked = true
	events = append(events, m.SetPlan(arrival.PlanContext{Itinerary: it, Day: o.day, GuidedTour: true, Confirmed: true}, at)...)
	events = append(events, m.Activate(at)...)

	for _, u := range updates {
		if u.Failure != "" {
			events = append(events, m.Fail(u.Failure, at)...)
			continue
		}
		at = u.Sample.Timestamp
		step := m.Sample(*u.Sample)
		events = append(events, step...)
		for _, e := range step {
			if e.Type == arrival.EventPromptShown && o.answer != "" {
				events = append(events, m.Respond(e.PromptID, o.answer == "yes", at)...)
			}
		}
	}

	if isJSON() {
		return printJSON(out, struct {
			Events   []arrival.Event  `json:"events"`
			Snapshot arrival.Snapshot `json:"snapshot"`
		}{events, m.Snapshot()})
	}

	for _, e := range events {
		line := fmt.Sprintf("%s  %-18s state=%s", e.At.Format(time.TimeOnly), e.Type, e.State)
		if e.Stop != nil {
			line += fmt.Sprintf(" stop=%d/%s", e.Stop.Day, e.Stop.ActivityID)
		}
		if e.Reason != "" {
			line += " reason=" + e.Reason
		}
		fmt.Fprintln(out, line)
	}
	snap := m.Snapshot()
	confirmed := 0
	for _, r := range snap.Records {
		if r.Confirmed() {
			confirmed++
		}
	}
	fmt.Fprintf(out, "final state %s, %d stop(s) confirmed\n", snap.State, confirmed)
	return nil
}
