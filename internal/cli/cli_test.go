package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestPlanText(t *testing.T) {
	out, err := executeCommand("plan", "--start", "2026-07-06", "--end", "2026-07-07", "--tempo", "80", "--like", "architecture")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Day 1  2026-07-06") || !strings.Contains(out, "Day 2  2026-07-07") {
		t.Errorf("missing day headers in %q", out)
	}
}

func TestPlanJSON(t *testing.T) {
	out, err := executeCommand("plan", "--format", "json", "--start", "2026-07-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var it models.Itinerary
	if err := json.Unmarshal([]byte(out), &it); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(it.Days) != 1 || it.Days[0].Forecast == nil {
		t.Errorf("unexpected itinerary %+v", it)
	}
}

func TestPlanRejectsBadInput(t *testing.T) {
	tests := [][]string{
		{"plan"},
		{"plan", "--start", "2026-07-07", "--end", "2026-07-06"},
		{"plan", "--start", "2026-07-06", "--mode", "boat"},
		{"plan", "--start", "2026-07-06", "--tempo", "101"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if _, err := executeCommand(args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	out, err := executeCommand("profiles")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"default", "indoor", "city-block"} {
		if !strings.Contains(out, name) {
			t.Errorf("missing profile %s in %q", name, out)
		}
	}

	file := filepath.Join(t.TempDir(), "profiles.yaml")
	yaml := "profiles:\n  museum:\n    radiusMeters: 30\n    dwellMs: 60000\n    snoozeMs: 600000\n    promptClearMeters: 80\n"
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = executeCommand("profiles", "--file", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "museum") {
		t.Errorf("missing override profile in %q", out)
	}
}

func TestReplayConfirmsFirstStop(t *testing.T) {
	f := &planFlags{start: "2026-07-06", tempo: 50, price: 50, mode: "walking", seed: 1}
	it, err := buildPlan(f)
	if err != nil {
		t.Fatal(err)
	}
	var target models.Activity
	for _, a := range it.Days[0].Activities {
		if a.HasLocation() {
			target = a
			break
		}
	}
	if target.ID == "" {
		t.Fatal("expected a located stop on day 1")
	}

	base := time.Date(2026, 7, 6, 10, 0, 0, 0, time.UTC)
	var payloads []string
	for i := 0; i <= 3; i++ {
		payloads = append(payloads, fmt.Sprintf(`{"lat":%f,"lng":%f,"accuracyMeters":10,"timestamp":%q}`,
			target.Location.Lat, target.Location.Lng, base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339)))
	}
	file := filepath.Join(t.TempDir(), "samples.json")
	if err := os.WriteFile(file, []byte("["+strings.Join(payloads, ",")+"]"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand("replay", "--start", "2026-07-06", "--file", file, "--answer", "yes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "prompt_shown") || !strings.Contains(out, "arrival_confirmed") {
		t.Errorf("expected a prompt and a confirmation in %q", out)
	}
	if !strings.Contains(out, "1 stop(s) confirmed") {
		t.Errorf("expected one confirmed stop in %q", out)
	}
}

func TestReplayRejectsBadAnswer(t *testing.T) {
	file := filepath.Join(t.TempDir(), "samples.json")
	if err := os.WriteFile(file, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := executeCommand("replay", "--start", "2026-07-06", "--file", file, "--answer", "maybe"); err == nil {
		t.Error("expected an error for --answer maybe")
	}
}
