package arrival

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write profiles: %v", err)
	}
	return path
}

func TestLoadProfilesBuiltins(t *testing.T) {
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}
	want := []string{models.ProfileCityBlock, models.ProfileDefault, models.ProfileIndoor}
	if got := ProfileNames(profiles); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	for name, p := range profiles {
		if err := p.Validate(); err != nil {
			t.Errorf("built-in %s is invalid: %v", name, err)
		}
	}
	if d := profiles[models.ProfileDefault]; d.RadiusMeters != 100 || d.PromptClearMeters != 250 {
		t.Errorf("unexpected default profile: %+v", d)
	}
}

func TestLoadProfilesOverrides(t *testing.T) {
	path := writeProfiles(t, `
profiles:
  museum:
    radiusMeters: 30
    dwellMs: 60000
    snoozeMs: 300000
    promptClearMeters: 80
  default:
    radiusMeters: 120
    dwellMs: 120000
    snoozeMs: 600000
    promptClearMeters: 300
`)

	p, err := ResolveProfile(path, "museum")
	if err != nil {
		t.Fatalf("ResolveProfile failed: %v", err)
	}
	if p.Name != "museum" || p.RadiusMeters != 30 || p.Dwell().Seconds() != 60 {
		t.Errorf("unexpected museum profile: %+v", p)
	}

	d, err := ResolveProfile(path, "")
	if err != nil {
		t.Fatalf("ResolveProfile failed: %v", err)
	}
	if d.RadiusMeters != 120 {
		t.Errorf("default override not applied: %+v", d)
	}

	if _, err := ResolveProfile(path, models.ProfileCityBlock); err != nil {
		t.Errorf("built-ins must survive an overrides file: %v", err)
	}
}

func TestLoadProfilesErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		pick string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }, ""},
		{"bad yaml", func(t *testing.T) string { return writeProfiles(t, "profiles: [oops") }, ""},
		{"clear inside radius", func(t *testing.T) string {
			return writeProfiles(t, "profiles:\n  tight:\n    radiusMeters: 50\n    promptClearMeters: 20\n")
		}, ""},
		{"unknown name", func(t *testing.T) string { return "" }, "stadium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ResolveProfile(tt.path(t), tt.pick); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
