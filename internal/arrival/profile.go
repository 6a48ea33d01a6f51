package arrival

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// profileFile is the YAML layout of a geofence profile overrides file:
//
//	profiles:
//	  museum:
//	    radiusMeters: 30
//	    dwellMs: 60000
//	    snoozeMs: 600000
//	    promptClearMeters: 80
type profileFile struct {
	Profiles map[string]models.GeofenceProfile `yaml:"profiles"`
}

// LoadProfiles returns the built-in profiles merged with the overrides in path.
// An empty path returns the built-ins.
func LoadProfiles(path string) (map[string]models.GeofenceProfile, error) {
	profiles := models.BuiltinGeofenceProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for name, p := range file.Profiles {
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles[name] = p
	}
	return profiles, nil
}

// ResolveProfile loads the profiles and picks one by name
func ResolveProfile(path, name string) (models.GeofenceProfile, error) {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return models.GeofenceProfile{}, err
	}
	if name == "" {
		name = models.ProfileDefault
	}
	p, ok := profiles[name]
	if !ok {
		return models.GeofenceProfile{}, fmt.Errorf("unknown geofence profile %q", name)
	}
	return p, nil
}

// ProfileNames returns the profile names in sorted order
func ProfileNames(profiles map[string]models.GeofenceProfile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
