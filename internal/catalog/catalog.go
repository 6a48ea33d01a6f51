// Package catalog provides the activity pool the scheduler draws from.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

//go:embed chicago.json
var chicagoJSON []byte

// Default returns a fresh copy of the built-in Chicago catalog
func Default() []models.Activity {
	acts, err := Parse(chicagoJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return acts
}

// Load reads a JSON catalog file
func Load(path string) ([]models.Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON array of activities and rejects blank or duplicate ids
func Parse(data []byte) ([]models.Activity, error) {
	var acts []models.Activity
	if err := json.Unmarshal(data, &acts); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(acts))
	for i, a := range acts {
		if a.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate catalog id %q", a.ID)
		}
		seen[a.ID] = true
		if a.Location != nil && !a.Location.Valid() {
			return nil, fmt.Errorf("catalog entry %q has an invalid location", a.ID)
		}
	}
	return acts, nil
}

// Find returns the activity with the given id
func Find(acts []models.Activity, id string) (models.Activity, bool) {
	for _, a := range acts {
		if a.ID == id {
			return a, true
		}
	}
	return models.Activity{}, false
}
