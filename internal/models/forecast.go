package models

// Forecast source constants
const (
	ForecastSourceLive      = "live"
	ForecastSourceSynthetic = "synthetic"
)

// Forecast is a day-level weather description for one place
type Forecast struct {
	Date              string `json:"date"`
	Condition         string `json:"condition"`
	TemperatureC      int    `json:"temperatureC"`
	Display           string `json:"display"` // e.g. "Clear · 24°C"
	PrecipProbability int    `json:"precipProbability"`
	Source            string `json:"source"`
}
