package models

// Place is structured venue metadata from a place lookup
type Place struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Hours   string `json:"hours,omitempty"` // e.g. "Mo-Fr 09:00-17:00; Sa 10:00-14:00"
	OpenNow *bool  `json:"openNow,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}
