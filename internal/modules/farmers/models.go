// Package farmers manages farmer registrations.
package farmers

// Farmer is a registered grower. Acreage is in acres, sowing date is
// YYYY-MM-DD, the cold-storage flag drives the sell-or-store decision.
type Farmer struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone,omitempty"`
	Mandal         string  `json:"mandal"`
	Village        string  `json:"village,omitempty"`
	Crop           string  `json:"crop"`
	Acreage        float64 `json:"acreage"`
	SowingDate     string  `json:"sowing_date,omitempty"`
	HasColdStorage bool    `json:"has_cold_storage"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// CropCount is one row of the per-crop registration stats.
type CropCount struct {
	Crop  string `json:"crop"`
	Count int    `json:"count"`
}

// MandalCount is one row of the per-mandal registration stats.
type MandalCount struct {
	Mandal string `json:"mandal"`
	Count  int    `json:"count"`
}
