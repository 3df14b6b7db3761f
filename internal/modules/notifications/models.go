// Package notifications stores alerts raised for extension officers.
package notifications

// Kind classifies a notification.
type Kind string

const (
	KindPriceAlert Kind = "price_alert"
	KindAdvisory   Kind = "advisory"
	KindSystem     Kind = "system"
)

// Notification is one alert. Crop and mandal are optional context.
type Notification struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Crop      string `json:"crop,omitempty"`
	Mandal    string `json:"mandal,omitempty"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}
