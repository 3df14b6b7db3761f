package advisory

import "strings"

// Severity is a disease severity label reported for a crop.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// severityLoss maps severity to the expected yield loss percentage.
// Unrecognized labels carry zero loss rather than failing, so a mistyped
// label degrades the estimate instead of blocking the advisory.
var severityLoss = map[Severity]float64{
	SeverityLow:    5.0,
	SeverityMedium: 15.0,
	SeverityHigh:   30.0,
}

// ParseSeverity normalizes a raw label. The result is not guaranteed to be
// one of the known constants; unknown labels survive normalization and map
// to zero loss.
func ParseSeverity(raw string) Severity {
	return Severity(strings.ToLower(strings.TrimSpace(raw)))
}

// LossPercent returns the yield loss percentage for the severity,
// 0 for unrecognized labels.
func (s Severity) LossPercent() float64 {
	return severityLoss[s]
}

// IsKnown reports whether the severity is one of the recognized levels.
func (s Severity) IsKnown() bool {
	_, ok := severityLoss[s]
	return ok
}
