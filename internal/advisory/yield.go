package advisory

import (
	"errors"
	"fmt"
	"math"

	"github.com/agrisage/agrisage/internal/refdata"
)

// ErrInvalidInput marks estimates rejected for bad numeric inputs.
// Callers can test for it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Weather factor breakpoints. Each sub-factor compares an observation to the
// crop's optimal range; the three are averaged and clamped.
const (
	// Combined factor bounds
	weatherFactorFloor = 0.5
	weatherFactorCeil  = 1.2

	// Temperature: inside optimal range, or more than 10°C outside it
	tempFactorOptimal = 1.1
	tempFactorExtreme = 0.6
	tempFactorMild    = 0.85
	tempExtremeMargin = 10.0

	// Rainfall: monthly observations are annualized before comparison
	rainFactorOptimal = 1.15
	rainFactorDrought = 0.5  // under half the optimal lower bound
	rainFactorFlood   = 0.7  // over 1.5x the optimal upper bound
	rainFactorMild    = 0.9
	monthsPerYear     = 12

	// Humidity: inside optimal range, or more than 20 points outside it
	humidityFactorOptimal = 1.1
	humidityFactorExtreme = 0.7
	humidityFactorMild    = 0.9
	humidityExtremeMargin = 20.0
)

// Weather is one set of observations used for a yield estimate.
// Rainfall is the monthly figure; the estimator annualizes it internally.
type Weather struct {
	RainfallMM   float64
	TemperatureC float64
	HumidityPct  float64
}

// YieldEstimate is the output of EstimateYield. Quantities are quintals.
type YieldEstimate struct {
	Crop              string  `json:"crop"`
	Acres             float64 `json:"acres"`
	BaseYield         float64 `json:"base_yield"`
	WeatherFactor     float64 `json:"weather_factor"`
	TemperatureFactor float64 `json:"temperature_factor"`
	RainfallFactor    float64 `json:"rainfall_factor"`
	HumidityFactor    float64 `json:"humidity_factor"`
	DiseaseLossPct    float64 `json:"disease_loss_pct"`
	DiseaseLossAmount float64 `json:"disease_loss_amount"`
	PredictedYield    float64 `json:"predicted_yield"`
}

// EstimateYield predicts the harvest for a plot.
//
//	base     = profile base yield per acre × acres
//	factor   = mean(temperature, rainfall, humidity sub-factors), clamped
//	loss     = severity yield-loss percentage
//	predicted = max(0, base × factor × (1 - loss/100))
//
// Numeric inputs are validated strictly: negative acreage or rainfall,
// humidity outside 0-100, or non-finite values are rejected with
// ErrInvalidInput. Severity is lenient; unknown labels mean zero loss.
func EstimateYield(profile refdata.CropProfile, acres float64, w Weather, severity Severity) (*YieldEstimate, error) {
	if err := validateYieldInputs(acres, w); err != nil {
		return nil, err
	}

	baseYield := profile.BaseYieldPerAcre * acres

	tempFactor := temperatureFactor(profile, w.TemperatureC)
	rainFactor := rainfallFactor(profile, w.RainfallMM)
	humidFactor := humidityFactor(profile, w.HumidityPct)

	weatherFactor := (tempFactor + rainFactor + humidFactor) / 3
	weatherFactor = math.Max(weatherFactorFloor, math.Min(weatherFactorCeil, weatherFactor))

	yieldAfterWeather := baseYield * weatherFactor

	lossPct := severity.LossPercent()
	lossAmount := yieldAfterWeather * (lossPct / 100)

	predicted := math.Max(0, yieldAfterWeather-lossAmount)

	return &YieldEstimate{
		Crop:              profile.Name,
		Acres:             acres,
		BaseYield:         baseYield,
		WeatherFactor:     weatherFactor,
		TemperatureFactor: tempFactor,
		RainfallFactor:    rainFactor,
		HumidityFactor:    humidFactor,
		DiseaseLossPct:    lossPct,
		DiseaseLossAmount: lossAmount,
		PredictedYield:    predicted,
	}, nil
}

func validateYieldInputs(acres float64, w Weather) error {
	for _, v := range []struct {
		label string
		value float64
	}{
		{"acres", acres},
		{"rainfall", w.RainfallMM},
		{"temperature", w.TemperatureC},
		{"humidity", w.HumidityPct},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidInput, v.label)
		}
	}
	if acres < 0 {
		return fmt.Errorf("%w: acreage %.2f is negative", ErrInvalidInput, acres)
	}
	if w.RainfallMM < 0 {
		return fmt.Errorf("%w: rainfall %.2fmm is negative", ErrInvalidInput, w.RainfallMM)
	}
	if w.HumidityPct < 0 || w.HumidityPct > 100 {
		return fmt.Errorf("%w: humidity %.2f%% outside 0-100", ErrInvalidInput, w.HumidityPct)
	}
	return nil
}

func temperatureFactor(profile refdata.CropProfile, tempC float64) float64 {
	optimal := profile.OptimalTempC
	switch {
	case optimal.Contains(tempC):
		return tempFactorOptimal
	case tempC < optimal.Lo-tempExtremeMargin || tempC > optimal.Hi+tempExtremeMargin:
		return tempFactorExtreme
	default:
		return tempFactorMild
	}
}

func rainfallFactor(profile refdata.CropProfile, monthlyMM float64) float64 {
	optimal := profile.OptimalRainfall
	annual := monthlyMM * monthsPerYear
	switch {
	case optimal.Contains(annual):
		return rainFactorOptimal
	case annual < optimal.Lo*0.5:
		return rainFactorDrought
	case annual > optimal.Hi*1.5:
		return rainFactorFlood
	default:
		return rainFactorMild
	}
}

func humidityFactor(profile refdata.CropProfile, humidityPct float64) float64 {
	optimal := profile.OptimalHumidity
	switch {
	case optimal.Contains(humidityPct):
		return humidityFactorOptimal
	case humidityPct < optimal.Lo-humidityExtremeMargin || humidityPct > optimal.Hi+humidityExtremeMargin:
		return humidityFactorExtreme
	default:
		return humidityFactorMild
	}
}
