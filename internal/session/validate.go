package session

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/skiffworks/sailing-campaign/backend/internal/repository"
)

// Bounds for session fields
const (
	MaxWindSpeed    = 60 // safety limit for 49er sailing, knots
	MaxHoursOnWater = 12
	MinRating       = 1
	MaxRating       = 5
	MaxLocationLen  = 255
	MaxDirectionLen = 50
	MinMastRake     = -5
	MaxMastRake     = 30
	MinPreBend      = -50
	MaxPreBend      = 200
	MaxTensionScale = 10
)

// FieldError represents a single domain validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator instance for request-shape validation
var validate = validator.New()

// GetValidator returns the validator instance
func GetValidator() *validator.Validate {
	return validate
}

// The check functions below are shared between the create and update paths.
// A nil argument means the field is absent from a partial payload and is
// skipped; the create path passes every field.

func checkLocation(location *string) []FieldError {
	if location == nil {
		return nil
	}
	var errs []FieldError
	if strings.TrimSpace(*location) == "" {
		errs = append(errs, FieldError{"location", "Location cannot be empty"})
	}
	if len(*location) > MaxLocationLen {
		errs = append(errs, FieldError{"location", "Location too long"})
	}
	return errs
}

func checkWindSpeeds(min, max *float64) []FieldError {
	var errs []FieldError
	if min != nil {
		if *min < 0 {
			errs = append(errs, FieldError{"wind_speed_min", "Minimum wind speed cannot be negative"})
		}
		if *min > MaxWindSpeed {
			errs = append(errs, FieldError{"wind_speed_min", "Wind speed exceeds safe sailing conditions"})
		}
	}
	if max != nil {
		if *max < 0 {
			errs = append(errs, FieldError{"wind_speed_max", "Maximum wind speed cannot be negative"})
		}
		if *max > MaxWindSpeed {
			errs = append(errs, FieldError{"wind_speed_max", "Wind speed exceeds safe sailing conditions"})
		}
	}
	if min != nil && max != nil && *min > *max {
		errs = append(errs, FieldError{"wind_speed_min", "Minimum wind speed cannot exceed maximum"})
	}
	return errs
}

func checkWaveType(waveType *string) []FieldError {
	if waveType == nil {
		return nil
	}
	for _, valid := range repository.WaveTypes {
		if *waveType == valid {
			return nil
		}
	}
	return []FieldError{{
		Field:   "wave_type",
		Message: "Wave type must be one of: " + strings.Join(repository.WaveTypes, ", "),
	}}
}

func checkWaveDirection(direction *string) []FieldError {
	if direction == nil {
		return nil
	}
	var errs []FieldError
	if strings.TrimSpace(*direction) == "" {
		errs = append(errs, FieldError{"wave_direction", "Wave direction cannot be empty"})
	}
	if len(*direction) > MaxDirectionLen {
		errs = append(errs, FieldError{"wave_direction", "Wave direction too long"})
	}
	return errs
}

func checkHoursOnWater(hours *float64) []FieldError {
	if hours == nil {
		return nil
	}
	if *hours <= 0 || *hours > MaxHoursOnWater {
		return []FieldError{{"hours_on_water", "Hours on water must be between 0 and 12"}}
	}
	return nil
}

func checkPerformanceRating(rating *int) []FieldError {
	if rating == nil {
		return nil
	}
	if *rating < MinRating || *rating > MaxRating {
		return []FieldError{{"performance_rating", "Performance rating must be between 1 and 5"}}
	}
	return nil
}

// validateSessionFields runs every applicable check over a set of
// possibly-absent session fields
func validateSessionFields(location *string, windMin, windMax *float64, waveType, waveDirection *string, hours *float64, rating *int) []FieldError {
	var errs []FieldError
	errs = append(errs, checkLocation(location)...)
	errs = append(errs, checkWindSpeeds(windMin, windMax)...)
	errs = append(errs, checkWaveType(waveType)...)
	errs = append(errs, checkWaveDirection(waveDirection)...)
	errs = append(errs, checkHoursOnWater(hours)...)
	errs = append(errs, checkPerformanceRating(rating)...)
	return errs
}

func checkTension(field string, value float64) []FieldError {
	if value < 0 || value > MaxTensionScale {
		return []FieldError{{field, fmt.Sprintf("%s must be between 0 and 10", field)}}
	}
	return nil
}

func checkJibHalyardTension(level string) []FieldError {
	for _, valid := range repository.TensionLevels {
		if level == valid {
			return nil
		}
	}
	return []FieldError{{
		Field:   "jib_halyard_tension",
		Message: "Jib halyard tension must be one of: " + strings.Join(repository.TensionLevels, ", "),
	}}
}

// validateSettings checks every rig settings field
func validateSettings(req CreateSettingsRequest) []FieldError {
	var errs []FieldError

	errs = append(errs, checkTension("forestay_tension", req.ForestayTension)...)
	errs = append(errs, checkTension("shroud_tension", req.ShroudTension)...)
	errs = append(errs, checkTension("cunningham", req.Cunningham)...)
	errs = append(errs, checkTension("outhaul", req.Outhaul)...)
	errs = append(errs, checkTension("vang", req.Vang)...)
	errs = append(errs, checkTension("main_tension", req.MainTension)...)
	errs = append(errs, checkTension("cap_tension", req.CapTension)...)
	errs = append(errs, checkTension("lowers_scale", req.LowersScale)...)
	errs = append(errs, checkTension("mains_scale", req.MainsScale)...)

	if req.MastRake < MinMastRake || req.MastRake > MaxMastRake {
		errs = append(errs, FieldError{"mast_rake", "Mast rake must be between -5 and 30 degrees"})
	}
	if req.CapHole < 0 {
		errs = append(errs, FieldError{"cap_hole", "cap_hole cannot be negative"})
	}
	if req.PreBend < MinPreBend || req.PreBend > MaxPreBend {
		errs = append(errs, FieldError{"pre_bend", "pre_bend must be between -50 and 200 mm"})
	}
	errs = append(errs, checkJibHalyardTension(req.JibHalyardTension)...)

	return errs
}
