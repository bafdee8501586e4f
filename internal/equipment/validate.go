package equipment

import (
	"strings"

	"github.com/skiffworks/sailing-campaign/backend/internal/repository"
)

// Bounds for equipment fields
const (
	MaxNameLen         = 100
	MaxManufacturerLen = 100
	MaxModelLen        = 100
)

// FieldError represents a single domain validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// The check functions are shared between the create and update paths. A nil
// argument means the field is absent from a partial payload and is skipped.

func checkName(name *string) []FieldError {
	if name == nil {
		return nil
	}
	var errs []FieldError
	if strings.TrimSpace(*name) == "" {
		errs = append(errs, FieldError{"name", "Equipment name cannot be empty"})
	}
	if len(*name) > MaxNameLen {
		errs = append(errs, FieldError{"name", "Equipment name too long"})
	}
	return errs
}

func checkType(equipmentType *string) []FieldError {
	if equipmentType == nil {
		return nil
	}
	for _, valid := range repository.EquipmentTypes {
		if *equipmentType == valid {
			return nil
		}
	}
	return []FieldError{{
		Field:   "type",
		Message: "Equipment type must be one of: " + strings.Join(repository.EquipmentTypes, ", "),
	}}
}

func checkManufacturer(manufacturer *string) []FieldError {
	if manufacturer == nil {
		return nil
	}
	var errs []FieldError
	if strings.TrimSpace(*manufacturer) == "" {
		errs = append(errs, FieldError{"manufacturer", "Manufacturer cannot be empty"})
	}
	if len(*manufacturer) > MaxManufacturerLen {
		errs = append(errs, FieldError{"manufacturer", "Manufacturer too long"})
	}
	return errs
}

func checkModel(model *string) []FieldError {
	if model == nil {
		return nil
	}
	var errs []FieldError
	if strings.TrimSpace(*model) == "" {
		errs = append(errs, FieldError{"model", "Model cannot be empty"})
	}
	if len(*model) > MaxModelLen {
		errs = append(errs, FieldError{"model", "Model too long"})
	}
	return errs
}

// validateEquipmentFields runs every applicable check over a set of
// possibly-absent equipment fields
func validateEquipmentFields(name, equipmentType, manufacturer, model *string) []FieldError {
	var errs []FieldError
	errs = append(errs, checkName(name)...)
	errs = append(errs, checkType(equipmentType)...)
	errs = append(errs, checkManufacturer(manufacturer)...)
	errs = append(errs, checkModel(model)...)
	return errs
}
