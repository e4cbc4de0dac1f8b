// Package reports validates report-builder submissions and turns them into
// backend report requests.
package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/plantdash/plantdash/internal/client"
)

const (
	dateLayout = "2006-01-02"
	// MaxRange is the longest period a single report may cover
	MaxRange = 366 * 24 * time.Hour
)

// Formats lists the output formats the backend can render
var Formats = []string{"pdf", "xlsx", "csv"}

// Form is the report-builder form as posted by the browser or built by
// the CLI
type Form struct {
	Title        string   `form:"title" json:"title" validate:"required,max=120"`
	PlantID      string   `form:"plant_id" json:"plant_id" validate:"required,alphanumdash"`
	SystemID     string   `form:"system_id" json:"system_id" validate:"omitempty,alphanumdash"`
	ParameterIDs []string `form:"parameter_ids" json:"parameter_ids" validate:"max=20,dive,required,alphanumdash"`
	From         string   `form:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To           string   `form:"to" json:"to" validate:"required,datetime=2006-01-02"`
	Format       string   `form:"format" json:"format" validate:"required,oneof=pdf xlsx csv"`
}

// FieldErrors maps form field names to a message
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "invalid report: " + strings.Join(parts, "; ")
}

// Validator checks report forms
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the report rules registered
func NewValidator() *Validator {
	validate := validator.New()

	// Allow alphanumeric, hyphens, and underscores only (safe for URL paths)
	validate.RegisterValidation("alphanumdash", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') ||
				(char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9') ||
				char == '-' ||
				char == '_') {
				return false
			}
		}
		return true
	})

	validate.RegisterStructValidation(validateRange, Form{})

	return &Validator{validate: validate}
}

// validateRange checks From/To once both parse
func validateRange(sl validator.StructLevel) {
	f := sl.Current().Interface().(Form)

	from, errFrom := time.Parse(dateLayout, f.From)
	to, errTo := time.Parse(dateLayout, f.To)
	if errFrom != nil || errTo != nil {
		return
	}

	if to.Before(from) {
		sl.ReportError(f.To, "to", "To", "after_from", "")
		return
	}
	if to.Sub(from) > MaxRange {
		sl.ReportError(f.To, "to", "To", "max_range", "")
	}
}

// Validate checks f and returns FieldErrors keyed by form field name
func (v *Validator) Validate(f Form) error {
	err := v.validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate report: %w", err)
	}

	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		name := formName(fe.StructField())
		if _, exists := fields[name]; exists {
			continue
		}
		fields[name] = message(fe)
	}
	return fields
}

func formName(structField string) string {
	switch structField {
	case "PlantID":
		return "plant_id"
	case "SystemID":
		return "system_id"
	case "From":
		return "from"
	case "To":
		return "to"
	case "Format":
		return "format"
	case "Title":
		return "title"
	default:
		return "parameter_ids"
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("accepts at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "alphanumdash":
		return "contains invalid characters"
	case "after_from":
		return "must not be before the start date"
	case "max_range":
		return "range must not exceed one year"
	default:
		return "is invalid"
	}
}

// Request converts a validated form to the backend request. The end date
// is inclusive: the request runs until the end of that day.
func (f Form) Request() (client.CreateReportRequest, error) {
	from, err := time.Parse(dateLayout, f.From)
	if err != nil {
		return client.CreateReportRequest{}, fmt.Errorf("invalid from date: %w", err)
	}
	to, err := time.Parse(dateLayout, f.To)
	if err != nil {
		return client.CreateReportRequest{}, fmt.Errorf("invalid to date: %w", err)
	}

	return client.CreateReportRequest{
		Title:        strings.TrimSpace(f.Title),
		PlantID:      f.PlantID,
		SystemID:     f.SystemID,
		ParameterIDs: f.ParameterIDs,
		From:         from.UTC(),
		To:           to.Add(24*time.Hour - time.Second).UTC(),
		Format:       f.Format,
	}, nil
}
