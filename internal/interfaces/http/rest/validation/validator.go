// Package validation decodes JSON request bodies into typed request structs
// and validates them with go-playground/validator.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nancymuyeh/SafeSpace/internal/domain"
	apperrors "github.com/nancymuyeh/SafeSpace/internal/errors"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Validator validates request structs. The custom "mood" tag accepts only the
// configured mood set.
type Validator struct {
	validate     *validator.Validate
	moods        map[domain.Mood]struct{}
	order        []string
	maxBodyBytes int64
}

// New creates a Validator for the given mood set.
func New(moods []domain.Mood, maxBodyBytes int64) *Validator {
	if len(moods) == 0 {
		moods = domain.DefaultMoods
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	v := &Validator{
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		moods:        make(map[domain.Mood]struct{}, len(moods)),
		maxBodyBytes: maxBodyBytes,
	}
	for _, m := range moods {
		if _, dup := v.moods[m]; dup {
			continue
		}
		v.moods[m] = struct{}{}
		v.order = append(v.order, string(m))
	}

	// Report fields by their JSON names.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.validate.RegisterValidation("mood", func(fl validator.FieldLevel) bool {
		return v.ValidMood(domain.Mood(fl.Field().String()))
	})

	return v
}

// ValidMood reports whether m belongs to the configured mood set.
func (v *Validator) ValidMood(m domain.Mood) bool {
	_, ok := v.moods[m]
	return ok
}

// Moods returns the configured moods in configuration order.
func (v *Validator) Moods() []string {
	return append([]string(nil), v.order...)
}

// DecodeJSON reads a JSON body into dst and validates it. Every failure is a
// validation AppError.
func (v *Validator) DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, v.maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.NewValidationError("Request body is required")
		case errors.As(err, &maxErr):
			return apperrors.NewValidationError(fmt.Sprintf("Request body must not exceed %d bytes", maxErr.Limit))
		case errors.As(err, &typeErr):
			return apperrors.NewValidationError("Invalid request body",
				apperrors.FieldError{Field: typeErr.Field, Message: fmt.Sprintf("%s has the wrong type", typeErr.Field)})
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return apperrors.NewValidationError("Invalid JSON").WithCause(err)
		default:
			return apperrors.NewValidationError("Invalid request body").WithCause(err)
		}
	}

	return v.Struct(dst)
}

// Struct validates s and converts validator errors into field errors.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError("Invalid request").WithCause(err)
	}

	fields := make([]apperrors.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, apperrors.FieldError{
			Field:   fe.Field(),
			Message: v.formatFieldError(fe),
		})
	}
	return apperrors.NewValidationError("Validation failed", fields...)
}

func (v *Validator) formatFieldError(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, fe.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "mood":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(v.order, ", "))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
