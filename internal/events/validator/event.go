package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"meetsync/pkg/logger"
	"meetsync/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type EventValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewEventValidator(log *logger.Logger) *EventValidator {
	return &EventValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *EventValidator) ValidateBooking(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *EventValidator) ValidateUpdate(req *model.UpdateRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidateEvent guards the ledger record itself before reservation.
func (v *EventValidator) ValidateEvent(event *model.Event) error {
	if err := v.validate.Struct(event); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if !event.EndUTC.After(event.StartUTC) {
		return ValidationErrors{
			ValidationError{
				Field:   "EndUTC",
				Message: "end time must be after start time",
			},
		}
	}

	return nil
}

func (v *EventValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var translated ValidationErrors
	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = "this field is required"
		case "min":
			message = fmt.Sprintf("must be at least %s characters", err.Param())
		case "max":
			message = fmt.Sprintf("must be at most %s characters", err.Param())
		case "gtfield":
			message = fmt.Sprintf("must be greater than %s", err.Param())
		case "oneof":
			message = fmt.Sprintf("must be one of: %s", err.Param())
		case "email":
			message = "must be a valid email address"
		case "mongodb":
			message = "must be a valid object id"
		default:
			message = fmt.Sprintf("failed validation rule %q", err.Tag())
		}
		translated = append(translated, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}
	return translated
}
