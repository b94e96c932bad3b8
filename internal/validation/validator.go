// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package validation provides struct validation for request bodies using
// go-playground/validator v10. A thread-safe singleton instance caches
// struct metadata across requests. This covers the shape of request
// payloads only; per-field record validation is the gate's job.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError is a single failed struct check.
type ValidationError struct {
	field   string
	tag     string
	param   string
	message string
}

// Field returns the struct field that failed.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the tag parameter, e.g. "100" for "max=100".
func (e *ValidationError) Param() string { return e.param }

// Error returns a human-readable message.
func (e *ValidationError) Error() string { return e.message }

// RequestValidationError aggregates every failed check of one struct.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the individual failures.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error implements the error interface.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i, err := range ve.errors {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the singleton validator.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates a request struct. Returns nil on success.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{{field: "unknown", tag: "unknown", message: err.Error()}},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			message: translateError(fieldErr),
		}
	}
	return &RequestValidationError{errors: fieldErrors}
}

// translateError converts a validator.FieldError to a message matching the
// API's error style.
func translateError(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "min":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must contain at least %s items", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must contain at most %s items", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
